package scoring

import (
	"context"
	"math"
	"testing"

	"github.com/cadencehq/cadence/internal/core"
	"github.com/cadencehq/cadence/internal/storage"
)

func testEngine(t *testing.T) (*Engine, *storage.DB) {
	t.Helper()
	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return New(db), db
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// seedPerfectDay sets up a day scoring base 96: one habit of weight 1.0
// completed (45 pts), one task assigned and done (45 pts), and 6 net
// productive hours (6 pts).
func seedPerfectDay(t *testing.T, db *storage.DB, day core.Day) *core.Task {
	t.Helper()

	habits := storage.NewHabitStore(db)
	tasks := storage.NewTaskStore(db)
	timeLogs := storage.NewTimeLogStore(db)

	habit := &core.Habit{Name: "exercise " + string(day), Weight: 1.0}
	if err := habits.Create(habit); err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if _, err := habits.Complete(habit.ID, day); err != nil {
		t.Fatalf("complete habit: %v", err)
	}

	task := &core.Task{Title: "ship it", Day: day, IsDone: true}
	if err := tasks.Create(task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	err := timeLogs.Create(&core.TimeLog{Day: day, Kind: core.TimeProductive, Minutes: 360})
	if err != nil {
		t.Fatalf("create time log: %v", err)
	}

	return task
}

// =============================================================================
// Metric calculator tests
// =============================================================================

func TestTaskRatio(t *testing.T) {
	tests := []struct {
		name      string
		assigned  int
		completed int
		want      float64
	}{
		{"all done", 4, 4, 1.0},
		{"half done", 4, 2, 0.5},
		{"none done", 4, 0, 0.0},
		{"nothing assigned nothing done", 0, 0, 0.0},
		{"unplanned completions count", 0, 2, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := taskRatio(tt.assigned, tt.completed); !almostEqual(got, tt.want) {
				t.Errorf("taskRatio(%d, %d) = %v, want %v", tt.assigned, tt.completed, got, tt.want)
			}
		})
	}
}

func TestTimeScore(t *testing.T) {
	if got := timeScore(360, 0); !almostEqual(got, 60) {
		t.Errorf("timeScore(360, 0) = %v, want 60", got)
	}
	if got := timeScore(0, 120); !almostEqual(got, -20) {
		t.Errorf("timeScore(0, 120) = %v, want -20", got)
	}
	if got := timeScore(90, 30); !almostEqual(got, 10) {
		t.Errorf("timeScore(90, 30) = %v, want 10", got)
	}
}

func TestCollectMetrics(t *testing.T) {
	e, db := testEngine(t)
	day := core.Day("2025-03-10")
	seedPerfectDay(t, db, day)

	m, err := e.collectMetrics(day)
	if err != nil {
		t.Fatalf("collectMetrics() error = %v", err)
	}

	if !almostEqual(m.habitRaw, 1.0) {
		t.Errorf("habitRaw = %v, want 1.0", m.habitRaw)
	}
	if !almostEqual(m.taskRaw, 1.0) {
		t.Errorf("taskRaw = %v, want 1.0", m.taskRaw)
	}
	if !almostEqual(m.timeRaw, 60) {
		t.Errorf("timeRaw = %v, want 60", m.timeRaw)
	}
}

// =============================================================================
// Streak transition rule tests
// =============================================================================

func TestNextStreak(t *testing.T) {
	tests := []struct {
		name      string
		prev      int
		base      float64
		rest      bool
		wantNew   int
		wantBasis int
	}{
		{"qualifying day extends", 2, 75, false, 3, 3},
		{"first qualifying day", 0, 96, false, 1, 1},
		{"exactly at threshold qualifies", 4, 60.0, false, 5, 5},
		{"just under threshold resets", 4, 59.99, false, 0, 0},
		{"rest day carries streak", 7, 0, true, 7, 7},
		{"rest day with no history", 0, 0, true, 0, 0},
		{"rest day ignores high score", 3, 96, true, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NextStreak(tt.prev, tt.base, tt.rest)
			if tr.NewStreak != tt.wantNew {
				t.Errorf("NewStreak = %d, want %d", tr.NewStreak, tt.wantNew)
			}
			if tr.BonusBasis != tt.wantBasis {
				t.Errorf("BonusBasis = %d, want %d", tr.BonusBasis, tt.wantBasis)
			}
		})
	}
}

func TestStreakBonus(t *testing.T) {
	tests := []struct {
		name string
		tr   Transition
		want float64
	}{
		{"no streak no bonus", Transition{0, 0}, 0},
		{"streak of one", Transition{1, 1}, 1.0},
		{"streak of two", Transition{2, 2}, 1.0},
		{"streak of three", Transition{3, 3}, 1.01},
		{"rest day carried basis", Transition{5, 5}, 1.01},
		{"full year", Transition{365, 365}, 1.58},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StreakBonus(tt.tr); !almostEqual(got, tt.want) {
				t.Errorf("StreakBonus(%+v) = %v, want %v", tt.tr, got, tt.want)
			}
		})
	}
}

func TestBaseScore(t *testing.T) {
	if got := BaseScore(100, 100, 60); !almostEqual(got, 96) {
		t.Errorf("BaseScore(100, 100, 60) = %v, want 96", got)
	}
	if got := BaseScore(0, 0, -20); !almostEqual(got, -2) {
		t.Errorf("BaseScore(0, 0, -20) = %v, want -2", got)
	}
}

// =============================================================================
// Composer tests
// =============================================================================

func TestComposeDay_PerfectDay(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day := core.Day("2025-03-10")
	seedPerfectDay(t, db, day)

	score, err := e.ComposeDay(ctx, day)
	if err != nil {
		t.Fatalf("ComposeDay() error = %v", err)
	}

	if !almostEqual(score.HabitComponent, 100) {
		t.Errorf("HabitComponent = %v, want 100", score.HabitComponent)
	}
	if !almostEqual(score.TaskComponent, 100) {
		t.Errorf("TaskComponent = %v, want 100", score.TaskComponent)
	}
	if !almostEqual(score.TimeComponent, 60) {
		t.Errorf("TimeComponent = %v, want 60", score.TimeComponent)
	}
	if !almostEqual(score.StreakBonus, 1.0) {
		t.Errorf("StreakBonus = %v, want 1.0", score.StreakBonus)
	}
	if !almostEqual(score.TotalScore, 97.0) {
		t.Errorf("TotalScore = %v, want 97.0", score.TotalScore)
	}

	streak, err := e.CurrentStreak()
	if err != nil {
		t.Fatalf("CurrentStreak() error = %v", err)
	}
	if streak != 1 {
		t.Errorf("CurrentStreak() = %d, want 1", streak)
	}
}

func TestComposeDay_EmptyDay(t *testing.T) {
	e, _ := testEngine(t)
	day := core.Day("2025-03-10")

	score, err := e.ComposeDay(context.Background(), day)
	if err != nil {
		t.Fatalf("ComposeDay() error = %v", err)
	}

	if !almostEqual(score.TotalScore, 0) {
		t.Errorf("TotalScore = %v, want 0", score.TotalScore)
	}
	if score.IsRestDay {
		t.Error("IsRestDay should default to false")
	}

	streak, _ := e.CurrentStreak()
	if streak != 0 {
		t.Errorf("CurrentStreak() = %d, want 0", streak)
	}
}

func TestComposeDay_Idempotent(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day := core.Day("2025-03-10")
	seedPerfectDay(t, db, day)

	first, err := e.ComposeDay(ctx, day)
	if err != nil {
		t.Fatalf("first ComposeDay() error = %v", err)
	}
	second, err := e.ComposeDay(ctx, day)
	if err != nil {
		t.Fatalf("second ComposeDay() error = %v", err)
	}

	if first.HabitComponent != second.HabitComponent ||
		first.TaskComponent != second.TaskComponent ||
		first.TimeComponent != second.TimeComponent ||
		first.StreakBonus != second.StreakBonus ||
		first.TotalScore != second.TotalScore {
		t.Errorf("recomposition changed the record: first %+v, second %+v", first, second)
	}

	streak, _ := e.CurrentStreak()
	if streak != 1 {
		t.Errorf("CurrentStreak() = %d, want 1 (recomposing must not double-count)", streak)
	}
}

func TestComposeDay_PreservesRestDayAndNotes(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day := core.Day("2025-03-10")

	scores := storage.NewScoreStore(db)
	if err := scores.SetRestDay(day, true); err != nil {
		t.Fatalf("SetRestDay() error = %v", err)
	}
	if err := scores.SetNotes(day, "took the day off"); err != nil {
		t.Fatalf("SetNotes() error = %v", err)
	}

	score, err := e.ComposeDay(ctx, day)
	if err != nil {
		t.Fatalf("ComposeDay() error = %v", err)
	}

	if !score.IsRestDay {
		t.Error("IsRestDay should survive recomposition")
	}
	if score.Notes != "took the day off" {
		t.Errorf("Notes = %q, want it to survive recomposition", score.Notes)
	}
}

func TestComposeDay_NegativeTimePullsBelowThreshold(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day := core.Day("2025-03-10")
	seedPerfectDay(t, db, day)

	// 36.5 distracting hours against the 6 productive ones: net -30.5h,
	// time component -305, base 45 + 45 - 30.5 = 59.5.
	timeLogs := storage.NewTimeLogStore(db)
	err := timeLogs.Create(&core.TimeLog{Day: day, Kind: core.TimeDistracting, Minutes: 2190})
	if err != nil {
		t.Fatalf("create time log: %v", err)
	}

	score, err := e.ComposeDay(ctx, day)
	if err != nil {
		t.Fatalf("ComposeDay() error = %v", err)
	}

	if !almostEqual(score.TimeComponent, -305) {
		t.Errorf("TimeComponent = %v, want -305", score.TimeComponent)
	}
	if !almostEqual(score.StreakBonus, 0) {
		t.Errorf("StreakBonus = %v, want 0 below threshold", score.StreakBonus)
	}

	streak, _ := e.CurrentStreak()
	if streak != 0 {
		t.Errorf("CurrentStreak() = %d, want 0", streak)
	}
}

func TestComposeDay_RestDayCarriesStreak(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day1 := core.Day("2025-03-10")
	day2 := day1.Next()

	seedPerfectDay(t, db, day1)
	if _, err := e.ComposeDay(ctx, day1); err != nil {
		t.Fatalf("compose day1: %v", err)
	}

	// Day 2 has no activity at all, but is flagged as rest.
	scores := storage.NewScoreStore(db)
	if err := scores.SetRestDay(day2, true); err != nil {
		t.Fatalf("SetRestDay() error = %v", err)
	}

	score, err := e.ComposeDay(ctx, day2)
	if err != nil {
		t.Fatalf("compose day2: %v", err)
	}

	streak, _ := e.CurrentStreak()
	if streak != 1 {
		t.Errorf("CurrentStreak() = %d, want 1 (rest day carries over)", streak)
	}
	// Bonus is computed on the carried-over streak of 1.
	if !almostEqual(score.StreakBonus, 1.0) {
		t.Errorf("StreakBonus = %v, want 1.0", score.StreakBonus)
	}
	if !almostEqual(score.TotalScore, 1.0) {
		t.Errorf("TotalScore = %v, want 1.0 (zero base + bonus)", score.TotalScore)
	}
}

func TestComposeDay_RestDayWithNoHistory(t *testing.T) {
	e, db := testEngine(t)
	day := core.Day("2025-03-10")

	scores := storage.NewScoreStore(db)
	if err := scores.SetRestDay(day, true); err != nil {
		t.Fatalf("SetRestDay() error = %v", err)
	}

	score, err := e.ComposeDay(context.Background(), day)
	if err != nil {
		t.Fatalf("ComposeDay() error = %v", err)
	}

	// Nothing to carry: no streak, no bonus.
	if !almostEqual(score.StreakBonus, 0) {
		t.Errorf("StreakBonus = %v, want 0", score.StreakBonus)
	}
	streak, _ := e.CurrentStreak()
	if streak != 0 {
		t.Errorf("CurrentStreak() = %d, want 0", streak)
	}
}

func TestComposeDay_InvariantTotalEqualsBasePlusBonus(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()

	day := core.Day("2025-03-10")
	for i := 0; i < 4; i++ {
		seedPerfectDay(t, db, day)
		if _, err := e.ComposeDay(ctx, day); err != nil {
			t.Fatalf("compose %s: %v", day, err)
		}
		day = day.Next()
	}

	scores := storage.NewScoreStore(db)
	all, err := scores.GetRange("2025-03-10", "2025-03-13")
	if err != nil {
		t.Fatalf("GetRange() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d records, want 4", len(all))
	}

	for _, s := range all {
		base := BaseScore(s.HabitComponent, s.TaskComponent, s.TimeComponent)
		if !almostEqual(s.TotalScore, base+s.StreakBonus) {
			t.Errorf("%s: TotalScore = %v, want base %v + bonus %v", s.Day, s.TotalScore, base, s.StreakBonus)
		}
	}
}

// =============================================================================
// Streak growth across days (Scenarios A-C)
// =============================================================================

func TestStreakGrowsAcrossDays(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day1 := core.Day("2025-03-10")

	wantBonus := []float64{1.0, 1.0, 1.01}

	day := day1
	for i := 0; i < 3; i++ {
		seedPerfectDay(t, db, day)
		score, err := e.ComposeDay(ctx, day)
		if err != nil {
			t.Fatalf("compose %s: %v", day, err)
		}

		streak, _ := e.CurrentStreak()
		if streak != i+1 {
			t.Errorf("after day %d: CurrentStreak() = %d, want %d", i+1, streak, i+1)
		}
		if !almostEqual(score.StreakBonus, wantBonus[i]) {
			t.Errorf("day %d: StreakBonus = %v, want %v", i+1, score.StreakBonus, wantBonus[i])
		}
		if !almostEqual(score.TotalScore, 96+wantBonus[i]) {
			t.Errorf("day %d: TotalScore = %v, want %v", i+1, score.TotalScore, 96+wantBonus[i])
		}

		day = day.Next()
	}
}

// =============================================================================
// Reconciler tests (Scenario D and edge cases)
// =============================================================================

func TestReconcile_BreakCascades(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day1 := core.Day("2025-03-10")
	day2 := day1.Next()
	day3 := day2.Next()

	// Three perfect days: streaks 1, 2, 3.
	var day1Task *core.Task
	for i, day := range []core.Day{day1, day2, day3} {
		task := seedPerfectDay(t, db, day)
		if i == 0 {
			day1Task = task
		}
		if _, err := e.ComposeDay(ctx, day); err != nil {
			t.Fatalf("compose %s: %v", day, err)
		}
	}

	// Retroactively un-complete day 1's task: base drops to 51.
	tasks := storage.NewTaskStore(db)
	day1Task.IsDone = false
	if err := tasks.Update(day1Task); err != nil {
		t.Fatalf("update task: %v", err)
	}

	score, err := e.ComposeAndReconcile(ctx, day1)
	if err != nil {
		t.Fatalf("ComposeAndReconcile() error = %v", err)
	}

	if !almostEqual(score.StreakBonus, 0) {
		t.Errorf("day1 StreakBonus = %v, want 0", score.StreakBonus)
	}
	if !almostEqual(score.TotalScore, 51) {
		t.Errorf("day1 TotalScore = %v, want 51", score.TotalScore)
	}

	// Day 2 becomes the new streak start, day 3 follows.
	streaks := storage.NewStreakStore(db)
	wantStreaks := map[core.Day]int{day1: 0, day2: 1, day3: 2}
	for day, want := range wantStreaks {
		got, err := streaks.DaysFor(day)
		if err != nil {
			t.Fatalf("DaysFor(%s) error = %v", day, err)
		}
		if got != want {
			t.Errorf("streak[%s] = %d, want %d", day, got, want)
		}
	}

	current, _ := e.CurrentStreak()
	if current != 2 {
		t.Errorf("CurrentStreak() = %d, want 2", current)
	}

	// Day 3's bonus must have been rewritten for its new streak of 2.
	scores := storage.NewScoreStore(db)
	day3Score, err := scores.Get(day3)
	if err != nil {
		t.Fatalf("Get(day3) error = %v", err)
	}
	if !almostEqual(day3Score.StreakBonus, 1.0) {
		t.Errorf("day3 StreakBonus = %v, want 1.0", day3Score.StreakBonus)
	}
	if !almostEqual(day3Score.TotalScore, 97.0) {
		t.Errorf("day3 TotalScore = %v, want 97.0", day3Score.TotalScore)
	}
}

func TestReconcile_RestDayToggleRestoresChain(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day1 := core.Day("2025-03-10")
	day2 := day1.Next()
	day3 := day2.Next()

	// Day 1 and day 3 qualify; day 2 is an empty gap day.
	seedPerfectDay(t, db, day1)
	seedPerfectDay(t, db, day3)
	for _, day := range []core.Day{day1, day2, day3} {
		if _, err := e.ComposeDay(ctx, day); err != nil {
			t.Fatalf("compose %s: %v", day, err)
		}
	}

	// The gap broke the chain: day 3 restarted at 1.
	current, _ := e.CurrentStreak()
	if current != 1 {
		t.Fatalf("CurrentStreak() = %d, want 1 before toggle", current)
	}

	// Flag day 2 as a rest day and recompose + reconcile.
	scores := storage.NewScoreStore(db)
	if err := scores.SetRestDay(day2, true); err != nil {
		t.Fatalf("SetRestDay() error = %v", err)
	}
	if _, err := e.ComposeAndReconcile(ctx, day2); err != nil {
		t.Fatalf("ComposeAndReconcile() error = %v", err)
	}

	// Day 2 now carries day 1's streak, and day 3 extends it.
	streaks := storage.NewStreakStore(db)
	wantStreaks := map[core.Day]int{day1: 1, day2: 1, day3: 2}
	for day, want := range wantStreaks {
		got, _ := streaks.DaysFor(day)
		if got != want {
			t.Errorf("streak[%s] = %d, want %d", day, got, want)
		}
	}
}

func TestReconcile_SynthesizesMissingDays(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day1 := core.Day("2025-03-10")
	day2 := day1.Next()
	day3 := day2.Next()

	// Day 1 and day 3 are scored; day 2 never was.
	seedPerfectDay(t, db, day1)
	seedPerfectDay(t, db, day3)
	if _, err := e.ComposeDay(ctx, day1); err != nil {
		t.Fatalf("compose day1: %v", err)
	}
	if _, err := e.ComposeDay(ctx, day3); err != nil {
		t.Fatalf("compose day3: %v", err)
	}

	if err := e.ReconcileFrom(ctx, day2); err != nil {
		t.Fatalf("ReconcileFrom() error = %v", err)
	}

	// Day 2 must now have a real record, not a silent skip.
	scores := storage.NewScoreStore(db)
	day2Score, err := scores.Get(day2)
	if err != nil {
		t.Fatalf("day2 should have been synthesized: %v", err)
	}
	if !almostEqual(day2Score.TotalScore, 0) {
		t.Errorf("day2 TotalScore = %v, want 0", day2Score.TotalScore)
	}

	streaks := storage.NewStreakStore(db)
	wantStreaks := map[core.Day]int{day1: 1, day2: 0, day3: 1}
	for day, want := range wantStreaks {
		got, _ := streaks.DaysFor(day)
		if got != want {
			t.Errorf("streak[%s] = %d, want %d", day, got, want)
		}
	}
}

func TestReconcile_NoForwardHistory(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day := core.Day("2025-03-10")

	seedPerfectDay(t, db, day)
	if _, err := e.ComposeDay(ctx, day); err != nil {
		t.Fatalf("compose: %v", err)
	}

	// Starting past the last recorded day is a no-op.
	if err := e.ReconcileFrom(ctx, day.Next()); err != nil {
		t.Fatalf("ReconcileFrom() past history error = %v", err)
	}

	scores := storage.NewScoreStore(db)
	count, _ := scores.Count()
	if count != 1 {
		t.Errorf("score count = %d, want 1 (no records should be created)", count)
	}
}

func TestReconcile_EmptyDatabase(t *testing.T) {
	e, _ := testEngine(t)

	if err := e.ReconcileFrom(context.Background(), "2025-03-10"); err != nil {
		t.Fatalf("ReconcileFrom() on empty database error = %v", err)
	}
}

func TestReconcile_FixedPoint(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()
	day1 := core.Day("2025-03-10")

	day := day1
	for i := 0; i < 5; i++ {
		seedPerfectDay(t, db, day)
		if _, err := e.ComposeDay(ctx, day); err != nil {
			t.Fatalf("compose %s: %v", day, err)
		}
		day = day.Next()
	}

	snapshot := func() []core.DailyScore {
		scores := storage.NewScoreStore(db)
		all, err := scores.GetRange("2025-03-10", "2025-03-14")
		if err != nil {
			t.Fatalf("GetRange() error = %v", err)
		}
		out := make([]core.DailyScore, len(all))
		for i, s := range all {
			out[i] = *s
		}
		return out
	}

	if err := e.ReconcileFrom(ctx, day1); err != nil {
		t.Fatalf("first ReconcileFrom() error = %v", err)
	}
	first := snapshot()

	if err := e.ReconcileFrom(ctx, day1); err != nil {
		t.Fatalf("second ReconcileFrom() error = %v", err)
	}
	second := snapshot()

	for i := range first {
		a, b := first[i], second[i]
		if a.StreakBonus != b.StreakBonus || a.TotalScore != b.TotalScore ||
			a.HabitComponent != b.HabitComponent || a.TaskComponent != b.TaskComponent ||
			a.TimeComponent != b.TimeComponent {
			t.Errorf("%s: reconciliation is not a fixed point: %+v vs %+v", a.Day, a, b)
		}
	}
}

func TestCurrentStreak_Empty(t *testing.T) {
	e, _ := testEngine(t)

	streak, err := e.CurrentStreak()
	if err != nil {
		t.Fatalf("CurrentStreak() error = %v", err)
	}
	if streak != 0 {
		t.Errorf("CurrentStreak() = %d, want 0 with no history", streak)
	}
}
