package scoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/cadencehq/cadence/internal/core"
	"github.com/cadencehq/cadence/internal/logging"
	"github.com/cadencehq/cadence/internal/storage"
)

// Engine composes daily scores and reconciles the forward streak chain.
//
// Every entry point takes the engine mutex: recalculations for
// overlapping or adjacent dates must never interleave, because each
// day's streak depends on the stored streak of the day before. Single
// user, single timeline, one lock.
type Engine struct {
	db       *storage.DB
	habits   *storage.HabitStore
	tasks    *storage.TaskStore
	timeLogs *storage.TimeLogStore
	scores   *storage.ScoreStore
	streaks  *storage.StreakStore

	mu  sync.Mutex
	log *logging.Logger
}

// New creates a scoring engine over the given database
func New(db *storage.DB) *Engine {
	return &Engine{
		db:       db,
		habits:   storage.NewHabitStore(db),
		tasks:    storage.NewTaskStore(db),
		timeLogs: storage.NewTimeLogStore(db),
		scores:   storage.NewScoreStore(db),
		streaks:  storage.NewStreakStore(db),
		log:      logging.WithField("component", "scoring"),
	}
}

// ComposeDay recomputes the score record for a day from its source data
// and persists it together with the day's streak record. Idempotent:
// identical inputs produce an identical record.
func (e *Engine) ComposeDay(ctx context.Context, day core.Day) (*core.DailyScore, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.composeDay(ctx, day)
}

// ComposeAndReconcile recomputes a day and then walks the forward chain
// from the day after it, under a single hold of the lock. This is the
// path for retroactive changes: undo, delete, or rest-day toggle on a
// date that already has downstream history.
func (e *Engine) ComposeAndReconcile(ctx context.Context, day core.Day) (*core.DailyScore, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	score, err := e.composeDay(ctx, day)
	if err != nil {
		return nil, err
	}

	if err := e.reconcileFrom(ctx, day.Next()); err != nil {
		return nil, err
	}

	return score, nil
}

// ReconcileFrom walks the streak chain forward from startDay to the
// latest recorded day, recomputing each day's streak and bonus.
func (e *Engine) ReconcileFrom(ctx context.Context, startDay core.Day) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.reconcileFrom(ctx, startDay)
}

// CurrentStreak returns the most recent streak value, 0 with no history.
func (e *Engine) CurrentStreak() (int, error) {
	streak, err := e.streaks.Latest()
	if errors.Is(err, core.ErrStreakNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return streak.CurrentStreakDays, nil
}

// composeDay is ComposeDay without the lock, shared with the reconciler
// for days that have never been scored.
func (e *Engine) composeDay(_ context.Context, day core.Day) (*core.DailyScore, error) {
	// Rest-day flag and notes survive recomputation.
	isRestDay := false
	notes := ""

	existing, err := e.scores.Get(day)
	if err != nil && !errors.Is(err, core.ErrScoreNotFound) {
		return nil, fmt.Errorf("load score for %s: %w", day, err)
	}
	if existing != nil {
		isRestDay = existing.IsRestDay
		notes = existing.Notes
	}

	m, err := e.collectMetrics(day)
	if err != nil {
		return nil, fmt.Errorf("metrics for %s: %w", day, err)
	}

	habitComponent := m.habitRaw * 100
	taskComponent := m.taskRaw * 100
	timeComponent := m.timeRaw
	base := BaseScore(habitComponent, taskComponent, timeComponent)

	prevStreak, err := e.streaks.DaysFor(day.Prev())
	if err != nil {
		return nil, fmt.Errorf("prior streak for %s: %w", day, err)
	}

	tr := NextStreak(prevStreak, base, isRestDay)
	bonus := StreakBonus(tr)

	score := &core.DailyScore{
		Day:            day,
		HabitComponent: habitComponent,
		TaskComponent:  taskComponent,
		TimeComponent:  timeComponent,
		StreakBonus:    bonus,
		TotalScore:     base + bonus,
		IsRestDay:      isRestDay,
		Notes:          notes,
	}
	if existing != nil {
		score.CreatedAt = existing.CreatedAt
	}

	streak := &core.Streak{Day: day, CurrentStreakDays: tr.NewStreak}

	// Both records land or neither does.
	err = e.db.Transaction(func(tx *sql.Tx) error {
		if err := e.scores.UpsertTx(tx, score); err != nil {
			return err
		}
		return e.streaks.UpsertTx(tx, streak)
	})
	if err != nil {
		return nil, fmt.Errorf("persist score for %s: %w", day, err)
	}

	e.log.Debug("composed %s: base=%.2f streak=%d bonus=%.2f", day, base, tr.NewStreak, bonus)

	return score, nil
}

// reconcileFrom is ReconcileFrom without the lock.
//
// The walk is strictly sequential and never stops early: even when a
// day's own streak and bonus are unchanged, a later day may still
// depend on a streak value this pass is about to correct. On failure,
// days already processed stay committed and the error names how far the
// walk got; re-invoking from that day resumes the chain.
func (e *Engine) reconcileFrom(ctx context.Context, startDay core.Day) error {
	last, ok, err := e.lastRecordedDay()
	if err != nil {
		return fmt.Errorf("find last recorded day: %w", err)
	}
	if !ok || startDay.After(last) {
		// No forward history to fix.
		return nil
	}

	e.log.Debug("reconciling %s..%s", startDay, last)

	for day := startDay; !day.After(last); day = day.Next() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reconcile stopped before %s: %w", day, err)
		}

		if err := e.reconcileDay(ctx, day); err != nil {
			e.log.Error("reconcile stopped at %s: %v", day, err)
			return fmt.Errorf("reconcile %s: %w", day, err)
		}
	}

	return nil
}

// reconcileDay recomputes one day's streak and bonus from its stored
// base components and the actual streak of the prior day.
func (e *Engine) reconcileDay(ctx context.Context, day core.Day) error {
	stored, err := e.scores.Get(day)
	if errors.Is(err, core.ErrScoreNotFound) {
		// Never scored: synthesize via the full composer, which reads
		// whatever streak is now stored for the day before.
		_, err := e.composeDay(ctx, day)
		return err
	}
	if err != nil {
		return err
	}

	// Recover the base from stored components. Reconciliation
	// propagates streaks; it does not re-measure the day.
	base := BaseScore(stored.HabitComponent, stored.TaskComponent, stored.TimeComponent)

	prevStreak, err := e.streaks.DaysFor(day.Prev())
	if err != nil {
		return err
	}

	tr := NextStreak(prevStreak, base, stored.IsRestDay)
	newBonus := StreakBonus(tr)

	return e.db.Transaction(func(tx *sql.Tx) error {
		if err := e.streaks.UpsertTx(tx, &core.Streak{Day: day, CurrentStreakDays: tr.NewStreak}); err != nil {
			return err
		}
		if newBonus != stored.StreakBonus {
			return e.scores.UpdateBonusTx(tx, day, newBonus, base+newBonus)
		}
		return nil
	})
}

// lastRecordedDay returns the maximum day across the score and streak
// tables. The two are written together, but a partially failed run may
// leave one ahead of the other.
func (e *Engine) lastRecordedDay() (core.Day, bool, error) {
	scoreMax, scoreOK, err := e.scores.MaxDay()
	if err != nil {
		return "", false, err
	}
	streakMax, streakOK, err := e.streaks.MaxDay()
	if err != nil {
		return "", false, err
	}

	switch {
	case scoreOK && streakOK:
		if streakMax.After(scoreMax) {
			return streakMax, true, nil
		}
		return scoreMax, true, nil
	case scoreOK:
		return scoreMax, true, nil
	case streakOK:
		return streakMax, true, nil
	default:
		return "", false, nil
	}
}
