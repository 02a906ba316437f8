// Cadence CLI - command-line capture and score queries.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence/internal/config"
	"github.com/cadencehq/cadence/internal/core"
	"github.com/cadencehq/cadence/internal/scoring"
	"github.com/cadencehq/cadence/internal/storage"
)

var (
	dataDir string

	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cad",
		Short: "Cadence - daily score and streak tracking",
		Long: `Cadence tracks your habits, tasks, and time against a single
daily score, and keeps a streak going for every day you clear it.

All data stays in a local SQLite database.`,
	}

	// Global flags
	defaultDataDir := config.Default().DataDir
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir, "data directory")

	// Commands
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(todayCmd())
	rootCmd.AddCommand(habitCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(restCmd())
	rootCmd.AddCommand(streakCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dbPath() string {
	return filepath.Join(dataDir, "cadence.db")
}

// openDB opens an existing database, failing if 'cad init' never ran
func openDB() (*storage.DB, error) {
	if _, err := os.Stat(dbPath()); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: run 'cad init' first", core.ErrDatabaseNotFound)
	}

	db, err := storage.Open(storage.Config{Path: dbPath()})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// dayFlag resolves the shared --day flag, defaulting to today
func dayFlag(cmd *cobra.Command) (core.Day, error) {
	raw, _ := cmd.Flags().GetString("day")
	if raw == "" {
		return core.Today(), nil
	}
	return core.ParseDay(raw)
}

// recalc recomputes a day and cascades through any later recorded days.
func recalc(db *storage.DB, day core.Day) (*core.DailyScore, error) {
	return scoring.New(db).ComposeAndReconcile(context.Background(), day)
}

// initCmd creates the database
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the Cadence database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(dbPath()); err == nil {
				fmt.Println("⚠️  Cadence is already initialized!")
				fmt.Printf("   Data directory: %s\n", dataDir)
				return nil
			}

			fmt.Println("⏳ Creating database...")
			db, err := storage.Open(storage.Config{Path: dbPath()})
			if err != nil {
				return fmt.Errorf("failed to create database: %w", err)
			}
			defer db.Close()

			fmt.Println("⏳ Setting up schema...")
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Println("\n✅ Cadence initialized!")
			fmt.Printf("   Data directory: %s\n", dataDir)
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("   cad habit add \"Morning run\" --weight 0.5")
			fmt.Println("   cad task add \"Finish report\"")
			fmt.Println("   cad log 90 --kind productive")
			fmt.Println("   cad today")

			return nil
		},
	}
}

// statusCmd shows database status and today's numbers
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show Cadence status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(dbPath()); os.IsNotExist(err) {
				fmt.Println("❌ Cadence is not initialized.")
				fmt.Println("   Run 'cad init' to get started.")
				return nil
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			habitCount, _ := storage.NewHabitStore(db).Count()
			taskCount, _ := storage.NewTaskStore(db).Count()
			scoreCount, _ := storage.NewScoreStore(db).Count()
			streak, _ := scoring.New(db).CurrentStreak()

			fmt.Println("📊 Cadence status")
			fmt.Printf("   Data directory: %s\n", dataDir)
			fmt.Printf("   Habits:      %d\n", habitCount)
			fmt.Printf("   Tasks:       %d\n", taskCount)
			fmt.Printf("   Scored days: %d\n", scoreCount)
			fmt.Printf("   Streak:      %d days\n", streak)

			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cad version %s\n", version)
		},
	}
}

// todayCmd recomputes and prints today's score
func todayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's score breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			day, err := dayFlag(cmd)
			if err != nil {
				return err
			}

			score, err := scoring.New(db).ComposeDay(context.Background(), day)
			if err != nil {
				return err
			}

			printScore(score)
			return nil
		},
	}
	cmd.Flags().String("day", "", "day to show (YYYY-MM-DD, default today)")
	return cmd
}

func printScore(score *core.DailyScore) {
	fmt.Printf("📅 %s", score.Day)
	if score.IsRestDay {
		fmt.Print("  (rest day)")
	}
	fmt.Println()
	fmt.Printf("   Habits:  %7.2f\n", score.HabitComponent)
	fmt.Printf("   Tasks:   %7.2f\n", score.TaskComponent)
	fmt.Printf("   Time:    %7.2f\n", score.TimeComponent)
	fmt.Printf("   Bonus:   %7.2f\n", score.StreakBonus)
	fmt.Printf("   Total:   %7.2f\n", score.TotalScore)
	if score.Notes != "" {
		fmt.Printf("   Notes:   %s\n", score.Notes)
	}
}

// habitCmd groups habit subcommands
func habitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Manage habits",
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a habit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			weight, _ := cmd.Flags().GetFloat64("weight")
			if weight <= 0 {
				return fmt.Errorf("weight must be positive")
			}

			habit := &core.Habit{Name: strings.Join(args, " "), Weight: weight}
			if err := storage.NewHabitStore(db).Create(habit); err != nil {
				return err
			}

			fmt.Printf("✅ Added habit %q (weight %.2f)\n", habit.Name, habit.Weight)
			return nil
		},
	}
	addCmd.Flags().Float64("weight", 1.0, "points earned per completion")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List habits and today's check-ins",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			store := storage.NewHabitStore(db)
			habits, err := store.GetAll(false)
			if err != nil {
				return err
			}
			if len(habits) == 0 {
				fmt.Println("No habits yet. Add one with 'cad habit add'.")
				return nil
			}

			completions, err := store.CompletionsForDay(core.Today())
			if err != nil {
				return err
			}
			doneToday := make(map[core.HabitID]bool, len(completions))
			for _, c := range completions {
				doneToday[c.HabitID] = true
			}

			for _, h := range habits {
				mark := "  "
				if doneToday[h.ID] {
					mark = "✓ "
				}
				fmt.Printf("%s%-30s  weight %.2f  [%s]\n", mark, h.Name, h.Weight, h.ID)
			}
			return nil
		},
	}

	doneCmd := &cobra.Command{
		Use:   "done <habit-id>",
		Short: "Check off a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			day, err := dayFlag(cmd)
			if err != nil {
				return err
			}

			if _, err := storage.NewHabitStore(db).Complete(core.HabitID(args[0]), day); err != nil {
				return err
			}

			score, err := scoring.New(db).ComposeDay(context.Background(), day)
			if err != nil {
				return err
			}

			fmt.Printf("✅ Checked off for %s (total %.2f)\n", day, score.TotalScore)
			return nil
		},
	}
	doneCmd.Flags().String("day", "", "day of the check-in (default today)")

	undoneCmd := &cobra.Command{
		Use:   "undone <habit-id>",
		Short: "Undo a habit check-in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			day, err := dayFlag(cmd)
			if err != nil {
				return err
			}

			if err := storage.NewHabitStore(db).Uncomplete(core.HabitID(args[0]), day); err != nil {
				return err
			}

			// Undoing can break a streak that later days depend on.
			score, err := recalc(db, day)
			if err != nil {
				return err
			}

			fmt.Printf("↩️  Unchecked for %s (total %.2f)\n", day, score.TotalScore)
			return nil
		},
	}
	undoneCmd.Flags().String("day", "", "day of the check-in (default today)")

	cmd.AddCommand(addCmd, listCmd, doneCmd, undoneCmd)
	return cmd
}

// taskCmd groups task subcommands
func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task for a day",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			day, err := dayFlag(cmd)
			if err != nil {
				return err
			}

			task := &core.Task{Title: strings.Join(args, " "), Day: day}
			if err := storage.NewTaskStore(db).Create(task); err != nil {
				return err
			}
			if _, err := scoring.New(db).ComposeDay(context.Background(), day); err != nil {
				return err
			}

			fmt.Printf("✅ Added task %q for %s\n", task.Title, day)
			return nil
		},
	}
	addCmd.Flags().String("day", "", "target day (default today)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a day's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			day, err := dayFlag(cmd)
			if err != nil {
				return err
			}

			tasks, err := storage.NewTaskStore(db).GetForDay(day)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Printf("No tasks for %s.\n", day)
				return nil
			}

			for _, task := range tasks {
				mark := "☐"
				if task.IsDone {
					mark = "☑"
				}
				fmt.Printf("%s %-40s  [%s]\n", mark, task.Title, task.ID)
			}
			return nil
		},
	}
	listCmd.Flags().String("day", "", "day to list (default today)")

	doneCmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			store := storage.NewTaskStore(db)
			task, err := store.GetByID(core.TaskID(args[0]))
			if err != nil {
				return err
			}

			task.IsDone = true
			if err := store.Update(task); err != nil {
				return err
			}

			score, err := recalc(db, task.Day)
			if err != nil {
				return err
			}

			fmt.Printf("✅ Done: %q (total %.2f)\n", task.Title, score.TotalScore)
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd, doneCmd)
	return cmd
}

// logCmd records tracked time
func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <minutes>",
		Short: "Log tracked time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			minutes, err := strconv.Atoi(args[0])
			if err != nil || minutes <= 0 {
				return fmt.Errorf("minutes must be a positive integer")
			}

			kindRaw, _ := cmd.Flags().GetString("kind")
			kind := core.TimeLogKind(kindRaw)
			if kind != core.TimeProductive && kind != core.TimeDistracting {
				return fmt.Errorf("kind must be 'productive' or 'distracting'")
			}

			day, err := dayFlag(cmd)
			if err != nil {
				return err
			}
			note, _ := cmd.Flags().GetString("note")

			entry := &core.TimeLog{Day: day, Kind: kind, Minutes: minutes, Note: note}
			if err := storage.NewTimeLogStore(db).Create(entry); err != nil {
				return err
			}

			score, err := scoring.New(db).ComposeDay(context.Background(), day)
			if err != nil {
				return err
			}

			fmt.Printf("⏱  Logged %dm %s for %s (total %.2f)\n", minutes, kind, day, score.TotalScore)
			return nil
		},
	}
	cmd.Flags().String("kind", "productive", "productive or distracting")
	cmd.Flags().String("day", "", "day of the entry (default today)")
	cmd.Flags().String("note", "", "optional note")
	return cmd
}

// restCmd toggles the rest-day flag
func restCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rest",
		Short: "Mark a day as a rest day",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			day, err := dayFlag(cmd)
			if err != nil {
				return err
			}
			off, _ := cmd.Flags().GetBool("off")

			if err := storage.NewScoreStore(db).SetRestDay(day, !off); err != nil {
				return err
			}

			// The flag changes streak carry-over, so cascade forward.
			score, err := recalc(db, day)
			if err != nil {
				return err
			}

			if score.IsRestDay {
				fmt.Printf("😴 %s marked as a rest day (streak carries over)\n", day)
			} else {
				fmt.Printf("🏃 %s is a regular day again\n", day)
			}
			return nil
		},
	}
	cmd.Flags().String("day", "", "day to flag (default today)")
	cmd.Flags().Bool("off", false, "clear the rest-day flag instead")
	return cmd
}

// streakCmd prints the current streak
func streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the current streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			streak, err := scoring.New(db).CurrentStreak()
			if err != nil {
				return err
			}

			if streak == 0 {
				fmt.Println("No active streak. Clear 60 points today to start one.")
				return nil
			}
			fmt.Printf("🔥 %d day streak\n", streak)
			return nil
		},
	}
}
