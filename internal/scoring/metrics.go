// Package scoring implements the daily score composer and the forward
// streak reconciler.
package scoring

import (
	"sync"

	"github.com/cadencehq/cadence/internal/core"
)

// metrics holds the three raw per-day measurements.
type metrics struct {
	habitRaw float64 // sum of captured completion weights
	taskRaw  float64 // completed/assigned ratio
	timeRaw  float64 // net productive hours * 10
}

// taskRatio computes completed/assigned for a day's tasks.
// With nothing assigned, finished tasks still count one point each;
// an empty day scores 0 rather than a free 1.0.
func taskRatio(assigned, completed int) float64 {
	if assigned == 0 {
		if completed > 0 {
			return float64(completed)
		}
		return 0
	}
	return float64(completed) / float64(assigned)
}

// timeScore converts net productive minutes into points: net hours * 10.
// Distracting time exceeding productive time makes this negative.
func timeScore(productiveMin, distractingMin int) float64 {
	return float64(productiveMin-distractingMin) / 60.0 * 10.0
}

// collectMetrics runs the three metric reads for a day concurrently.
// They are mutually independent; the first error wins.
func (e *Engine) collectMetrics(day core.Day) (metrics, error) {
	var m metrics
	var errs [3]error
	var wg sync.WaitGroup

	wg.Add(3)

	go func() {
		defer wg.Done()
		m.habitRaw, errs[0] = e.habits.PointsForDay(day)
	}()

	go func() {
		defer wg.Done()
		assigned, completed, err := e.tasks.CountsForDay(day)
		if err != nil {
			errs[1] = err
			return
		}
		m.taskRaw = taskRatio(assigned, completed)
	}()

	go func() {
		defer wg.Done()
		productive, distracting, err := e.timeLogs.MinutesForDay(day)
		if err != nil {
			errs[2] = err
			return
		}
		m.timeRaw = timeScore(productive, distracting)
	}()

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return metrics{}, err
		}
	}

	return m, nil
}
