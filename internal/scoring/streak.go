package scoring

import (
	"math"
)

// Component weights and the streak qualification threshold.
const (
	HabitWeight = 0.45
	TaskWeight  = 0.45
	TimeWeight  = 0.10

	// StreakThreshold is the base score at which a day counts toward
	// the streak. Exactly 60.00 qualifies.
	StreakThreshold = 60.0
)

// BaseScore combines the scaled components into the weighted base,
// excluding any streak bonus.
func BaseScore(habitComponent, taskComponent, timeComponent float64) float64 {
	return habitComponent*HabitWeight + taskComponent*TaskWeight + timeComponent*TimeWeight
}

// Transition is the outcome of applying the streak rule to one day.
type Transition struct {
	NewStreak  int // streak value stored for the day
	BonusBasis int // streak value the bonus is computed on
}

// NextStreak applies the streak transition rule. The composer and the
// reconciler both go through here; the rule must never diverge between
// the two paths.
//
// A rest day carries the previous streak unchanged and earns the bonus
// on the carried value. A qualifying day extends the streak. Anything
// else resets to zero.
func NextStreak(prevStreak int, baseScore float64, isRestDay bool) Transition {
	if isRestDay {
		return Transition{NewStreak: prevStreak, BonusBasis: prevStreak}
	}
	if baseScore >= StreakThreshold {
		return Transition{NewStreak: prevStreak + 1, BonusBasis: prevStreak + 1}
	}
	return Transition{NewStreak: 0, BonusBasis: 0}
}

// StreakBonus computes the bonus points for a transition. The bonus
// grows logarithmically with the streak, scaled against a full year.
func StreakBonus(tr Transition) float64 {
	if tr.NewStreak <= 0 && tr.BonusBasis <= 0 {
		return 0
	}
	return round2(math.Log2(2 + float64(tr.BonusBasis)/365))
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
