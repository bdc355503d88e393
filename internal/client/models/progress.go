package models

import "fmt"

// PeriodProgress is one week's or one interval's slice of a non-daily
// habit's history: the period start day, the dates completed inside the
// period, the per-period target and whether it was met.
type PeriodProgress struct {
	PeriodStart    string   `json:"periodStart"` // YYYY-MM-DD
	CompletedDates []string `json:"completedDates"`
	Target         int      `json:"target"`
	Achieved       bool     `json:"achieved"`
}

// Progress is the ledger entry: one row per (user, habit) pair keyed by the
// composite id from ProgressID.
//
// Completions holds unique, ascending YYYY-MM-DD dates. CurrentStreak,
// LongestStreak, TotalDays, WeeklyProgress and PeriodicProgress are always a
// pure function of Completions and the habit's frequency policy; they are
// recomputed inside the same transaction that inserts a completion and must
// never drift out of sync with the underlying dates.
type Progress struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	HabitID          string           `json:"habitId"`
	DateStarted      string           `json:"dateStarted"` // YYYY-MM-DD
	Completions      []string         `json:"completions"`
	CurrentStreak    int              `json:"currentStreak"`
	LongestStreak    int              `json:"longestStreak"`
	TotalDays        int              `json:"totalDays"`
	WeeklyProgress   []PeriodProgress `json:"weeklyProgress,omitempty"`
	PeriodicProgress []PeriodProgress `json:"periodicProgress,omitempty"`
}

// ProgressID builds the composite ledger key for a (user, habit) pair.
func ProgressID(userID, habitID string) string {
	return fmt.Sprintf("%s_%s", userID, habitID)
}

// Completed reports whether the given day is present in the completion set.
func (p *Progress) Completed(day string) bool {
	for _, d := range p.Completions {
		if d == day {
			return true
		}
	}
	return false
}
