package models

import "time"

// FrequencyType selects how often completion is expected and which streak
// definition applies.
type FrequencyType string

const (
	FrequencyDaily    FrequencyType = "daily"
	FrequencyWeekly   FrequencyType = "weekly"
	FrequencyPeriodic FrequencyType = "periodic"
)

// Frequency is the per-habit completion-frequency policy.
//
// For weekly habits, WeeklyTarget is the number of sessions expected per
// calendar week (Monday-based). For periodic habits, IntervalDays is the
// period length counted from the progress row's start date and
// PeriodicTarget the sessions expected per period. Daily habits leave all
// numeric fields zero.
type Frequency struct {
	Type           FrequencyType `json:"type"`
	WeeklyTarget   int           `json:"weeklyTarget,omitempty"`
	IntervalDays   int           `json:"intervalDays,omitempty"`
	PeriodicTarget int           `json:"periodicTarget,omitempty"`
}

// Habit is a trackable activity definition. Catalog habits are shared and
// immutable; custom habits are authored by and owned by a single user.
type Habit struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	TimeMinutes   int       `json:"timeMinutes"`
	Category      string    `json:"category"`
	Difficulty    string    `json:"difficulty"`
	Equipment     string    `json:"equipment"`
	Frequency     Frequency `json:"frequency"`
	GoalTags      []string  `json:"goalTags"`
	LifestyleTags []string  `json:"lifestyleTags"`
	TimeTags      []string  `json:"timeTags"`
	Instructions  string    `json:"instructions"`
	ResearchIDs   []string  `json:"researchIds"`
	IsCustom      bool      `json:"isCustom"`
	UserID        string    `json:"userId,omitempty"` // owner, set only for custom habits
	CreatedAt     time.Time `json:"createdAt"`
}

// ResearchArticle is catalog content served by the companion API and cached
// locally for offline reading.
type ResearchArticle struct {
	ID             string   `json:"id"`
	Language       string   `json:"language"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	ReadingMinutes int      `json:"readingMinutes"`
	HabitIDs       []string `json:"habitIds"`
}
