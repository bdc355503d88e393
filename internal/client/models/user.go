// Package models defines the client-side domain types: users, habits,
// progress ledger rows, research articles, and offline queue operations.
package models

import "time"

// Preferences captures what the user chose during onboarding and can later
// change in settings. Tags feed the habit recommendation filters.
type Preferences struct {
	Goals         []string `json:"goals"`
	LifestyleTags []string `json:"lifestyleTags"`
	PreferredTime string   `json:"preferredTime"`
	DailyMinutes  int      `json:"dailyMinutes"`
}

// User is created once at onboarding completion and mutated by settings
// changes. It is never deleted in normal flow; a reset clears it.
type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Language     string      `json:"language"`
	IsPremium    bool        `json:"isPremium"`
	TrialEndDate string      `json:"trialEndDate,omitempty"` // YYYY-MM-DD, empty when no trial
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
