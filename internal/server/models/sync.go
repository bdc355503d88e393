package models

import (
	"encoding/json"
	"time"
)

// ProgressDoc is the server-side replica of one client ledger row. The
// server treats the document as opaque except for the completion merge on
// HABIT_COMPLETION operations; streak math stays on the client.
type ProgressDoc struct {
	UserID    string
	HabitID   string
	Doc       json.RawMessage
	UpdatedAt time.Time
}

// HabitDoc is a replicated user-authored habit.
type HabitDoc struct {
	ID        string
	UserID    string
	Doc       json.RawMessage
	UpdatedAt time.Time
}

// ProfileDoc is the replicated user profile document.
type ProfileDoc struct {
	UserID    string
	Doc       json.RawMessage
	UpdatedAt time.Time
}
