package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// OpType classifies a queued offline mutation.
type OpType string

const (
	OpHabitCompletion OpType = "HABIT_COMPLETION"
	OpCustomHabit     OpType = "CUSTOM_HABIT"
	OpProgressUpdate  OpType = "PROGRESS_UPDATE"
	OpHabitDeletion   OpType = "HABIT_DELETION"
	OpUserUpdate      OpType = "USER_UPDATE"
)

// ErrUnknownOpType is returned when unwrapping an envelope whose type is not
// one of the five operation kinds.
var ErrUnknownOpType = errors.New("unknown operation type")

// Priority classifies queue items for drain ordering. Higher priorities are
// replayed first; insertion order breaks ties.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank maps a priority to a sortable weight. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// CompletionOp marks a habit complete for a day.
type CompletionOp struct {
	UserID  string `json:"userId"`
	HabitID string `json:"habitId"`
	Date    string `json:"date"` // YYYY-MM-DD
}

// CustomHabitOp creates a user-authored habit.
type CustomHabitOp struct {
	Habit Habit `json:"habit"`
}

// ProgressUpdateOp replaces a full progress row (used by imports/repairs).
type ProgressUpdateOp struct {
	Progress Progress `json:"progress"`
}

// HabitDeletionOp removes a habit and its progress row.
type HabitDeletionOp struct {
	UserID  string `json:"userId"`
	HabitID string `json:"habitId"`
}

// UserUpdateOp persists changed user settings/preferences.
type UserUpdateOp struct {
	User User `json:"user"`
}

// Envelope is the wire and storage form of a queued operation: a type tag
// plus the JSON payload for that type. Use Wrap to build one and Unwrap to
// get the typed payload back, so the replay dispatcher can switch
// exhaustively over the five kinds.
type Envelope struct {
	Type    OpType          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Wrap serializes v into an Envelope tagged with t.
func Wrap[T any](t OpType, v T) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Payload: b}, nil
}

// Unwrap decodes the payload into the concrete type for the envelope's tag.
func (e Envelope) Unwrap() (any, error) {
	switch e.Type {
	case OpHabitCompletion:
		var v CompletionOp
		return v, json.Unmarshal(e.Payload, &v)
	case OpCustomHabit:
		var v CustomHabitOp
		return v, json.Unmarshal(e.Payload, &v)
	case OpProgressUpdate:
		var v ProgressUpdateOp
		return v, json.Unmarshal(e.Payload, &v)
	case OpHabitDeletion:
		var v HabitDeletionOp
		return v, json.Unmarshal(e.Payload, &v)
	case OpUserUpdate:
		var v UserUpdateOp
		return v, json.Unmarshal(e.Payload, &v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOpType, e.Type)
	}
}

// QueueItem is one buffered offline mutation. Seq is the storage-assigned
// insertion counter used as the stable tie-break within a priority class.
type QueueItem struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Priority   Priority  `json:"priority"`
	Envelope   Envelope  `json:"envelope"`
	RetryCount int       `json:"retryCount"`
	LastError  string    `json:"lastError,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Seq        int64     `json:"-"`
}
