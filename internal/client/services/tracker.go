package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/logging"
)

// Default priority class per operation type. Deletions outrank completions
// so a queued delete for a habit is replayed before completions that would
// recreate its ledger row.
func opPriority(t models.OpType) models.Priority {
	switch t {
	case models.OpHabitDeletion:
		return models.PriorityCritical
	case models.OpHabitCompletion:
		return models.PriorityHigh
	case models.OpCustomHabit, models.OpProgressUpdate:
		return models.PriorityMedium
	case models.OpUserUpdate:
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

// Tracker is the mutation facade the CLI talks to. Every mutation is first
// attempted directly (local ledger write plus remote push when a session
// exists); when the client is offline or the direct attempt fails, the
// operation is buffered in the queue for a later drain.
type Tracker struct {
	agent      *SyncAgent
	queue      QueueService
	dispatcher *Dispatcher
	log        logging.Logger
}

func NewTracker(agent *SyncAgent, queue QueueService, dispatcher *Dispatcher, log logging.Logger) *Tracker {
	return &Tracker{agent: agent, queue: queue, dispatcher: dispatcher, log: log.With("component", "tracker")}
}

// CompleteHabit records a completion for the day (today when date is empty).
func (t *Tracker) CompleteHabit(ctx context.Context, userID, habitID, date string) error {
	return t.submit(ctx, userID, models.OpHabitCompletion, models.CompletionOp{
		UserID: userID, HabitID: habitID, Date: date,
	})
}

// AddCustomHabit stores a user-authored habit locally and on the server.
func (t *Tracker) AddCustomHabit(ctx context.Context, userID string, h models.Habit) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.IsCustom = true
	h.UserID = userID
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	if h.Frequency.Type == "" {
		h.Frequency.Type = models.FrequencyDaily
	}
	return t.submit(ctx, userID, models.OpCustomHabit, models.CustomHabitOp{Habit: h})
}

// RemoveHabit deletes a custom habit together with its ledger row.
func (t *Tracker) RemoveHabit(ctx context.Context, userID, habitID string) error {
	return t.submit(ctx, userID, models.OpHabitDeletion, models.HabitDeletionOp{
		UserID: userID, HabitID: habitID,
	})
}

// UpdateUser persists changed settings.
func (t *Tracker) UpdateUser(ctx context.Context, u models.User) error {
	return t.submit(ctx, u.ID, models.OpUserUpdate, models.UserUpdateOp{User: u})
}

// ImportProgress replaces a full ledger row (imports and repairs).
func (t *Tracker) ImportProgress(ctx context.Context, p models.Progress) error {
	return t.submit(ctx, p.UserID, models.OpProgressUpdate, models.ProgressUpdateOp{Progress: p})
}

func (t *Tracker) submit(ctx context.Context, userID string, opType models.OpType, payload any) error {
	env, err := models.Wrap(opType, payload)
	if err != nil {
		return fmt.Errorf("encoding operation: %w", err)
	}

	if t.agent.Online() {
		item := models.QueueItem{
			ID:       uuid.NewString(),
			UserID:   userID,
			Priority: opPriority(opType),
			Envelope: env,
		}
		err := t.dispatcher.Apply(ctx, item)
		if err == nil {
			return nil
		}
		t.log.Warn(ctx, "direct write failed, buffering operation",
			"type", opType, "error", err)
	}

	id, err := t.queue.Enqueue(ctx, userID, opPriority(opType), env)
	if err != nil {
		return err
	}
	t.log.Debug(ctx, "operation buffered", "id", id, "type", opType)
	return nil
}
