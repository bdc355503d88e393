package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/sciencehabits/sciencehabits/internal/api"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/dbx"
	"github.com/sciencehabits/sciencehabits/internal/server/models"
	"github.com/sciencehabits/sciencehabits/internal/server/repositories/repomanager"
	syncrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/sync"
)

// Operation type tags, matching what the client queue pushes.
const (
	opHabitCompletion = "HABIT_COMPLETION"
	opCustomHabit     = "CUSTOM_HABIT"
	opProgressUpdate  = "PROGRESS_UPDATE"
	opHabitDeletion   = "HABIT_DELETION"
	opUserUpdate      = "USER_UPDATE"
)

// completionPayload is the slice of a HABIT_COMPLETION payload the server
// needs; the rest of the document stays opaque.
type completionPayload struct {
	HabitID string `json:"habitId"`
	Date    string `json:"date"`
}

type habitPayload struct {
	Habit struct {
		ID string `json:"id"`
	} `json:"habit"`
}

type progressPayload struct {
	Progress struct {
		HabitID string `json:"habitId"`
	} `json:"progress"`
}

type deletionPayload struct {
	HabitID string `json:"habitId"`
}

// SyncService applies pushed client operations to the account's document
// replicas. Documents are opaque JSON except for the completion merge: a
// HABIT_COMPLETION folds its date into the replica's completions list so
// replays and re-pushes stay idempotent. Streak math never runs here; the
// client recomputes it from the dates.
type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	syncRequests   atomic.Int64
	syncOperations atomic.Int64
}

// NewSyncService constructs a SyncService using repositories.
func NewSyncService(db *sql.DB, m repomanager.RepositoryManager) *SyncService {
	return &SyncService{db: db, repomanager: m}
}

// SyncMetrics is a snapshot of the push counters.
type SyncMetrics struct {
	SyncRequests   int64
	SyncOperations int64
}

// Metrics returns a counter snapshot.
func (s *SyncService) Metrics() SyncMetrics {
	return SyncMetrics{
		SyncRequests:   s.syncRequests.Load(),
		SyncOperations: s.syncOperations.Load(),
	}
}

// ApplyOps applies a pushed batch in order for the authenticated account.
// Each operation is applied in its own transaction and reported
// individually; a failed operation does not stop the batch. The result
// slice mirrors the request order.
func (s *SyncService) ApplyOps(ctx context.Context, accountID string, ops []api.Operation) []api.OperationResult {
	s.syncRequests.Add(1)
	s.syncOperations.Add(int64(len(ops)))

	results := make([]api.OperationResult, 0, len(ops))
	for _, op := range ops {
		result := api.OperationResult{ID: op.ID, OK: true}
		if err := s.applyOne(ctx, accountID, op); err != nil {
			result.OK = false
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// ListHabits returns the account's replicated habit documents.
func (s *SyncService) ListHabits(ctx context.Context, accountID string) ([]*models.HabitDoc, error) {
	return s.repomanager.Sync(s.db).ListHabits(ctx, accountID)
}

// ListProgress returns the account's replicated progress documents.
func (s *SyncService) ListProgress(ctx context.Context, accountID string) ([]*models.ProgressDoc, error) {
	return s.repomanager.Sync(s.db).ListProgress(ctx, accountID)
}

func (s *SyncService) applyOne(ctx context.Context, accountID string, op api.Operation) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Sync(tx)
		switch op.Type {
		case opHabitCompletion:
			return s.applyCompletion(ctx, repo, accountID, op.Payload)
		case opCustomHabit:
			var p habitPayload
			if err := json.Unmarshal(op.Payload, &p); err != nil {
				return fmt.Errorf("%w: %v", common.ErrorValidation, err)
			}
			if p.Habit.ID == "" {
				return fmt.Errorf("%w: habit id is required", common.ErrorValidation)
			}
			return repo.UpsertHabit(ctx, p.Habit.ID, accountID, extractObject(op.Payload, "habit"))
		case opProgressUpdate:
			var p progressPayload
			if err := json.Unmarshal(op.Payload, &p); err != nil {
				return fmt.Errorf("%w: %v", common.ErrorValidation, err)
			}
			if p.Progress.HabitID == "" {
				return fmt.Errorf("%w: habit id is required", common.ErrorValidation)
			}
			return repo.UpsertProgress(ctx, accountID, p.Progress.HabitID, extractObject(op.Payload, "progress"))
		case opHabitDeletion:
			var p deletionPayload
			if err := json.Unmarshal(op.Payload, &p); err != nil {
				return fmt.Errorf("%w: %v", common.ErrorValidation, err)
			}
			if p.HabitID == "" {
				return fmt.Errorf("%w: habit id is required", common.ErrorValidation)
			}
			return repo.DeleteHabit(ctx, accountID, p.HabitID)
		case opUserUpdate:
			return repo.UpsertProfile(ctx, accountID, extractObject(op.Payload, "user"))
		default:
			return fmt.Errorf("%w: unknown operation type %q", common.ErrorValidation, op.Type)
		}
	})
}

// applyCompletion merges the completion date into the replica's completions
// list. A date already present is a no-op, which makes queue replays after
// partial drains safe.
func (s *SyncService) applyCompletion(ctx context.Context, repo syncrepo.Repository, accountID string, payload json.RawMessage) error {
	var p completionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if p.HabitID == "" || p.Date == "" {
		return fmt.Errorf("%w: habit id and date are required", common.ErrorValidation)
	}

	doc := map[string]json.RawMessage{}
	existing, err := repo.GetProgress(ctx, accountID, p.HabitID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	if existing != nil {
		if err := json.Unmarshal(existing.Doc, &doc); err != nil {
			return fmt.Errorf("corrupt progress replica for habit %s: %w", p.HabitID, err)
		}
	}

	var completions []string
	if raw, ok := doc["completions"]; ok {
		if err := json.Unmarshal(raw, &completions); err != nil {
			return fmt.Errorf("corrupt completions for habit %s: %w", p.HabitID, err)
		}
	}
	completions = mergeDate(completions, p.Date)

	merged, err := json.Marshal(completions)
	if err != nil {
		return err
	}
	doc["completions"] = merged
	if _, ok := doc["habitId"]; !ok {
		hid, _ := json.Marshal(p.HabitID)
		doc["habitId"] = hid
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return repo.UpsertProgress(ctx, accountID, p.HabitID, body)
}

// mergeDate inserts date into the sorted unique list of YYYY-MM-DD strings.
func mergeDate(dates []string, date string) []string {
	for _, d := range dates {
		if d == date {
			return dates
		}
	}
	dates = append(dates, date)
	sort.Strings(dates)
	return dates
}

// extractObject returns the named object from the payload, or the payload
// itself if the field is missing (older clients pushed the object bare).
func extractObject(payload json.RawMessage, field string) json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err == nil {
		if v, ok := m[field]; ok {
			return v
		}
	}
	return payload
}
