package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/queue"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/logging"
)

// Applier replays one buffered operation. Implementations must be
// idempotent: a drain may re-apply an item whose previous attempt failed
// half-way.
type Applier interface {
	Apply(ctx context.Context, item models.QueueItem) error
}

// DrainSummary reports the outcome of one queue drain.
type DrainSummary struct {
	Processed int
	Failed    int
	Skipped   int
	Errors    []string
}

type QueueService interface {
	// Enqueue buffers an operation and returns its id.
	Enqueue(ctx context.Context, userID string, pr models.Priority, env models.Envelope) (string, error)
	// Pending returns the number of buffered operations.
	Pending(ctx context.Context) (int64, error)
	// List returns the buffered operations in replay order.
	List(ctx context.Context) ([]models.QueueItem, error)
	// Drain replays every buffered operation in priority order. Items that
	// fail stay queued with an incremented retry count; items past the
	// attempt cap are skipped (they stay queued until cleared explicitly).
	// Only one drain runs at a time; a concurrent call returns
	// common.ErrorDrainInProgress.
	Drain(ctx context.Context, applier Applier) (*DrainSummary, error)
	// Clear discards every buffered operation.
	Clear(ctx context.Context) error
}

type queueService struct {
	repo        queue.Repository
	bus         *Bus
	log         logging.Logger
	maxAttempts int
	now         func() time.Time
	draining    atomic.Bool
}

// NewQueueService wires the offline buffer. maxAttempts caps replay
// attempts per item; 0 means retry forever.
func NewQueueService(repo queue.Repository, bus *Bus, log logging.Logger, maxAttempts int) QueueService {
	return &queueService{
		repo:        repo,
		bus:         bus,
		log:         log.With("component", "queue"),
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *queueService) Enqueue(ctx context.Context, userID string, pr models.Priority, env models.Envelope) (string, error) {
	item := &models.QueueItem{
		ID:         uuid.NewString(),
		UserID:     userID,
		Priority:   pr,
		Envelope:   env,
		EnqueuedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		return "", fmt.Errorf("enqueueing operation: %w", err)
	}

	s.log.Debug(ctx, "operation enqueued", "id", item.ID, "type", env.Type, "priority", pr)
	s.publishPending(ctx)
	return item.ID, nil
}

func (s *queueService) Pending(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *queueService) List(ctx context.Context) ([]models.QueueItem, error) {
	return s.repo.ListOrdered(ctx)
}

func (s *queueService) Drain(ctx context.Context, applier Applier) (*DrainSummary, error) {
	if !s.draining.CompareAndSwap(false, true) {
		return nil, common.ErrorDrainInProgress
	}
	defer s.draining.Store(false)

	items, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing queue: %w", err)
	}
	if len(items) == 0 {
		return &DrainSummary{}, nil
	}

	s.bus.Publish(Event{Kind: EventSyncStarted})
	s.log.Info(ctx, "drain started", "pending", len(items))

	summary := &DrainSummary{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if s.maxAttempts > 0 && item.RetryCount >= s.maxAttempts {
			s.log.Warn(ctx, "skipping operation past attempt cap",
				"id", item.ID, "type", item.Envelope.Type, "attempts", item.RetryCount)
			summary.Skipped++
			continue
		}

		if err := applier.Apply(ctx, item); err != nil {
			s.log.Warn(ctx, "replay failed", "id", item.ID, "type", item.Envelope.Type, "error", err)
			if merr := s.repo.MarkFailed(ctx, item.ID, err.Error()); merr != nil {
				return summary, fmt.Errorf("marking item %s failed: %w", item.ID, merr)
			}
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", item.ID, err))
			continue
		}

		if err := s.repo.Delete(ctx, item.ID); err != nil {
			return summary, fmt.Errorf("removing replayed item %s: %w", item.ID, err)
		}
		summary.Processed++
	}

	s.publishPending(ctx)
	s.bus.Publish(Event{Kind: EventSyncCompleted, Processed: summary.Processed, Failed: summary.Failed})
	s.log.Info(ctx, "drain finished",
		"processed", summary.Processed, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary, nil
}

func (s *queueService) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clearing queue: %w", err)
	}
	s.publishPending(ctx)
	return nil
}

func (s *queueService) publishPending(ctx context.Context) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		s.log.Warn(ctx, "counting pending operations", "error", err)
		return
	}
	s.bus.Publish(Event{Kind: EventPendingChanged, Pending: n})
}
