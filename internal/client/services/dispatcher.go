package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sciencehabits/sciencehabits/internal/api"
	"github.com/sciencehabits/sciencehabits/internal/client/client"
	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/logging"
)

// TokenSource supplies the current access token for remote pushes. An empty
// token means "not logged in" and skips the push.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Dispatcher replays buffered operations: each item is applied to the local
// ledger first (the local database is authoritative) and then pushed to the
// companion server when a session exists. Both steps are idempotent, so a
// failed item can safely be retried on the next drain.
type Dispatcher struct {
	ledger LedgerService
	habits HabitService
	users  UserService
	client client.Client
	tokens TokenSource
	log    logging.Logger

	// in-drain push retry policy; zero backoff disables retries
	backoff     time.Duration
	maxAttempts int
}

func NewDispatcher(
	ledger LedgerService,
	habits HabitService,
	users UserService,
	cl client.Client,
	tokens TokenSource,
	log logging.Logger,
	backoff time.Duration,
	maxAttempts int,
) *Dispatcher {
	return &Dispatcher{
		ledger:      ledger,
		habits:      habits,
		users:       users,
		client:      cl,
		tokens:      tokens,
		log:         log.With("component", "dispatcher"),
		backoff:     backoff,
		maxAttempts: maxAttempts,
	}
}

// Apply implements Applier.
func (d *Dispatcher) Apply(ctx context.Context, item models.QueueItem) error {
	op, err := item.Envelope.Unwrap()
	if err != nil {
		return err
	}

	if err := d.applyLocal(ctx, op); err != nil {
		return fmt.Errorf("local apply: %w", err)
	}

	return d.pushRemote(ctx, item)
}

func (d *Dispatcher) applyLocal(ctx context.Context, op any) error {
	switch v := op.(type) {
	case models.CompletionOp:
		_, err := d.ledger.MarkComplete(ctx, v.UserID, v.HabitID, v.Date)
		return err
	case models.CustomHabitOp:
		return d.habits.Put(ctx, &v.Habit)
	case models.ProgressUpdateOp:
		_, err := d.ledger.Put(ctx, &v.Progress)
		return err
	case models.HabitDeletionOp:
		// a replayed delete finds the habit already gone; that still has
		// to reach the server, so it is not an error here
		if err := d.habits.Delete(ctx, v.UserID, v.HabitID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return nil
	case models.UserUpdateOp:
		return d.users.Put(ctx, &v.User)
	default:
		return fmt.Errorf("%w: %T", models.ErrUnknownOpType, op)
	}
}

func (d *Dispatcher) pushRemote(ctx context.Context, item models.QueueItem) error {
	if d.tokens == nil || d.client == nil {
		return nil
	}
	token, err := d.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("resolving session: %w", err)
	}
	if token == "" {
		d.log.Debug(ctx, "no session, skipping remote push", "id", item.ID)
		return nil
	}

	ops := []api.Operation{{
		ID:      item.ID,
		Type:    string(item.Envelope.Type),
		Payload: item.Envelope.Payload,
	}}

	push := func(ctx context.Context) error {
		results, err := d.client.PushOps(ctx, token, ops)
		if err != nil {
			if errors.Is(err, client.ErrUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		for _, r := range results {
			if !r.OK {
				return fmt.Errorf("server rejected operation %s: %s", r.ID, r.Error)
			}
		}
		return nil
	}

	if d.backoff <= 0 {
		return push(ctx)
	}

	b := retry.NewExponential(d.backoff)
	if d.maxAttempts > 0 {
		b = retry.WithMaxRetries(uint64(d.maxAttempts), b)
	}
	return retry.Do(ctx, b, push)
}
