package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/client/client"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/logging"
)

const pingTimeout = 3 * time.Second

// SyncAgent watches server reachability and drains the offline queue on the
// right triggers: the offline→online transition, an optional periodic
// interval, and explicit SyncNow calls.
type SyncAgent struct {
	client  client.Client
	queue   QueueService
	applier Applier
	bus     *Bus
	log     logging.Logger

	checkInterval    time.Duration
	autoSyncInterval time.Duration

	online atomic.Bool
}

func NewSyncAgent(
	cl client.Client,
	queue QueueService,
	applier Applier,
	bus *Bus,
	log logging.Logger,
	checkInterval, autoSyncInterval time.Duration,
) *SyncAgent {
	return &SyncAgent{
		client:           cl,
		queue:            queue,
		applier:          applier,
		bus:              bus,
		log:              log.With("component", "sync-agent"),
		checkInterval:    checkInterval,
		autoSyncInterval: autoSyncInterval,
	}
}

// Online reports the last observed connectivity state.
func (a *SyncAgent) Online() bool {
	return a.online.Load()
}

// SyncNow drains the queue immediately. Offline it returns
// common.ErrorOffline; a drain already in progress is not an error for the
// caller's purposes and is logged instead.
func (a *SyncAgent) SyncNow(ctx context.Context) (*DrainSummary, error) {
	if !a.online.Load() {
		return nil, common.ErrorOffline
	}

	summary, err := a.queue.Drain(ctx, a.applier)
	if errors.Is(err, common.ErrorDrainInProgress) {
		a.log.Info(ctx, "drain already in progress, skipping")
		return &DrainSummary{}, nil
	}
	if err != nil {
		a.bus.Publish(Event{Kind: EventSyncFailed, Err: err})
		return nil, err
	}
	return summary, nil
}

// Run blocks until ctx is cancelled, probing connectivity every
// checkInterval and draining on the configured triggers.
func (a *SyncAgent) Run(ctx context.Context) {
	// items buffered in a previous session should not wait for the next
	// offline→online transition
	if a.probe(ctx) {
		a.drain(ctx, "startup")
	}

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	var autoSync <-chan time.Time
	if a.autoSyncInterval > 0 {
		autoTicker := time.NewTicker(a.autoSyncInterval)
		defer autoTicker.Stop()
		autoSync = autoTicker.C
	}

	for {
		select {
		case <-ticker.C:
			if a.probe(ctx) {
				a.drain(ctx, "online transition")
			}
		case <-autoSync:
			if a.online.Load() {
				a.drain(ctx, "auto-sync interval")
			}
		case <-ctx.Done():
			return
		}
	}
}

// probe pings the server and updates the connectivity state.
// It returns true on an offline→online transition.
func (a *SyncAgent) probe(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.client.Ping(pingCtx)
	cancel()

	next := err == nil
	prev := a.online.Swap(next)
	if prev == next {
		return false
	}

	a.log.Info(ctx, "connectivity changed", "online", next)
	a.bus.Publish(Event{Kind: EventConnectivityChanged, Online: next})
	return next
}

func (a *SyncAgent) drain(ctx context.Context, trigger string) {
	summary, err := a.queue.Drain(ctx, a.applier)
	if errors.Is(err, common.ErrorDrainInProgress) {
		a.log.Debug(ctx, "drain already in progress", "trigger", trigger)
		return
	}
	if err != nil {
		a.log.Error(ctx, "drain failed", "trigger", trigger, "error", err)
		a.bus.Publish(Event{Kind: EventSyncFailed, Err: err})
		return
	}
	if summary.Processed > 0 || summary.Failed > 0 {
		a.log.Info(ctx, "queue drained", "trigger", trigger,
			"processed", summary.Processed, "failed", summary.Failed)
	}
}
