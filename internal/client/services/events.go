// Package services contains the tracker's application services: the
// progress ledger, the offline operation queue, the sync agent, habit and
// user management, authentication, and catalog refresh.
package services

import "sync"

// EventKind labels a tracker notification.
type EventKind string

const (
	EventConnectivityChanged EventKind = "connectivity_changed"
	EventSyncStarted         EventKind = "sync_started"
	EventSyncCompleted       EventKind = "sync_completed"
	EventSyncFailed          EventKind = "sync_failed"
	EventPendingChanged      EventKind = "pending_changed"
)

// Event is a notification published by the queue and sync agent for UI
// consumers (status lines, banners). Only the fields relevant to the kind
// are set.
type Event struct {
	Kind      EventKind
	Online    bool  // ConnectivityChanged
	Processed int   // SyncCompleted
	Failed    int   // SyncCompleted
	Pending   int64 // PendingChanged
	Err       error // SyncFailed
}

// Bus is a typed subscription registry. Handlers run synchronously on the
// publisher's goroutine, so they must be quick and must not publish
// re-entrantly.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers a handler and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers the event to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(e)
	}
}
