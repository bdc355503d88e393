// Package queue stores buffered offline operations until they are
// successfully replayed.
package queue

import (
	"context"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
)

type Repository interface {
	// Insert appends a new item. The storage assigns the insertion sequence.
	Insert(ctx context.Context, item *models.QueueItem) error
	// ListOrdered returns every queued item in replay order: priority class
	// first (critical > high > medium > low), insertion order within a class.
	ListOrdered(ctx context.Context) ([]models.QueueItem, error)
	// MarkFailed increments the item's retry count and records the error.
	MarkFailed(ctx context.Context, id string, lastError string) error
	// Delete removes a replayed (or explicitly cleared) item.
	Delete(ctx context.Context, id string) error
	// DeleteAll clears the queue.
	DeleteAll(ctx context.Context) error
	// Count returns the number of queued items.
	Count(ctx context.Context) (int64, error)
}
