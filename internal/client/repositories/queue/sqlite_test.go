package queue

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sciencehabits/sciencehabits/internal/client/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE offline_queue (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  priority TEXT NOT NULL DEFAULT 'medium',
  op_type TEXT NOT NULL,
  payload TEXT NOT NULL,
  retry_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  enqueued_at TEXT NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func item(id string, priority models.Priority) *models.QueueItem {
	return &models.QueueItem{
		ID:       id,
		UserID:   "u1",
		Priority: priority,
		Envelope: models.Envelope{
			Type:    models.OpHabitCompletion,
			Payload: []byte(`{"userId":"u1","habitId":"h1","date":"2023-01-15"}`),
		},
		EnqueuedAt: time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestListOrdered_PriorityThenInsertion(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, item("low-1", models.PriorityLow)))
	require.NoError(t, r.Insert(ctx, item("med-1", models.PriorityMedium)))
	require.NoError(t, r.Insert(ctx, item("crit-1", models.PriorityCritical)))
	require.NoError(t, r.Insert(ctx, item("med-2", models.PriorityMedium)))
	require.NoError(t, r.Insert(ctx, item("high-1", models.PriorityHigh)))

	list, err := r.ListOrdered(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, it := range list {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"crit-1", "high-1", "med-1", "med-2", "low-1"}, ids)
}

func TestInsert_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	want := item("q1", models.PriorityHigh)
	require.NoError(t, r.Insert(ctx, want))

	list, err := r.ListOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.Priority, got.Priority)
	assert.Equal(t, want.Envelope.Type, got.Envelope.Type)
	assert.JSONEq(t, string(want.Envelope.Payload), string(got.Envelope.Payload))
	assert.Equal(t, want.EnqueuedAt, got.EnqueuedAt)
	assert.Positive(t, got.Seq)
}

func TestMarkFailed_IncrementsRetryAndKeepsItem(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, item("q1", models.PriorityMedium)))
	require.NoError(t, r.MarkFailed(ctx, "q1", "network unreachable"))
	require.NoError(t, r.MarkFailed(ctx, "q1", "still unreachable"))

	list, err := r.ListOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].RetryCount)
	assert.Equal(t, "still unreachable", list[0].LastError)
}

func TestDeleteAndCount(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, item("q1", models.PriorityMedium)))
	require.NoError(t, r.Insert(ctx, item("q2", models.PriorityMedium)))

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, r.Delete(ctx, "q1"))
	n, err = r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, r.DeleteAll(ctx))
	n, err = r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
