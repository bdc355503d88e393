package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, item *models.QueueItem) error {
	query := `INSERT INTO offline_queue (id, user_id, priority, op_type, payload, retry_count, last_error, enqueued_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, string(item.Priority), string(item.Envelope.Type),
		string(item.Envelope.Payload), item.RetryCount, item.LastError,
		item.EnqueuedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert queue item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListOrdered(ctx context.Context) ([]models.QueueItem, error) {
	// Priority ranks mirror models.Priority.Rank; unknown values sort last.
	query := `SELECT seq, id, user_id, priority, op_type, payload, retry_count, last_error, enqueued_at
			FROM offline_queue
			ORDER BY CASE priority
				WHEN 'critical' THEN 0
				WHEN 'high' THEN 1
				WHEN 'medium' THEN 2
				WHEN 'low' THEN 3
				ELSE 4 END, seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue items: %w", err)
	}
	defer rows.Close()

	var result []models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		var priority, opType, payload, enqueuedAt string
		if err := rows.Scan(&item.Seq, &item.ID, &item.UserID, &priority, &opType,
			&payload, &item.RetryCount, &item.LastError, &enqueuedAt); err != nil {
			return nil, err
		}
		item.Priority = models.Priority(priority)
		item.Envelope = models.Envelope{Type: models.OpType(opType), Payload: json.RawMessage(payload)}
		if item.EnqueuedAt, err = time.Parse(time.RFC3339Nano, enqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to parse enqueued_at: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	query := `UPDATE offline_queue SET retry_count = retry_count + 1, last_error = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, lastError, id); err != nil {
		return fmt.Errorf("failed to mark queue item failed: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM offline_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM offline_queue`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return n, nil
}
