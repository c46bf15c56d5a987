package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vibedev/vira/internal/domain/entity"
	"github.com/vibedev/vira/internal/domain/repository"
)

// QueueRepository provides SQLite implementation of repository.QueueRepository.
type QueueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a new SQLite-backed queue repository.
func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Save persists a new queue item.
func (r *QueueRepository) Save(ctx context.Context, item *entity.QueueItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO queue_items (
			id, lane_key, payload, status, attempts, enqueued_at, last_error
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.LaneKey, item.Payload, string(item.Status),
		item.Attempts, timeToString(item.EnqueuedAt), nullString(item.LastError),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return entity.ErrDuplicateItem
		}
		return fmt.Errorf("insert queue item: %w", err)
	}

	return nil
}

// ListPending returns up to limit pending items, oldest first.
func (r *QueueRepository) ListPending(ctx context.Context, limit int) ([]*entity.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lane_key, payload, status, attempts, enqueued_at, last_error
		FROM queue_items
		WHERE status = ?
		ORDER BY enqueued_at ASC, id ASC
		LIMIT ?
	`, string(entity.QueueStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending items: %w", err)
	}
	defer rows.Close()

	var items []*entity.QueueItem
	for rows.Next() {
		var (
			item       entity.QueueItem
			status     string
			enqueuedAt string
			lastError  sql.NullString
		)
		if err := rows.Scan(
			&item.ID, &item.LaneKey, &item.Payload, &status,
			&item.Attempts, &enqueuedAt, &lastError,
		); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}

		item.Status = entity.QueueItemStatus(status)
		item.LastError = stringFromNull(lastError)
		item.EnqueuedAt, _ = parseTime(enqueuedAt)

		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if items == nil {
		items = []*entity.QueueItem{}
	}
	return items, nil
}

// MarkDone marks an item as successfully processed.
func (r *QueueRepository) MarkDone(ctx context.Context, id string, attempts int) error {
	return r.setStatus(ctx, id, entity.QueueStatusDone, "", attempts)
}

// MarkFailed marks an item as permanently failed with a reason.
func (r *QueueRepository) MarkFailed(ctx context.Context, id string, reason string, attempts int) error {
	return r.setStatus(ctx, id, entity.QueueStatusFailed, reason, attempts)
}

func (r *QueueRepository) setStatus(ctx context.Context, id string, status entity.QueueItemStatus, reason string, attempts int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE queue_items SET status = ?, last_error = ?, attempts = ? WHERE id = ?
	`, string(status), nullString(reason), attempts, id)
	if err != nil {
		return fmt.Errorf("update queue item status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// nullString converts a string to sql.NullString.
// Empty strings are stored as NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// stringFromNull converts sql.NullString back to string.
// Returns empty string for NULL values.
func stringFromNull(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// timeToString converts time.Time to RFC3339 string.
func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses an RFC3339 string to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// isUniqueConstraintError checks if the error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
