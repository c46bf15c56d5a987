package repository

import (
	"context"

	"github.com/vibedev/vira/internal/domain/entity"
)

// QueueRepository persists accepted events between webhook acknowledgement
// and asynchronous processing. Implementations must be safe for
// concurrent use.
type QueueRepository interface {
	// Save persists a new queue item. Returns entity.ErrDuplicateItem if
	// an item with the same ID already exists.
	Save(ctx context.Context, item *entity.QueueItem) error

	// ListPending returns up to limit pending items, oldest first.
	// Used to recover unprocessed work at startup.
	ListPending(ctx context.Context, limit int) ([]*entity.QueueItem, error)

	// MarkDone marks an item as successfully processed, recording how
	// many attempts it took.
	MarkDone(ctx context.Context, id string, attempts int) error

	// MarkFailed marks an item as permanently failed with a reason and
	// the number of attempts spent on it.
	MarkFailed(ctx context.Context, id string, reason string, attempts int) error
}
