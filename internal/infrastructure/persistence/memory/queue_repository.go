package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vibedev/vira/internal/domain/entity"
	"github.com/vibedev/vira/internal/domain/repository"
)

// QueueRepository provides an in-memory implementation of
// repository.QueueRepository. Thread-safe for concurrent access.
// Items do not survive a restart; use the SQLite store when recovery
// matters.
type QueueRepository struct {
	mu    sync.RWMutex
	items map[string]*entity.QueueItem // id -> item
}

// NewQueueRepository creates a new in-memory queue repository.
func NewQueueRepository() *QueueRepository {
	return &QueueRepository{
		items: make(map[string]*entity.QueueItem),
	}
}

// Save persists a new queue item.
func (r *QueueRepository) Save(ctx context.Context, item *entity.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return entity.ErrDuplicateItem
	}

	// Store a copy to prevent external mutations
	itemCopy := *item
	r.items[item.ID] = &itemCopy

	return nil
}

// ListPending returns up to limit pending items, oldest first.
func (r *QueueRepository) ListPending(ctx context.Context, limit int) ([]*entity.QueueItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := make([]*entity.QueueItem, 0)
	for _, item := range r.items {
		if item.Status == entity.QueueStatusPending {
			itemCopy := *item
			pending = append(pending, &itemCopy)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].EnqueuedAt.Equal(pending[j].EnqueuedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].EnqueuedAt.Before(pending[j].EnqueuedAt)
	})

	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkDone marks an item as successfully processed.
func (r *QueueRepository) MarkDone(ctx context.Context, id string, attempts int) error {
	return r.setStatus(id, entity.QueueStatusDone, "", attempts)
}

// MarkFailed marks an item as permanently failed with a reason.
func (r *QueueRepository) MarkFailed(ctx context.Context, id string, reason string, attempts int) error {
	return r.setStatus(id, entity.QueueStatusFailed, reason, attempts)
}

func (r *QueueRepository) setStatus(id string, status entity.QueueItemStatus, reason string, attempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	item.Status = status
	item.LastError = reason
	item.Attempts = attempts
	return nil
}
