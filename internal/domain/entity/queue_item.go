package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateItem indicates a queue item with the same ID already exists.
var ErrDuplicateItem = errors.New("duplicate queue item")

// QueueItemStatus is the lifecycle state of a queued event.
type QueueItemStatus string

const (
	QueueStatusPending QueueItemStatus = "pending"
	QueueStatusDone    QueueItemStatus = "done"
	QueueStatusFailed  QueueItemStatus = "failed"
)

// QueueItem is one accepted event awaiting asynchronous processing.
// Payload is the serialized InboundEvent; LaneKey routes the item to
// its per-thread processing lane.
type QueueItem struct {
	ID         string
	LaneKey    string
	Payload    []byte
	Status     QueueItemStatus
	Attempts   int
	EnqueuedAt time.Time
	LastError  string
}

// NewQueueItem creates a pending queue item for the given lane.
func NewQueueItem(laneKey string, payload []byte) *QueueItem {
	return &QueueItem{
		ID:         uuid.New().String(),
		LaneKey:    laneKey,
		Payload:    payload,
		Status:     QueueStatusPending,
		EnqueuedAt: time.Now().UTC(),
	}
}
