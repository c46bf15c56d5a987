package event

import (
	"context"

	"github.com/vibedev/vira/internal/domain/entity"
)

// ThreadSource resolves thread heads from the conversation store.
// The classifier only ever needs the head; full history retrieval
// belongs to the processing stage.
type ThreadSource interface {
	GetThreadHead(ctx context.Context, channelID, threadTS string) (*entity.ThreadHead, error)
}

// Enqueuer hands an accepted event to the asynchronous work queue.
// It reports only the success of the submission, not of processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, ev *entity.InboundEvent) error
}

// Logger defines the contract for logging within use cases.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}
