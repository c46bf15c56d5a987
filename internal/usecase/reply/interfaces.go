package reply

import (
	"context"

	"github.com/vibedev/vira/internal/domain/entity"
)

// ConversationStore is the read side of the platform conversation API
// needed by the processing stage.
type ConversationStore interface {
	// GetThreadMessages returns the thread's messages strictly before
	// latestTS, oldest first.
	GetThreadMessages(ctx context.Context, channelID, threadTS, latestTS string) (entity.History, error)

	// ResolveUserProfile resolves a user ID to a profile.
	ResolveUserProfile(ctx context.Context, userID string) (*entity.UserProfile, error)
}

// CompletionStream is a lazy sequence of completions. Recv blocks until
// the next unit is available and returns io.EOF once the backend signals
// completion; the sequence is finite and not restartable. Close releases
// the underlying connection; callers must Close on cancellation so no
// partial reply is delivered.
type CompletionStream interface {
	Recv() (entity.Completion, error)
	Close() error
}

// CompletionEngine wraps the language-model backend.
type CompletionEngine interface {
	// GetCompletion issues a request for the prompt and returns the
	// resulting stream. In single-shot mode the stream yields exactly one
	// completion.
	GetCompletion(ctx context.Context, prompt entity.Prompt) (CompletionStream, error)

	// ExceedsTokenLimit is a pre-flight estimate used to short-circuit
	// before issuing a request the backend would reject or truncate.
	ExceedsTokenLimit(prompt entity.Prompt) bool
}

// ReplyMeta carries the observational extras attached to a reply:
// the classified task and a non-production environment marker. Neither
// affects routing.
type ReplyMeta struct {
	Task   entity.Task
	EnvTag string
}

// Poster is the write side of the platform conversation API.
type Poster interface {
	// PostMessage sends an inline reply into the channel/thread.
	PostMessage(ctx context.Context, channelID, threadTS, text string, meta ReplyMeta) error

	// UploadFile attaches the content as a file with a short inline caption.
	UploadFile(ctx context.Context, channelID, threadTS, content, caption string) error
}
