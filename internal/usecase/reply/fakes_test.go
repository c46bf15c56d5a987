package reply

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/vibedev/vira/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, keysAndValues ...any) {}
func (nopLogger) Info(msg string, keysAndValues ...any)  {}
func (nopLogger) Warn(msg string, keysAndValues ...any)  {}
func (nopLogger) Error(msg string, keysAndValues ...any) {}

// sliceStream yields a fixed sequence of completions then io.EOF.
type sliceStream struct {
	completions []entity.Completion
	pos         int
	closed      bool
}

func (s *sliceStream) Recv() (entity.Completion, error) {
	if s.pos >= len(s.completions) {
		return entity.Completion{}, io.EOF
	}
	c := s.completions[s.pos]
	s.pos++
	return c, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// fakeEngine scripts completion responses per call, in order. When the
// script runs out the last response repeats.
type fakeEngine struct {
	mu        sync.Mutex
	responses [][]entity.Completion
	prompts   []entity.Prompt
	err       error
	budget    int // word budget; 0 means unlimited
}

func (e *fakeEngine) GetCompletion(ctx context.Context, prompt entity.Prompt) (CompletionStream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.prompts = append(e.prompts, prompt)
	idx := len(e.prompts) - 1
	if idx >= len(e.responses) {
		idx = len(e.responses) - 1
	}
	return &sliceStream{completions: e.responses[idx]}, nil
}

func (e *fakeEngine) ExceedsTokenLimit(prompt entity.Prompt) bool {
	if e.budget <= 0 {
		return false
	}
	words := 0
	for _, entry := range prompt.Entries {
		words += len(strings.Fields(entry.Content))
	}
	return words > e.budget
}

type postedMessage struct {
	channelID string
	threadTS  string
	text      string
	meta      ReplyMeta
}

type uploadedFile struct {
	channelID string
	threadTS  string
	content   string
	caption   string
}

// fakePoster records deliveries and optionally fails them.
type fakePoster struct {
	mu       sync.Mutex
	messages []postedMessage
	files    []uploadedFile
	err      error
}

func (p *fakePoster) PostMessage(ctx context.Context, channelID, threadTS, text string, meta ReplyMeta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, postedMessage{channelID, threadTS, text, meta})
	return nil
}

func (p *fakePoster) UploadFile(ctx context.Context, channelID, threadTS, content, caption string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.files = append(p.files, uploadedFile{channelID, threadTS, content, caption})
	return nil
}

// fakeStore serves canned history and profiles.
type fakeStore struct {
	history  entity.History
	profiles map[string]*entity.UserProfile
	err      error
}

func (s *fakeStore) GetThreadMessages(ctx context.Context, channelID, threadTS, latestTS string) (entity.History, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

func (s *fakeStore) ResolveUserProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	return &entity.UserProfile{ID: userID}, nil
}

func chunks(parts ...string) []entity.Completion {
	out := make([]entity.Completion, 0, len(parts))
	for _, p := range parts {
		out = append(out, entity.Completion{Content: p})
	}
	return out
}
