package reply

import (
	"context"
	"errors"
	"testing"

	"github.com/vibedev/vira/internal/domain/entity"
)

func TestTaskClassifier_Detect(t *testing.T) {
	tests := []struct {
		name   string
		output []entity.Completion
		want   entity.Task
	}{
		{"ads label", chunks("ads"), entity.TaskAdsRewrite},
		{"ui label", chunks("ui"), entity.TaskUIRewrite},
		{"proofread label", chunks("proofread"), entity.TaskProofread},
		{"conversation label", chunks("conversation"), entity.TaskConversation},
		{"streamed label", chunks("proof", "read"), entity.TaskProofread},
		{"decorated label", chunks("\"ads\".\n"), entity.TaskAdsRewrite},
		{"garbage output", chunks("I think this is a poem"), entity.TaskConversation},
		{"empty output", nil, entity.TaskConversation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{responses: [][]entity.Completion{tt.output}}
			tc := NewTaskClassifier(engine, testBot, nopLogger{})

			msg := entity.NewMessage(&entity.UserProfile{ID: "U2"}, "100", "whatever", nil, "")
			if got := tc.Detect(context.Background(), msg, nil); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTaskClassifier_FailureDefaultsToConversation(t *testing.T) {
	engine := &fakeEngine{err: errors.New("backend down")}
	tc := NewTaskClassifier(engine, testBot, nopLogger{})

	msg := entity.NewMessage(&entity.UserProfile{ID: "U2"}, "100", "rewrite my ad please", nil, "")
	if got := tc.Detect(context.Background(), msg, nil); got != entity.TaskConversation {
		t.Errorf("Detect() = %q, want conversation on failure", got)
	}
}

func TestCollectText_ConcatenatesNonEmptyChunks(t *testing.T) {
	engine := &fakeEngine{responses: [][]entity.Completion{{
		{Content: "Hello"},
		{Content: ""},
		{Content: ", "},
		{Content: "world"},
	}}}

	var p entity.Prompt
	p.Add(entity.RoleUser, "hi")
	got, err := CollectText(context.Background(), engine, p)
	if err != nil {
		t.Fatalf("CollectText() error: %v", err)
	}
	if got != "Hello, world" {
		t.Errorf("CollectText() = %q", got)
	}
}

func TestCollectText_CancelledContext(t *testing.T) {
	engine := &fakeEngine{responses: [][]entity.Completion{chunks("a", "b", "c")}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var p entity.Prompt
	p.Add(entity.RoleUser, "hi")
	if _, err := CollectText(ctx, engine, p); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
