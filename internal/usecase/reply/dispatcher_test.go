package reply

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vibedev/vira/internal/domain/entity"
)

func TestDispatcher_EmptyReplyIsNoOp(t *testing.T) {
	poster := &fakePoster{}
	d := NewDispatcher(poster, "", nopLogger{})

	d.Dispatch(context.Background(), "C1", "100", "", entity.TaskConversation)

	if len(poster.messages)+len(poster.files) != 0 {
		t.Error("expected nothing to be sent for an empty reply")
	}
}

func TestDispatcher_InlineAtThreshold(t *testing.T) {
	poster := &fakePoster{}
	d := NewDispatcher(poster, "", nopLogger{})

	exactly := strings.Repeat("x", MaxInlineReplyLength)
	d.Dispatch(context.Background(), "C1", "100", exactly, entity.TaskConversation)

	if len(poster.messages) != 1 || len(poster.files) != 0 {
		t.Fatalf("expected inline delivery at the threshold, got %d messages %d files",
			len(poster.messages), len(poster.files))
	}
}

func TestDispatcher_FileOverThreshold(t *testing.T) {
	poster := &fakePoster{}
	d := NewDispatcher(poster, "", nopLogger{})

	over := strings.Repeat("x", MaxInlineReplyLength+1)
	d.Dispatch(context.Background(), "C1", "100", over, entity.TaskConversation)

	if len(poster.files) != 1 || len(poster.messages) != 0 {
		t.Fatalf("expected file delivery over the threshold, got %d messages %d files",
			len(poster.messages), len(poster.files))
	}
	if poster.files[0].caption != "See the attached file." {
		t.Errorf("caption = %q", poster.files[0].caption)
	}
}

func TestDispatcher_ThresholdCountsRunes(t *testing.T) {
	poster := &fakePoster{}
	d := NewDispatcher(poster, "", nopLogger{})

	// 2000 multibyte runes is still inline even though the byte length
	// is far larger.
	text := strings.Repeat("秋", MaxInlineReplyLength)
	d.Dispatch(context.Background(), "C1", "100", text, entity.TaskConversation)

	if len(poster.messages) != 1 {
		t.Fatalf("expected inline delivery for 2000 runes, got %d files", len(poster.files))
	}
}

func TestDispatcher_DeliveryErrorSwallowed(t *testing.T) {
	poster := &fakePoster{err: errors.New("channel_not_found")}
	d := NewDispatcher(poster, "", nopLogger{})

	// Must not panic or propagate; the event counts as processed.
	d.Dispatch(context.Background(), "C1", "100", "hello", entity.TaskConversation)
}

func TestDispatcher_EnvTagPassedThrough(t *testing.T) {
	poster := &fakePoster{}
	d := NewDispatcher(poster, "dev build", nopLogger{})

	d.Dispatch(context.Background(), "C1", "100", "hello", entity.TaskProofread)

	if got := poster.messages[0].meta; got.EnvTag != "dev build" || got.Task != entity.TaskProofread {
		t.Errorf("meta = %+v", got)
	}
}
