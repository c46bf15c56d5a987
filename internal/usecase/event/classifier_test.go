package event

import (
	"context"
	"errors"
	"testing"

	"github.com/vibedev/vira/internal/domain/entity"
)

const (
	botID   = "U1"
	otherID = "U2"
	thirdID = "U3"
)

type fakeThreadSource struct {
	heads map[string]*entity.ThreadHead
	err   error
	calls int
}

func (f *fakeThreadSource) GetThreadHead(ctx context.Context, channelID, threadTS string) (*entity.ThreadHead, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.heads[channelID+":"+threadTS], nil
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, keysAndValues ...any) {}
func (nopLogger) Info(msg string, keysAndValues ...any)  {}
func (nopLogger) Warn(msg string, keysAndValues ...any)  {}
func (nopLogger) Error(msg string, keysAndValues ...any) {}

func newClassifier(threads ThreadSource) *Classifier {
	return NewClassifier(entity.BotIdentity{UserID: botID, TeamID: "T1"}, threads, nopLogger{})
}

func TestClassifier_RejectsOwnMessages(t *testing.T) {
	c := newClassifier(&fakeThreadSource{})

	events := []*entity.InboundEvent{
		{Type: "message", ChannelID: "C1", UserID: botID, TS: "1", ChannelType: "im"},
		{Type: "app_mention", ChannelID: "C1", UserID: botID, TS: "2"},
		{Type: "message", ChannelID: "C1", UserID: botID, TS: "3", ThreadTS: "1"},
	}
	for _, ev := range events {
		if c.ShouldProcess(context.Background(), ev) {
			t.Errorf("expected self-authored event %q to be rejected", ev.TS)
		}
	}
}

func TestClassifier_AcceptsAppMention(t *testing.T) {
	c := newClassifier(&fakeThreadSource{})

	ev := &entity.InboundEvent{Type: "app_mention", ChannelID: "C1", UserID: otherID, TS: "1", Text: "<@U1> hi"}
	if !c.ShouldProcess(context.Background(), ev) {
		t.Error("expected app_mention to be accepted")
	}
}

func TestClassifier_RejectsSubtypes(t *testing.T) {
	c := newClassifier(&fakeThreadSource{})

	ev := &entity.InboundEvent{Type: "message", Subtype: "message_changed", ChannelID: "C1", UserID: otherID, TS: "1", ChannelType: "im"}
	if c.ShouldProcess(context.Background(), ev) {
		t.Error("expected subtyped message to be rejected")
	}
}

func TestClassifier_AcceptsDirectMessages(t *testing.T) {
	c := newClassifier(&fakeThreadSource{})

	tests := []struct {
		name string
		text string
	}{
		{"plain DM", "hello"},
		{"DM mentioning a third user", "what about <@U3>?"},
		{"empty DM", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &entity.InboundEvent{Type: "message", ChannelID: "D1", ChannelType: "im", UserID: otherID, TS: "1", Text: tt.text}
			if !c.ShouldProcess(context.Background(), ev) {
				t.Error("expected DM to be accepted")
			}
		})
	}
}

func TestClassifier_RejectsChannelMessageMentioningBot(t *testing.T) {
	// Mentions arrive again as app_mention; the message path must skip
	// them to avoid double replies.
	threads := &fakeThreadSource{}
	c := newClassifier(threads)

	ev := &entity.InboundEvent{Type: "message", ChannelID: "C1", UserID: otherID, TS: "5", Text: "hey <@U1>, thoughts?"}
	if c.ShouldProcess(context.Background(), ev) {
		t.Error("expected channel message mentioning the bot to be rejected")
	}
	if threads.calls != 0 {
		t.Errorf("expected no thread lookup, got %d", threads.calls)
	}
}

func TestClassifier_RejectsUnthreadedChannelMessage(t *testing.T) {
	c := newClassifier(&fakeThreadSource{})

	ev := &entity.InboundEvent{Type: "message", ChannelID: "C1", UserID: otherID, TS: "5", Text: "just chatting"}
	if c.ShouldProcess(context.Background(), ev) {
		t.Error("expected unthreaded channel message to be rejected")
	}
}

func TestClassifier_WatchedThread(t *testing.T) {
	threads := &fakeThreadSource{heads: map[string]*entity.ThreadHead{
		"C1:100": {TS: "100", Text: "<@U1> help us here", MentionedUserIDs: []string{botID}},
		"C1:200": {TS: "200", Text: "no bot here", MentionedUserIDs: nil},
	}}
	c := newClassifier(threads)

	tests := []struct {
		name     string
		threadTS string
		text     string
		want     bool
	}{
		{"reply in watched thread", "100", "and then what?", true},
		{"reply in unwatched thread", "200", "and then what?", false},
		{"watched thread, reply addressed to third user", "100", "<@U3> can you check", false},
		{"watched thread, reply opening with bot mention", "100", "<@U1> continue", false}, // handled by app_mention path
		{"watched thread, mention mid-text", "100", "I think <@U3> was right", true},
		{"unknown thread", "999", "hello", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &entity.InboundEvent{
				Type:      "message",
				ChannelID: "C1",
				UserID:    otherID,
				TS:        "300",
				ThreadTS:  tt.threadTS,
				Text:      tt.text,
			}
			if got := c.ShouldProcess(context.Background(), ev); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifier_ThreadLookupFailureRejects(t *testing.T) {
	threads := &fakeThreadSource{err: errors.New("slack is down")}
	c := newClassifier(threads)

	ev := &entity.InboundEvent{Type: "message", ChannelID: "C1", UserID: otherID, TS: "5", ThreadTS: "100", Text: "hello"}
	if c.ShouldProcess(context.Background(), ev) {
		t.Error("expected rejection when thread head cannot be resolved")
	}
}
