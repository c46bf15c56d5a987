package entity

import (
	"encoding/json"
	"strings"
)

// Inbound event types recognized by the pipeline.
const (
	EventTypeMessage    = "message"
	EventTypeAppMention = "app_mention"
)

// ChannelTypeIM marks a direct-message channel.
const ChannelTypeIM = "im"

// InboundEvent is the raw Slack event as delivered by the Events API.
// It is immutable after construction; the platform delivers events
// at-least-once, so the same event may arrive more than once.
type InboundEvent struct {
	Type        string          `json:"type"`
	Subtype     string          `json:"subtype,omitempty"`
	ChannelID   string          `json:"channel"`
	ChannelType string          `json:"channel_type,omitempty"`
	UserID      string          `json:"user"`
	Text        string          `json:"text,omitempty"`
	Blocks      json.RawMessage `json:"blocks,omitempty"`
	TS          string          `json:"ts"`
	ThreadTS    string          `json:"thread_ts,omitempty"`
}

// IsAppMention returns true if this is an app_mention event.
func (e *InboundEvent) IsAppMention() bool {
	return e.Type == EventTypeAppMention
}

// IsDirectMessage returns true if the event came from a DM channel.
func (e *InboundEvent) IsDirectMessage() bool {
	return e.ChannelType == ChannelTypeIM
}

// IsInThread returns true if the event is a reply inside a thread.
func (e *InboundEvent) IsInThread() bool {
	return e.ThreadTS != ""
}

// ReplyTS returns the timestamp replies should be threaded under:
// the thread root when the event is threaded, the event itself otherwise.
func (e *InboundEvent) ReplyTS() string {
	if e.ThreadTS != "" {
		return e.ThreadTS
	}
	return e.TS
}

// Valid reports whether the event carries the fields the processing
// stage cannot work without.
func (e *InboundEvent) Valid() bool {
	return strings.TrimSpace(e.ChannelID) != "" &&
		strings.TrimSpace(e.UserID) != "" &&
		strings.TrimSpace(e.TS) != ""
}

// LaneKey identifies the serialization lane for this event. Events in
// the same thread share a lane so replies go out in acceptance order;
// unthreaded messages get a lane of their own.
func (e *InboundEvent) LaneKey() string {
	return e.ChannelID + ":" + e.ReplyTS()
}
