package dto

import (
	"encoding/json"

	"github.com/vibedev/vira/internal/domain/entity"
)

// Top-level payload types delivered to the events endpoint.
const (
	PayloadURLVerification = "url_verification"
	PayloadEventCallback   = "event_callback"
)

// EventsAPIPayload represents the envelope Slack posts to the events
// endpoint. Only the fields the pipeline reads are declared; the rest
// of the envelope is ignored.
// See: https://api.slack.com/apis/connections/events-api#receiving_events
type EventsAPIPayload struct {
	Type      string      `json:"type"`
	Token     string      `json:"token,omitempty"`
	Challenge string      `json:"challenge,omitempty"`
	TeamID    string      `json:"team_id,omitempty"`
	APIAppID  string      `json:"api_app_id,omitempty"`
	EventID   string      `json:"event_id,omitempty"`
	EventTime int64       `json:"event_time,omitempty"`
	Event     *SlackEvent `json:"event,omitempty"`
}

// SlackEvent represents the inner event of an event_callback envelope.
type SlackEvent struct {
	Type        string          `json:"type"`
	Subtype     string          `json:"subtype,omitempty"`
	Channel     string          `json:"channel"`
	ChannelType string          `json:"channel_type,omitempty"`
	User        string          `json:"user"`
	BotID       string          `json:"bot_id,omitempty"`
	Text        string          `json:"text,omitempty"`
	Blocks      json.RawMessage `json:"blocks,omitempty"`
	TS          string          `json:"ts"`
	ThreadTS    string          `json:"thread_ts,omitempty"`
}

// ToInboundEvent converts the wire event to the domain representation.
func (e *SlackEvent) ToInboundEvent() *entity.InboundEvent {
	return &entity.InboundEvent{
		Type:        e.Type,
		Subtype:     e.Subtype,
		ChannelID:   e.Channel,
		ChannelType: e.ChannelType,
		UserID:      e.User,
		Text:        e.Text,
		Blocks:      e.Blocks,
		TS:          e.TS,
		ThreadTS:    e.ThreadTS,
	}
}

// IsURLVerification returns true for the endpoint ownership handshake.
func (p *EventsAPIPayload) IsURLVerification() bool {
	return p.Type == PayloadURLVerification
}

// IsEventCallback returns true for a regular event delivery.
func (p *EventsAPIPayload) IsEventCallback() bool {
	return p.Type == PayloadEventCallback
}
