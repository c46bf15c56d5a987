package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/vibedev/vira/internal/adapter/dto"
	"github.com/vibedev/vira/internal/domain/entity"
	"github.com/vibedev/vira/internal/infrastructure/observability"
	"github.com/vibedev/vira/internal/usecase/event"
	"github.com/vibedev/vira/internal/usecase/reply"
)

// DevForwarder re-posts a signed event body to the development mirror.
// Production installs one; development instances run without.
type DevForwarder interface {
	Forward(ctx context.Context, body []byte) error
}

// HelpMessage builds the canned help reply pointing at the app's about
// page. Without a link (no app ID configured) the reply stays plain text
// rather than rendering an empty mrkdwn link.
func HelpMessage(aboutLink string) string {
	const greeting = "Hi! I'm Vira :wave:. I'm your personal assistant. "
	if aboutLink == "" {
		return greeting + "See what I can do"
	}
	return greeting + "<" + aboutLink + "|See what I can do>"
}

// SlackEventsHandler handles Slack Events API deliveries.
type SlackEventsHandler struct {
	classifier *event.Classifier
	queue      event.Enqueuer
	poster     reply.Poster
	forwarder  DevForwarder
	helpText   string
	logger     event.Logger
	metrics    *observability.Metrics
}

// NewSlackEventsHandler creates a new events handler. forwarder may be
// nil when this instance should not mirror --dev traffic; metrics may
// be nil.
func NewSlackEventsHandler(
	classifier *event.Classifier,
	queue event.Enqueuer,
	poster reply.Poster,
	forwarder DevForwarder,
	helpText string,
	logger event.Logger,
	metrics *observability.Metrics,
) *SlackEventsHandler {
	return &SlackEventsHandler{
		classifier: classifier,
		queue:      queue,
		poster:     poster,
		forwarder:  forwarder,
		helpText:   helpText,
		logger:     logger,
		metrics:    metrics,
	}
}

// ServeHTTP handles POST /slack/events.
//
// Signature verification happens in middleware before this handler
// runs. Every outcome past that point acknowledges with 200, even
// malformed payloads and enqueue failures; a non-200 would only make
// the platform redeliver an event we already know we cannot use.
func (h *SlackEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read event body", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	var payload dto.EventsAPIPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("undecodable event payload dropped", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	switch {
	case payload.IsURLVerification():
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"challenge": payload.Challenge})

	case payload.IsEventCallback():
		h.handleEventCallback(r.Context(), w, &payload, body)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *SlackEventsHandler) handleEventCallback(ctx context.Context, w http.ResponseWriter, payload *dto.EventsAPIPayload, body []byte) {
	// Always acknowledge; the decision below only picks what happens
	// on our side.
	defer w.WriteHeader(http.StatusOK)

	if payload.Event == nil {
		h.logger.Warn("event_callback without inner event dropped", "eventID", payload.EventID)
		return
	}

	ev := payload.Event.ToInboundEvent()
	accepted := h.classifier.ShouldProcess(ctx, ev)
	if h.metrics != nil {
		h.metrics.RecordEventReceived(ctx, ev.Type, accepted)
	}
	if !accepted {
		return
	}

	args := entity.ParseArguments(ev.Text)

	if args.Dev && h.forwarder != nil {
		if err := h.forwarder.Forward(ctx, body); err != nil {
			h.logger.Error("dev mirror forward failed",
				"channel", ev.ChannelID,
				"ts", ev.TS,
				"error", err,
			)
			return
		}
		h.logger.Info("event forwarded to dev mirror",
			"channel", ev.ChannelID,
			"ts", ev.TS,
		)
		return
	}

	if args.Help {
		if err := h.poster.PostMessage(ctx, ev.ChannelID, ev.ReplyTS(), h.helpText, reply.ReplyMeta{}); err != nil {
			h.logger.Error("failed to post help reply",
				"channel", ev.ChannelID,
				"error", err,
			)
		}
		return
	}

	if err := h.queue.Enqueue(ctx, ev); err != nil {
		h.logger.Error("failed to enqueue event",
			"channel", ev.ChannelID,
			"ts", ev.TS,
			"error", err,
		)
		return
	}

	h.logger.Info("event accepted",
		"type", ev.Type,
		"channel", ev.ChannelID,
		"ts", ev.TS,
		"thread", ev.ThreadTS,
	)
}
