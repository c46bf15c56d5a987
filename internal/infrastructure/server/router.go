package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vibedev/vira/internal/adapter/handler"
	"github.com/vibedev/vira/internal/adapter/handler/middleware"
	"github.com/vibedev/vira/internal/infrastructure/observability"
	"github.com/vibedev/vira/internal/infrastructure/slack"
)

// Handlers holds all HTTP handlers.
type Handlers struct {
	SlackEvents *handler.SlackEventsHandler
	Health      *handler.HealthHandler
	Ready       *handler.ReadyHandler
	Metrics     *handler.MetricsHandler
}

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	Verifier       *slack.SignatureVerifier
	Metrics        *observability.Metrics
	RequestTimeout time.Duration
}

// NewRouter creates the HTTP router with all handlers. The events
// endpoint sits behind signature verification; probes and metrics do
// not.
func NewRouter(handlers *Handlers, opts RouterOptions, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.Handle("/health", handlers.Health)
	mux.Handle("/", handlers.Health) // Root path returns health
	if handlers.Ready != nil {
		mux.Handle("/ready", handlers.Ready)
	}

	if handlers.Metrics != nil {
		mux.Handle("/metrics", handlers.Metrics)
	}

	if handlers.SlackEvents != nil {
		var events http.Handler = handlers.SlackEvents
		if opts.Verifier != nil {
			events = middleware.SlackAuth(opts.Verifier, logger)(events)
		}
		mux.Handle("/slack/events", events)
	}

	// Apply middleware stack
	var h http.Handler = mux
	if opts.RequestTimeout > 0 {
		h = middleware.Timeout(opts.RequestTimeout, logger)(h)
	}
	if opts.Metrics != nil {
		h = middleware.Observability(opts.Metrics)(h)
	}
	h = middleware.RequestID(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
