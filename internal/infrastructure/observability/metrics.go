package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics.
type Metrics struct {
	meter metric.Meter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsActive  metric.Int64UpDownCounter

	// Event intake metrics
	EventsReceivedTotal metric.Int64Counter
	EventsAcceptedTotal metric.Int64Counter

	// Queue metrics
	QueueDepth        metric.Int64UpDownCounter
	QueueRetriesTotal metric.Int64Counter
	QueueFailedTotal  metric.Int64Counter

	// Completion backend metrics
	CompletionsTotal      metric.Int64Counter
	CompletionDuration    metric.Float64Histogram
	CompletionErrorsTotal metric.Int64Counter

	// Reply delivery metrics
	RepliesDeliveredTotal metric.Int64Counter
}

// NewMetrics creates and registers all application metrics.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	var err error

	// HTTP metrics
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_request_duration: %w", err)
	}

	m.HTTPRequestsActive, err = meter.Int64UpDownCounter(
		"http.server.requests.active",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_requests_active: %w", err)
	}

	// Event intake metrics
	m.EventsReceivedTotal, err = meter.Int64Counter(
		"events.received.total",
		metric.WithDescription("Total number of events delivered to the webhook"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events_received_total: %w", err)
	}

	m.EventsAcceptedTotal, err = meter.Int64Counter(
		"events.accepted.total",
		metric.WithDescription("Total number of events accepted for processing"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events_accepted_total: %w", err)
	}

	// Queue metrics
	m.QueueDepth, err = meter.Int64UpDownCounter(
		"queue.depth",
		metric.WithDescription("Number of queued events awaiting processing"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue_depth: %w", err)
	}

	m.QueueRetriesTotal, err = meter.Int64Counter(
		"queue.retries.total",
		metric.WithDescription("Total number of processing retries"),
		metric.WithUnit("{retries}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue_retries_total: %w", err)
	}

	m.QueueFailedTotal, err = meter.Int64Counter(
		"queue.failed.total",
		metric.WithDescription("Total number of events that exhausted their attempts"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue_failed_total: %w", err)
	}

	// Completion backend metrics
	m.CompletionsTotal, err = meter.Int64Counter(
		"completions.requests.total",
		metric.WithDescription("Total number of completion requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating completions_total: %w", err)
	}

	m.CompletionDuration, err = meter.Float64Histogram(
		"completions.request.duration",
		metric.WithDescription("Completion request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating completion_duration: %w", err)
	}

	m.CompletionErrorsTotal, err = meter.Int64Counter(
		"completions.errors.total",
		metric.WithDescription("Total number of completion backend errors"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating completion_errors_total: %w", err)
	}

	// Reply delivery metrics
	m.RepliesDeliveredTotal, err = meter.Int64Counter(
		"replies.delivered.total",
		metric.WithDescription("Total number of replies delivered"),
		metric.WithUnit("{replies}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating replies_delivered_total: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordEventReceived records an event delivery and its intake decision.
func (m *Metrics) RecordEventReceived(ctx context.Context, eventType string, accepted bool) {
	attrs := []attribute.KeyValue{
		attribute.String("event.type", eventType),
	}

	m.EventsReceivedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if accepted {
		m.EventsAcceptedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordQueueResult records the terminal state of a queued event.
func (m *Metrics) RecordQueueResult(ctx context.Context, retries int, failed bool) {
	if retries > 0 {
		m.QueueRetriesTotal.Add(ctx, int64(retries))
	}
	if failed {
		m.QueueFailedTotal.Add(ctx, 1)
	}
}

// RecordCompletion records a completion request against the backend.
func (m *Metrics) RecordCompletion(ctx context.Context, mode string, duration time.Duration, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	}

	m.CompletionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.CompletionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if !success {
		m.CompletionErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordReplyDelivered records a delivered reply by delivery mode
// ("inline" or "file").
func (m *Metrics) RecordReplyDelivered(ctx context.Context, mode string) {
	m.RepliesDeliveredTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("delivery.mode", mode),
	))
}
