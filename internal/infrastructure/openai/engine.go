package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vibedev/vira/internal/domain/entity"
	domainerrors "github.com/vibedev/vira/internal/domain/errors"
	"github.com/vibedev/vira/internal/infrastructure/observability"
	"github.com/vibedev/vira/internal/infrastructure/resilience"
	"github.com/vibedev/vira/internal/usecase/reply"
)

// wordPattern approximates tokenization for the pre-flight estimate.
var wordPattern = regexp.MustCompile(`\b\w+\b`)

// Options configures the completion engine.
type Options struct {
	Model       string
	Streaming   bool
	Temperature float32
	TokenBudget int
	BaseURL     string // overrides the API endpoint, used in tests
}

// Engine implements reply.CompletionEngine over the OpenAI chat
// completions API. A circuit breaker guards the backend so a flapping
// API fails fast instead of tying up queue slots.
type Engine struct {
	client      *openai.Client
	breaker     *resilience.CircuitBreaker
	metrics     *observability.Metrics
	model       string
	streaming   bool
	temperature float32
	tokenBudget int
}

// NewEngine creates a completion engine. metrics may be nil.
func NewEngine(apiKey string, opts Options, metrics *observability.Metrics) *Engine {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &Engine{
		client:      openai.NewClientWithConfig(cfg),
		breaker:     resilience.NewCircuitBreaker("openai", 5, 30*time.Second),
		metrics:     metrics,
		model:       opts.Model,
		streaming:   opts.Streaming,
		temperature: opts.Temperature,
		tokenBudget: opts.TokenBudget,
	}
}

// GetCompletion issues a chat completion request for the prompt. In
// streaming mode the returned stream yields one completion per delta;
// otherwise it yields exactly one completion with the full text.
func (e *Engine) GetCompletion(ctx context.Context, prompt entity.Prompt) (reply.CompletionStream, error) {
	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages:    toChatMessages(prompt),
	}

	start := time.Now()

	if e.streaming {
		var stream *openai.ChatCompletionStream
		err := e.breaker.Execute(ctx, func() error {
			var innerErr error
			stream, innerErr = e.client.CreateChatCompletionStream(ctx, req)
			return innerErr
		})
		e.recordCompletion(ctx, "stream", start, err)
		if err != nil {
			return nil, categorizeOpenAIError(err, "creating completion stream")
		}
		return &chatStream{stream: stream}, nil
	}

	var resp openai.ChatCompletionResponse
	err := e.breaker.Execute(ctx, func() error {
		var innerErr error
		resp, innerErr = e.client.CreateChatCompletion(ctx, req)
		return innerErr
	})
	e.recordCompletion(ctx, "single", start, err)
	if err != nil {
		return nil, categorizeOpenAIError(err, "creating completion")
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return &singleStream{content: content}, nil
}

// ExceedsTokenLimit estimates the prompt's token count as word count
// times 4/3 and compares it against the configured budget. A crude
// estimate is enough here; the point is to skip requests the backend
// would reject outright.
func (e *Engine) ExceedsTokenLimit(prompt entity.Prompt) bool {
	if e.tokenBudget <= 0 {
		return false
	}

	estimated := 0.0
	for _, entry := range prompt.Entries {
		content := string(entry.Role) + ": " + entry.Content
		words := wordPattern.FindAllString(content, -1)
		estimated += float64(len(words)) * 4 / 3
	}

	return estimated > float64(e.tokenBudget)
}

func (e *Engine) recordCompletion(ctx context.Context, mode string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordCompletion(ctx, mode, time.Since(start), err == nil)
}

func toChatMessages(prompt entity.Prompt) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, prompt.Len())
	for _, entry := range prompt.Entries {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(entry.Role),
			Content: entry.Content,
		})
	}
	return messages
}

// chatStream adapts the SDK stream to reply.CompletionStream.
type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (entity.Completion, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return entity.Completion{}, io.EOF
	}
	if err != nil {
		return entity.Completion{}, categorizeOpenAIError(err, "receiving completion delta")
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Delta.Content
	}
	return entity.Completion{Content: content}, nil
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}

// singleStream yields one completion, then io.EOF.
type singleStream struct {
	content string
	done    bool
}

func (s *singleStream) Recv() (entity.Completion, error) {
	if s.done {
		return entity.Completion{}, io.EOF
	}
	s.done = true
	return entity.Completion{Content: s.content}, nil
}

func (s *singleStream) Close() error { return nil }

// categorizeOpenAIError wraps backend errors as transient or permanent
// domain errors. Rate limits and server-side failures retry; client
// errors do not.
func categorizeOpenAIError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: backend circuit open", operation),
			err,
		)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return domainerrors.NewTransientError(
				fmt.Sprintf("%s: backend error (status %d)", operation, apiErr.HTTPStatusCode),
				err,
			)
		}
		return domainerrors.NewPermanentError(
			fmt.Sprintf("%s: request rejected (status %d)", operation, apiErr.HTTPStatusCode),
			err,
		)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: network error", operation),
			err,
		)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: context timeout", operation),
			err,
		)
	}

	return domainerrors.NewPermanentError(
		fmt.Sprintf("%s: %v", operation, err),
		err,
	)
}
