package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vibedev/vira/internal/domain/entity"
	domainerrors "github.com/vibedev/vira/internal/domain/errors"
)

func promptOf(texts ...string) entity.Prompt {
	var p entity.Prompt
	for _, t := range texts {
		p.Add(entity.RoleUser, t)
	}
	return p
}

func TestEngine_ExceedsTokenLimit(t *testing.T) {
	e := NewEngine("test-key", Options{TokenBudget: 10}, nil)

	if e.ExceedsTokenLimit(promptOf("short message")) {
		t.Error("small prompt flagged as over budget")
	}
	if !e.ExceedsTokenLimit(promptOf(strings.Repeat("word ", 50))) {
		t.Error("large prompt not flagged")
	}

	// No budget disables the pre-flight check entirely.
	unlimited := NewEngine("test-key", Options{TokenBudget: 0}, nil)
	if unlimited.ExceedsTokenLimit(promptOf(strings.Repeat("word ", 5000))) {
		t.Error("zero budget must disable the check")
	}
}

func TestEngine_EstimateGrowsWithInput(t *testing.T) {
	e := NewEngine("test-key", Options{TokenBudget: 40}, nil)

	// Around the boundary: 25 words fit a 40-token budget at 4/3 per
	// word (33.3), 35 words (46.6) do not.
	if e.ExceedsTokenLimit(promptOf(strings.Repeat("word ", 25))) {
		t.Error("25 words should fit a 40 token budget")
	}
	if !e.ExceedsTokenLimit(promptOf(strings.Repeat("word ", 35))) {
		t.Error("35 words should exceed a 40 token budget")
	}
}

func TestEngine_SingleShotCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			http.Error(w, "unexpected messages", http.StatusBadRequest)
			return
		}

		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: "Hi there",
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := NewEngine("test-key", Options{Model: "gpt-4", BaseURL: server.URL + "/v1"}, nil)

	stream, err := e.GetCompletion(context.Background(), promptOf("hello"))
	if err != nil {
		t.Fatalf("GetCompletion() error: %v", err)
	}
	defer stream.Close()

	c, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv() error: %v", err)
	}
	if c.Content != "Hi there" {
		t.Errorf("content = %q", c.Content)
	}

	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after the single completion, got %v", err)
	}
}

func TestEngine_StreamingCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"Hi ", "there"}
		for _, c := range chunks {
			payload, _ := json.Marshal(openai.ChatCompletionStreamResponse{
				Choices: []openai.ChatCompletionStreamChoice{{
					Delta: openai.ChatCompletionStreamChoiceDelta{Content: c},
				}},
			})
			io.WriteString(w, "data: "+string(payload)+"\n\n")
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	e := NewEngine("test-key", Options{Model: "gpt-4", Streaming: true, BaseURL: server.URL + "/v1"}, nil)

	stream, err := e.GetCompletion(context.Background(), promptOf("hello"))
	if err != nil {
		t.Fatalf("GetCompletion() error: %v", err)
	}
	defer stream.Close()

	var got strings.Builder
	for {
		c, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error: %v", err)
		}
		got.WriteString(c.Content)
	}
	if got.String() != "Hi there" {
		t.Errorf("streamed content = %q", got.String())
	}
}

func TestEngine_StreamingMatchesSingleShot(t *testing.T) {
	// One backend holding one answer, served whole or as deltas
	// depending on what the request asks for. Both modes must hand the
	// caller the same final text.
	const answer = "Sure, I can summarize that thread for you."

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{{
					Message: openai.ChatCompletionMessage{
						Role:    openai.ChatMessageRoleAssistant,
						Content: answer,
					},
				}},
			})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, word := range strings.SplitAfter(answer, " ") {
			payload, _ := json.Marshal(openai.ChatCompletionStreamResponse{
				Choices: []openai.ChatCompletionStreamChoice{{
					Delta: openai.ChatCompletionStreamChoiceDelta{Content: word},
				}},
			})
			io.WriteString(w, "data: "+string(payload)+"\n\n")
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	collect := func(t *testing.T, e *Engine) string {
		t.Helper()
		stream, err := e.GetCompletion(context.Background(), promptOf("hello"))
		if err != nil {
			t.Fatalf("GetCompletion() error: %v", err)
		}
		defer stream.Close()

		var b strings.Builder
		for {
			c, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("Recv() error: %v", err)
			}
			b.WriteString(c.Content)
		}
		return b.String()
	}

	single := collect(t, NewEngine("test-key", Options{Model: "gpt-4", BaseURL: server.URL + "/v1"}, nil))
	streamed := collect(t, NewEngine("test-key", Options{Model: "gpt-4", Streaming: true, BaseURL: server.URL + "/v1"}, nil))

	if single != answer {
		t.Errorf("single-shot content = %q, want %q", single, answer)
	}
	if streamed != single {
		t.Errorf("streamed content = %q, single-shot = %q", streamed, single)
	}
}

func TestEngine_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer server.Close()

	e := NewEngine("test-key", Options{Model: "gpt-4", BaseURL: server.URL + "/v1"}, nil)

	_, err := e.GetCompletion(context.Background(), promptOf("hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !domainerrors.IsTransientError(err) {
		t.Errorf("server error should be transient, got %v", err)
	}
}

func TestEngine_ClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"context too long","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	e := NewEngine("test-key", Options{Model: "gpt-4", BaseURL: server.URL + "/v1"}, nil)

	_, err := e.GetCompletion(context.Background(), promptOf("hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if domainerrors.IsTransientError(err) {
		t.Errorf("client error should be permanent, got %v", err)
	}
}

func TestEngine_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer server.Close()

	e := NewEngine("test-key", Options{Model: "gpt-4", BaseURL: server.URL + "/v1"}, nil)

	// Trip the breaker.
	for i := 0; i < 6; i++ {
		e.GetCompletion(context.Background(), promptOf("hello"))
	}

	_, err := e.GetCompletion(context.Background(), promptOf("hello"))
	if err == nil {
		t.Fatal("expected error with open circuit")
	}
	if !domainerrors.IsTransientError(err) {
		t.Errorf("open circuit should surface as transient, got %v", err)
	}
}
