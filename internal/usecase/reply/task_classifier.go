package reply

import (
	"context"
	"io"
	"strings"

	"github.com/vibedev/vira/internal/domain/entity"
	"github.com/vibedev/vira/internal/usecase/event"
)

// TaskClassifier assigns a reply strategy to a message with a single
// classification call against the completion capability. It is the most
// semantically ambiguous step of the pipeline: a wrong label degrades
// reply quality but never causes a hard failure.
type TaskClassifier struct {
	engine CompletionEngine
	bot    entity.BotIdentity
	logger event.Logger
}

// NewTaskClassifier creates a task classifier.
func NewTaskClassifier(engine CompletionEngine, bot entity.BotIdentity, logger event.Logger) *TaskClassifier {
	return &TaskClassifier{
		engine: engine,
		bot:    bot,
		logger: logger,
	}
}

// Detect classifies the message into exactly one of the four tasks.
// Any failure or unexpected output falls back to conversation.
func (tc *TaskClassifier) Detect(ctx context.Context, msg *entity.Message, history entity.History) entity.Task {
	prompt := BuildClassificationPrompt(msg, history, tc.bot)
	if tc.engine.ExceedsTokenLimit(prompt) {
		// Classification is best-effort; an oversized thread just means
		// the default strategy.
		return entity.TaskConversation
	}

	text, err := CollectText(ctx, tc.engine, prompt)
	if err != nil {
		tc.logger.Warn("task classification failed, defaulting to conversation",
			"error", err,
		)
		return entity.TaskConversation
	}

	task := entity.ParseTask(text)
	tc.logger.Debug("task detected",
		"task", string(task),
		"raw", strings.TrimSpace(text),
	)
	return task
}

// CollectText drains a completion stream and concatenates the non-empty
// contents in emission order. The stream is always closed, including on
// context cancellation, so the underlying connection is released without
// delivering a partial reply.
func CollectText(ctx context.Context, engine CompletionEngine, prompt entity.Prompt) (string, error) {
	stream, err := engine.GetCompletion(ctx, prompt)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		c, err := stream.Recv()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		if c.HasContent() {
			b.WriteString(c.Content)
		}
	}
}
