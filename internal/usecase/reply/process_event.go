package reply

import (
	"context"
	"fmt"

	"github.com/vibedev/vira/internal/domain/entity"
	domainerrors "github.com/vibedev/vira/internal/domain/errors"
	"github.com/vibedev/vira/internal/usecase/event"
)

// TokenBudgetFallback is sent when a message alone, with all history
// already trimmed away, still exceeds the backend's token budget.
const TokenBudgetFallback = "That message is too long for me to process. Could you shorten it?"

// ProcessEventUseCase is the asynchronous half of the pipeline: it takes
// a dequeued event, rebuilds thread context, picks a strategy, runs the
// completion, and dispatches the reply.
type ProcessEventUseCase struct {
	store      ConversationStore
	engine     CompletionEngine
	classifier *TaskClassifier
	dispatcher *Dispatcher
	bot        entity.BotIdentity
	logger     event.Logger
}

// NewProcessEventUseCase creates the processing-stage use case.
func NewProcessEventUseCase(
	store ConversationStore,
	engine CompletionEngine,
	classifier *TaskClassifier,
	dispatcher *Dispatcher,
	bot entity.BotIdentity,
	logger event.Logger,
) *ProcessEventUseCase {
	return &ProcessEventUseCase{
		store:      store,
		engine:     engine,
		classifier: classifier,
		dispatcher: dispatcher,
		bot:        bot,
		logger:     logger,
	}
}

// Execute processes one dequeued event end to end. A returned error is
// always a transient backend failure the caller may retry; malformed
// events and delivery failures are absorbed here.
func (uc *ProcessEventUseCase) Execute(ctx context.Context, ev *entity.InboundEvent) error {
	if !ev.Valid() {
		uc.logger.Warn("dropping malformed event",
			"channel", ev.ChannelID,
			"user", ev.UserID,
			"ts", ev.TS,
			"error", domainerrors.ErrMalformedEvent,
		)
		return nil
	}

	var history entity.History
	if ev.IsInThread() {
		var err error
		history, err = uc.store.GetThreadMessages(ctx, ev.ChannelID, ev.ThreadTS, ev.TS)
		if err != nil {
			return fmt.Errorf("fetching thread history: %w: %w", domainerrors.ErrBackendUnavailable, err)
		}
	}

	profile, err := uc.store.ResolveUserProfile(ctx, ev.UserID)
	if err != nil {
		// A reply without a display name beats no reply.
		uc.logger.Warn("profile resolution failed, using bare ID",
			"user", ev.UserID,
			"error", err,
		)
		profile = &entity.UserProfile{ID: ev.UserID}
	}

	msg := entity.NewMessage(profile, ev.TS, ev.Text, ev.Blocks, ev.ThreadTS)
	replyTS := ev.ReplyTS()

	var (
		task   entity.Task
		prompt entity.Prompt
	)
	if msg.Args.Raw {
		// Raw mode bypasses classification entirely; the reply goes out
		// without a task label.
		prompt = BuildRawPrompt(msg)
	} else {
		task = uc.classifier.Detect(ctx, msg, history)
		prompt = BuildPrompt(task, msg, history, uc.bot)
	}

	prompt, ok := uc.fitToBudget(prompt)
	if !ok {
		uc.logger.Info("prompt exceeds token budget even without history",
			"channel", ev.ChannelID,
			"ts", ev.TS,
			"error", domainerrors.ErrTokenBudgetExceeded,
		)
		uc.dispatcher.Dispatch(ctx, ev.ChannelID, replyTS, TokenBudgetFallback, "")
		return nil
	}

	text, err := CollectText(ctx, uc.engine, prompt)
	if err != nil {
		return fmt.Errorf("generating reply: %w: %w", domainerrors.ErrBackendUnavailable, err)
	}

	uc.dispatcher.Dispatch(ctx, ev.ChannelID, replyTS, text, task)
	return nil
}

// fitToBudget trims history entries oldest first until the prompt passes
// the pre-flight estimate. Returns ok=false when the bare message still
// exceeds the budget.
func (uc *ProcessEventUseCase) fitToBudget(prompt entity.Prompt) (entity.Prompt, bool) {
	for uc.engine.ExceedsTokenLimit(prompt) {
		trimmed, ok := TrimOldest(prompt)
		if !ok {
			return prompt, false
		}
		uc.logger.Debug("trimmed oldest history entry to fit token budget",
			"entries", trimmed.Len(),
		)
		prompt = trimmed
	}
	return prompt, true
}
