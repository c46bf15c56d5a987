package reply

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/vibedev/vira/internal/domain/entity"
	domainerrors "github.com/vibedev/vira/internal/domain/errors"
	"github.com/vibedev/vira/internal/usecase/event"
)

const (
	// MaxInlineReplyLength is the longest reply posted as an inline
	// message block; anything longer goes out as a file attachment so the
	// platform does not reject the message.
	MaxInlineReplyLength = 2000

	// AttachmentCaption is the inline comment accompanying an oversized
	// reply delivered as a file.
	AttachmentCaption = "See the attached file."
)

// Dispatcher turns a strategy's text output into a channel post. An
// empty reply is a silent no-op, and delivery failures are logged rather
// than propagated: once a send was attempted the event is processed,
// because re-sending risks duplicate replies.
type Dispatcher struct {
	poster Poster
	envTag string
	logger event.Logger
}

// NewDispatcher creates a dispatcher. envTag is the non-production
// marker appended to replies; leave empty in production.
func NewDispatcher(poster Poster, envTag string, logger event.Logger) *Dispatcher {
	return &Dispatcher{
		poster: poster,
		envTag: envTag,
		logger: logger,
	}
}

// Dispatch sends the reply text to the channel, threading it under
// replyTS.
func (d *Dispatcher) Dispatch(ctx context.Context, channelID, replyTS, text string, task entity.Task) {
	if text == "" {
		return
	}

	meta := ReplyMeta{Task: task, EnvTag: d.envTag}

	var err error
	if utf8.RuneCountInString(text) > MaxInlineReplyLength {
		err = d.poster.UploadFile(ctx, channelID, replyTS, text, AttachmentCaption)
	} else {
		err = d.poster.PostMessage(ctx, channelID, replyTS, text, meta)
	}
	if err != nil {
		d.logger.Error("failed to deliver reply",
			"channel", channelID,
			"reply_ts", replyTS,
			"task", string(task),
			"error", fmt.Errorf("%w: %w", domainerrors.ErrDelivery, err),
		)
	}
}
