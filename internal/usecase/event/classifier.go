package event

import (
	"context"

	"github.com/vibedev/vira/internal/domain/entity"
)

// Classifier decides whether an inbound event warrants a reply. The
// rules balance responsiveness (DMs and direct mentions are always
// answered) against noise suppression in busy group threads, using
// "was the bot addressed at the start of this thread" as the
// continuation signal.
type Classifier struct {
	identity entity.BotIdentity
	threads  ThreadSource
	logger   Logger
}

// NewClassifier creates a classifier for the given bot identity.
func NewClassifier(identity entity.BotIdentity, threads ThreadSource, logger Logger) *Classifier {
	return &Classifier{
		identity: identity,
		threads:  threads,
		logger:   logger,
	}
}

// ShouldProcess applies the acceptance rules in order; the first match
// decides.
func (c *Classifier) ShouldProcess(ctx context.Context, ev *entity.InboundEvent) bool {
	// Never process the bot's own messages. This is what keeps a reply
	// from triggering another reply.
	if ev.UserID == c.identity.UserID {
		return false
	}

	// A direct mention is always answered.
	if ev.IsAppMention() {
		return true
	}

	// Edits, joins, and other subtyped events are not conversation.
	if ev.Type != entity.EventTypeMessage || ev.Subtype != "" {
		return false
	}

	// DMs with the bot are always answered.
	if ev.IsDirectMessage() {
		return true
	}

	// A mention anywhere in a channel message arrives again as an
	// app_mention event; skip here to avoid double-processing.
	if entity.ContainsMention(ev.Text, c.identity.UserID) {
		return false
	}

	// Outside threads, an unmentioned channel message is not ours.
	if !ev.IsInThread() {
		return false
	}

	// Thread replies auto-continue only in watched threads: those whose
	// head message mentioned the bot.
	head, err := c.threads.GetThreadHead(ctx, ev.ChannelID, ev.ThreadTS)
	if err != nil {
		c.logger.Warn("thread head lookup failed, skipping event",
			"channel", ev.ChannelID,
			"thread_ts", ev.ThreadTS,
			"error", err,
		)
		return false
	}
	if !head.Mentions(c.identity.UserID) {
		return false
	}

	c.logger.Debug("message in watched thread",
		"channel", ev.ChannelID,
		"thread_ts", ev.ThreadTS,
		"ts", ev.TS,
	)

	// Within a watched thread, a reply opening with a mention of someone
	// else is directed at them, not at the bot.
	if leading := entity.LeadingMention(ev.Text); leading != "" && leading != c.identity.UserID {
		c.logger.Debug("skipping watched-thread message addressed to another user",
			"channel", ev.ChannelID,
			"thread_ts", ev.ThreadTS,
		)
		return false
	}

	return true
}
