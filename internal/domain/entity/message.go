package entity

import (
	"encoding/json"
	"regexp"
	"strings"
)

// mentionPattern matches a Slack mention token like <@U0123ABCD>.
var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)>`)

// leadingMentionPattern matches a mention at the very start of a message.
var leadingMentionPattern = regexp.MustCompile(`^<@([A-Z0-9]+)>`)

// UserProfile is the resolved profile of a message author.
type UserProfile struct {
	ID          string
	RealName    string
	DisplayName string
}

// Name returns the best human-readable name for the user.
func (u *UserProfile) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.RealName != "" {
		return u.RealName
	}
	return u.ID
}

// Arguments are the flags a user can embed in a message text.
type Arguments struct {
	Help bool // --help: reply with the usage blurb instead of generating
	Raw  bool // --raw: send the text to the model verbatim, no persona or history
	Dev  bool // --dev: route this event to the dev mirror instead of answering
}

// Message is the normalized view of an inbound event: resolved author,
// flag-parsed text, thread position. Constructed once per pipeline
// invocation and never mutated.
type Message struct {
	User     *UserProfile
	TS       string
	Text     string
	Blocks   json.RawMessage
	ThreadTS string
	Args     Arguments
}

// NewMessage builds a Message from raw event fields, parsing argument
// flags out of the text.
func NewMessage(user *UserProfile, ts, text string, blocks json.RawMessage, threadTS string) *Message {
	return &Message{
		User:     user,
		TS:       ts,
		Text:     text,
		Blocks:   blocks,
		ThreadTS: threadTS,
		Args:     ParseArguments(text),
	}
}

// ParseArguments extracts known flag tokens from a message text.
func ParseArguments(text string) Arguments {
	var args Arguments
	for _, field := range strings.Fields(text) {
		switch field {
		case "--help":
			args.Help = true
		case "--raw":
			args.Raw = true
		case "--dev":
			args.Dev = true
		}
	}
	return args
}

// PromptText returns the message text with mention tokens and flag
// tokens stripped, suitable for inclusion in a model prompt.
func (m *Message) PromptText() string {
	return CleanText(m.Text)
}

// CleanText strips mention tokens and argument flags from a message text.
func CleanText(text string) string {
	text = mentionPattern.ReplaceAllString(text, "")
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case "--help", "--raw", "--dev":
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// MentionedUserIDs returns every user mentioned in the text, in order.
func MentionedUserIDs(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}

// LeadingMention returns the user ID of a mention at the very start of
// the text, or "" when the text does not open with a mention.
func LeadingMention(text string) string {
	m := leadingMentionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ""
	}
	return m[1]
}

// ContainsMention reports whether the text mentions the given user anywhere.
func ContainsMention(text, userID string) bool {
	return strings.Contains(text, "<@"+userID+">")
}

// ThreadHead is the first message of a thread. It exists only to decide
// whether the thread is watched: the bot was addressed when the thread
// started.
type ThreadHead struct {
	TS               string
	Text             string
	MentionedUserIDs []string
}

// Mentions reports whether the thread head mentioned the given user.
func (h *ThreadHead) Mentions(userID string) bool {
	if h == nil {
		return false
	}
	for _, id := range h.MentionedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// History is an ordered sequence of prior thread messages, oldest first.
// It never contains the triggering event itself.
type History []*Message

// BotIdentity is the bot's own Slack identity, resolved once at startup
// via auth.test and passed to the components that need it.
type BotIdentity struct {
	UserID string
	TeamID string
}
