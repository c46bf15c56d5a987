package reply

import (
	"fmt"
	"strings"

	"github.com/vibedev/vira/internal/domain/entity"
)

// Strategy system preambles. Each reply strategy is the same pipeline
// with a different opening instruction.
const (
	conversationPreamble = "You are Vira, a helpful and concise assistant embedded in a team's Slack workspace. " +
		"Answer in the language the user writes in. Use Slack mrkdwn formatting sparingly."

	adsRewritePreamble = "You are a marketing copywriter. Rewrite the user's text as polished advertising copy. " +
		"Keep the original language and intent; return only the rewritten text."

	uiRewritePreamble = "You are a UX writer. Rewrite the user's text as clear, friendly product UI copy. " +
		"Keep it short and actionable; return only the rewritten text."

	proofreadPreamble = "You are a careful proofreader. Correct spelling, grammar, and punctuation in the user's text " +
		"without changing its meaning or tone. Return only the corrected text."

	classifyPreamble = "Classify the intent of the last user message given the conversation. " +
		"Answer with exactly one word from: ads, ui, proofread, conversation. " +
		"Use ads for advertising copy rewriting requests, ui for product UI copy rewriting requests, " +
		"proofread for proofreading requests, and conversation for everything else."
)

// preambleFor maps a task to its strategy preamble.
func preambleFor(task entity.Task) string {
	switch task {
	case entity.TaskAdsRewrite:
		return adsRewritePreamble
	case entity.TaskUIRewrite:
		return uiRewritePreamble
	case entity.TaskProofread:
		return proofreadPreamble
	default:
		return conversationPreamble
	}
}

// BuildPrompt assembles the chronological prompt for a strategy:
// system preamble, then history oldest first, then the triggering
// message. History entries authored by the bot become assistant
// entries; everything else is attributed user text.
func BuildPrompt(task entity.Task, msg *entity.Message, history entity.History, bot entity.BotIdentity) entity.Prompt {
	var p entity.Prompt
	p.Add(entity.RoleSystem, preambleFor(task))
	appendHistory(&p, history, bot)
	p.Add(entity.RoleUser, userEntry(msg))
	return p
}

// BuildRawPrompt is the --raw escape hatch: the cleaned message text and
// nothing else.
func BuildRawPrompt(msg *entity.Message) entity.Prompt {
	var p entity.Prompt
	p.Add(entity.RoleUser, msg.PromptText())
	return p
}

// BuildClassificationPrompt assembles the task-detection prompt.
func BuildClassificationPrompt(msg *entity.Message, history entity.History, bot entity.BotIdentity) entity.Prompt {
	var p entity.Prompt
	p.Add(entity.RoleSystem, classifyPreamble)
	appendHistory(&p, history, bot)
	p.Add(entity.RoleUser, userEntry(msg))
	return p
}

// TrimOldest returns the prompt with its oldest history entry removed.
// The system preamble (first entry) and the triggering message (last
// entry) always survive; ok is false when there is nothing left to trim.
func TrimOldest(p entity.Prompt) (entity.Prompt, bool) {
	if len(p.Entries) <= 2 {
		return p, false
	}
	trimmed := entity.Prompt{Entries: make([]entity.PromptEntry, 0, len(p.Entries)-1)}
	trimmed.Entries = append(trimmed.Entries, p.Entries[0])
	trimmed.Entries = append(trimmed.Entries, p.Entries[2:]...)
	return trimmed, true
}

func appendHistory(p *entity.Prompt, history entity.History, bot entity.BotIdentity) {
	for _, m := range history {
		if m.User != nil && m.User.ID == bot.UserID {
			p.Add(entity.RoleAssistant, entity.CleanText(m.Text))
			continue
		}
		p.Add(entity.RoleUser, userEntry(m))
	}
}

// userEntry renders a user message for the prompt, prefixed with the
// author's name so the model can track multi-party threads.
func userEntry(m *entity.Message) string {
	text := m.PromptText()
	if name := m.User.Name(); name != "" {
		return fmt.Sprintf("%s: %s", name, text)
	}
	return strings.TrimSpace(text)
}
