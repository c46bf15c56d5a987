package entity

// PromptRole tags a prompt entry with its conversational role.
type PromptRole string

const (
	RoleSystem    PromptRole = "system"
	RoleUser      PromptRole = "user"
	RoleAssistant PromptRole = "assistant"
)

// PromptEntry is one role-tagged line of a prompt.
type PromptEntry struct {
	Role    PromptRole
	Content string
}

// Prompt is the ordered, chronological sequence of entries sent to the
// completion backend. Entry order is the contract the backend relies on
// for context coherence; a prompt is consumed exactly once.
type Prompt struct {
	Entries []PromptEntry
}

// Add appends an entry to the prompt.
func (p *Prompt) Add(role PromptRole, content string) {
	p.Entries = append(p.Entries, PromptEntry{Role: role, Content: content})
}

// Len returns the number of entries.
func (p *Prompt) Len() int {
	return len(p.Entries)
}

// Completion is one unit of model output. A streaming response produces
// many completions, some of which carry no content (metadata-only
// chunks); concatenating the non-empty contents in emission order yields
// the final reply text.
type Completion struct {
	Content string
}

// HasContent reports whether this completion carries reply text.
func (c Completion) HasContent() bool {
	return c.Content != ""
}
