package entity

import "strings"

// Task is the reply strategy selected for a message. Selected once,
// never reassigned.
type Task string

const (
	TaskAdsRewrite   Task = "ads-rewrite"
	TaskUIRewrite    Task = "ui-rewrite"
	TaskProofread    Task = "proofread"
	TaskConversation Task = "conversation"
)

// ParseTask normalizes a classifier output to one of the four tasks.
// Anything unrecognized, including empty output, falls back to
// conversation so a flaky classification never produces an undefined
// state.
func ParseTask(raw string) Task {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(raw), `"'.`)) {
	case "ads", "ads-rewrite", "ad":
		return TaskAdsRewrite
	case "ui", "ui-rewrite":
		return TaskUIRewrite
	case "proofread", "proofreading":
		return TaskProofread
	default:
		return TaskConversation
	}
}
