// Package text cleans up LLM output before it is sent to chat. Replies
// must be plain text: reasoning traces and markdown styling are stripped.
package text

import (
	"regexp"
	"strings"
)

var (
	// Reasoning models may emit a chain-of-thought block terminated by
	// </think>. Everything up to and including the closing tag is dropped.
	thinkBlockRegex = regexp.MustCompile(`(?s)^.*?</think>\s*`)

	boldRegex      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	boldAltRegex   = regexp.MustCompile(`__([^_]+)__`)
	italicRegex    = regexp.MustCompile(`\*([^*]+)\*`)
	italicAltRegex = regexp.MustCompile(`_([^_]+)_`)

	multipleNewlinesRegex = regexp.MustCompile(`\n{3,}`)
)

// StripReasoning removes a leading chain-of-thought block from a model
// reply. Text without a </think> tag is returned unchanged.
func StripReasoning(s string) string {
	return thinkBlockRegex.ReplaceAllString(s, "")
}

// StripMarkdown removes bold and italic styling markers while keeping
// their content. Double markers are processed before single ones so that
// "**x**" does not degrade into "*x*".
func StripMarkdown(s string) string {
	s = boldRegex.ReplaceAllString(s, "$1")
	s = boldAltRegex.ReplaceAllString(s, "$1")
	s = italicRegex.ReplaceAllString(s, "$1")
	s = italicAltRegex.ReplaceAllString(s, "$1")
	return s
}

// SanitizeReply normalizes a model reply for delivery: reasoning blocks
// and markdown styling are stripped, line endings are unified, and runs
// of blank lines are collapsed.
func SanitizeReply(s string) string {
	s = StripReasoning(s)
	s = StripMarkdown(s)

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = multipleNewlinesRegex.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// Truncate shortens s to at most limit runes, appending an ellipsis when
// content was cut. Limits guard LLM context budgets, not storage.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}
