// Package intent classifies incoming chat text into bot commands. The
// classifier is pure: it never touches storage or the network and it
// never fails, so transports can call it on every message.
package intent

import (
	"strings"

	"github.com/edgard/kawanbot/internal/i18n"
)

// Kind discriminates the Intent union.
type Kind int

const (
	// KindFreeform is any text that is not a command. It goes to the LLM.
	KindFreeform Kind = iota
	// KindLanguage sets the user's preference language.
	KindLanguage
	// KindLanguageMenu asks for the language selection prompt.
	KindLanguageMenu
	// KindClear wipes the user's conversation history.
	KindClear
	// KindHelp asks for the usage text.
	KindHelp
	// KindEmergency asks for the emergency contact table.
	KindEmergency
	// KindGroupTranslate toggles group auto-translation.
	KindGroupTranslate
	// KindGroupTranslateUsage is a malformed /translate invocation.
	KindGroupTranslateUsage
	// KindUnknown is slash-prefixed text that matches no command.
	KindUnknown
)

// Intent is the classified form of one incoming message. Only the fields
// relevant to the Kind are populated.
type Intent struct {
	Kind Kind

	// Lang is the requested preference language for KindLanguage.
	Lang i18n.Code

	// Enabled and Target carry the /translate arguments for
	// KindGroupTranslate.
	Enabled bool
	Target  i18n.Code

	// Text is the trimmed message body for KindFreeform.
	Text string
}

// Classify maps raw message text to an Intent. Slash-prefixed text always
// classifies as a command kind, never as freeform, so a typo like
// "/clearr" cannot leak into the LLM path.
func Classify(raw string) Intent {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "/") {
		return Intent{Kind: KindFreeform, Text: trimmed}
	}

	fields := strings.Fields(trimmed)
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "/lang", "/language":
		return classifyLang(args)
	case "/clear":
		if len(args) == 0 {
			return Intent{Kind: KindClear}
		}
	case "/help":
		if len(args) == 0 {
			return Intent{Kind: KindHelp}
		}
	case "/emergency":
		if len(args) == 0 {
			return Intent{Kind: KindEmergency}
		}
	case "/translate":
		return classifyTranslate(args)
	}

	return Intent{Kind: KindUnknown}
}

func classifyLang(args []string) Intent {
	if len(args) != 1 {
		return Intent{Kind: KindLanguageMenu}
	}

	code := i18n.Normalize(args[0])
	if !i18n.Valid(code) {
		return Intent{Kind: KindLanguageMenu}
	}

	return Intent{Kind: KindLanguage, Lang: code}
}

func classifyTranslate(args []string) Intent {
	if len(args) == 0 {
		return Intent{Kind: KindGroupTranslateUsage}
	}

	switch strings.ToLower(args[0]) {
	case "on":
		if len(args) != 2 {
			return Intent{Kind: KindGroupTranslateUsage}
		}
		target := i18n.Normalize(args[1])
		if !i18n.ValidTranslationTarget(target) {
			return Intent{Kind: KindGroupTranslateUsage}
		}
		return Intent{Kind: KindGroupTranslate, Enabled: true, Target: target}
	case "off":
		if len(args) != 1 {
			return Intent{Kind: KindGroupTranslateUsage}
		}
		return Intent{Kind: KindGroupTranslate, Enabled: false}
	default:
		return Intent{Kind: KindGroupTranslateUsage}
	}
}
