// Package i18n defines the supported languages and the localized message
// catalog used for all canned bot replies.
package i18n

import (
	"errors"
	"strings"
)

// ErrInvalidLanguage is returned when a language code is outside the
// supported set.
var ErrInvalidLanguage = errors.New("invalid language")

// Code is a supported language code.
type Code string

// Languages a user can select as their preference.
const (
	Indonesian Code = "id"
	Chinese    Code = "zh"
	English    Code = "en"
	Vietnamese Code = "vi"
)

// Additional languages accepted only as group translation targets.
const (
	Thai    Code = "th"
	Tagalog Code = "fil"
)

// DefaultLanguage is used before a user has picked a preference.
const DefaultLanguage = English

var languageNames = map[Code]string{
	Indonesian: "Bahasa Indonesia",
	Chinese:    "繁體中文",
	English:    "English",
	Vietnamese: "Tiếng Việt",
	Thai:       "ภาษาไทย",
	Tagalog:    "Tagalog",
}

var languageFlags = map[Code]string{
	Indonesian: "🇮🇩",
	Chinese:    "🇹🇼",
	English:    "🇬🇧",
	Vietnamese: "🇻🇳",
	Thai:       "🇹🇭",
	Tagalog:    "🇵🇭",
}

// Supported returns the languages a user may set as their preference,
// in menu order.
func Supported() []Code {
	return []Code{Indonesian, Chinese, English, Vietnamese}
}

// Valid reports whether code is a selectable preference language.
func Valid(code Code) bool {
	switch code {
	case Indonesian, Chinese, English, Vietnamese:
		return true
	default:
		return false
	}
}

// ValidTranslationTarget reports whether code may be used as a group
// auto-translation target. The target set is wider than the preference
// set.
func ValidTranslationTarget(code Code) bool {
	if Valid(code) {
		return true
	}
	return code == Thai || code == Tagalog
}

// Normalize lower-cases and trims a raw code string.
func Normalize(raw string) Code {
	return Code(strings.ToLower(strings.TrimSpace(raw)))
}

// Name returns the native display name for a language. Unknown codes are
// echoed back upper-cased so prompts stay readable.
func Name(code Code) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return strings.ToUpper(string(code))
}

// Flag returns the flag emoji used when formatting translations.
func Flag(code Code) string {
	if flag, ok := languageFlags[code]; ok {
		return flag
	}
	return "🌐"
}
