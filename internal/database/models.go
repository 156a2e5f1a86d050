package database

import (
	"database/sql"
	"time"

	"github.com/edgard/kawanbot/internal/i18n"
)

// Conversation roles stored with each message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UserPreference stores a user's selected language. Absence of a row
// marks a new user who has not picked a language yet.
type UserPreference struct {
	UserID    string    `db:"user_id"`
	Language  i18n.Code `db:"language"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ConversationMessage is one turn of a user's one-on-one conversation
// with the bot.
type ConversationMessage struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// GroupSetting stores per-group auto-translation state. TargetLanguage
// and EnabledBy are null while translation is disabled.
type GroupSetting struct {
	GroupID            string         `db:"group_id"`
	TranslationEnabled bool           `db:"translation_enabled"`
	TargetLanguage     sql.NullString `db:"target_language"`
	EnabledBy          sql.NullString `db:"enabled_by"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

// Target returns the translation target language, or empty when unset.
func (g *GroupSetting) Target() i18n.Code {
	if !g.TargetLanguage.Valid {
		return ""
	}
	return i18n.Code(g.TargetLanguage.String)
}
