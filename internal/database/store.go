package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/kawanbot/internal/i18n"
)

// ErrStorage wraps all storage failures so callers can distinguish them
// from upstream or validation errors.
var ErrStorage = errors.New("storage error")

const (
	defaultRecentLimit = 4
	maxRecentLimit     = 50
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetUserLanguage returns a user's preference language. The boolean
	// is false when the user has no stored preference yet.
	GetUserLanguage(ctx context.Context, userID string) (i18n.Code, bool, error)

	// SetUserLanguage upserts a user's preference language. Invalid codes
	// are rejected before touching the database.
	SetUserLanguage(ctx context.Context, userID string, lang i18n.Code) error

	// GetGroupSetting returns a group's translation setting, or nil when
	// the group has none.
	GetGroupSetting(ctx context.Context, groupID string) (*GroupSetting, error)

	// SetGroupTranslation upserts a group's auto-translation state.
	// target and enabledBy are required when enabling.
	SetGroupTranslation(ctx context.Context, groupID string, enabled bool, target i18n.Code, enabledBy string) error

	// SaveMessage inserts a new conversation message record.
	SaveMessage(ctx context.Context, message *ConversationMessage) error

	// GetRecentMessages retrieves the most recent 'limit' messages for a
	// user, ordered oldest-first.
	GetRecentMessages(ctx context.Context, userID string, limit int) ([]ConversationMessage, error)

	// ClearConversation deletes a user's conversation history and returns
	// the number of deleted rows. Clearing an empty history is not an error.
	ClearConversation(ctx context.Context, userID string) (int64, error)

	// PurgeMessagesOlderThan deletes conversation messages older than the
	// given age across all users, returning the number of deleted rows.
	PurgeMessagesOlderThan(ctx context.Context, age time.Duration) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping failed: %v", ErrStorage, err)
	}
	return nil
}

// GetUserLanguage returns a user's preference language. The boolean is
// false for users who never set one.
func (s *sqlxStore) GetUserLanguage(ctx context.Context, userID string) (i18n.Code, bool, error) {
	if userID == "" {
		return "", false, fmt.Errorf("%w: user_id cannot be empty", ErrStorage)
	}
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}

	var lang string
	query := `SELECT language FROM user_preferences WHERE user_id = ?`

	err := s.db.GetContext(ctx, &lang, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No language preference found", "user_id", userID)
		return "", false, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return "", false, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user language", "user_id", userID, "error", err)
		return "", false, fmt.Errorf("%w: failed to get language for user %s: %v", ErrStorage, userID, err)
	}

	return i18n.Code(lang), true, nil
}

// SetUserLanguage upserts a user's preference language.
// Last write wins; there is no optimistic locking on preferences.
func (s *sqlxStore) SetUserLanguage(ctx context.Context, userID string, lang i18n.Code) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id cannot be empty", ErrStorage)
	}
	if !i18n.Valid(lang) {
		return fmt.Errorf("%w: %q", i18n.ErrInvalidLanguage, lang)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO user_preferences (user_id, language, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (user_id) DO UPDATE SET
            language = excluded.language,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.ExecContext(ctx, query, userID, string(lang), now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error saving user language", "user_id", userID, "language", lang, "error", err)
		return fmt.Errorf("%w: failed to set language for user %s: %v", ErrStorage, userID, err)
	}

	s.logger.DebugContext(ctx, "User language saved", "user_id", userID, "language", lang)
	return nil
}

// GetGroupSetting returns a group's translation setting, or nil when absent.
func (s *sqlxStore) GetGroupSetting(ctx context.Context, groupID string) (*GroupSetting, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group_id cannot be empty", ErrStorage)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var setting GroupSetting
	query := `SELECT group_id, translation_enabled, target_language, enabled_by, created_at, updated_at
	          FROM group_settings WHERE group_id = ?`

	err := s.db.GetContext(ctx, &setting, query, groupID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No group setting found", "group_id", groupID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting group setting", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("%w: failed to get setting for group %s: %v", ErrStorage, groupID, err)
	}

	return &setting, nil
}

// SetGroupTranslation upserts a group's auto-translation state.
func (s *sqlxStore) SetGroupTranslation(ctx context.Context, groupID string, enabled bool, target i18n.Code, enabledBy string) error {
	if groupID == "" {
		return fmt.Errorf("%w: group_id cannot be empty", ErrStorage)
	}
	if enabled {
		if !i18n.ValidTranslationTarget(target) {
			return fmt.Errorf("%w: %q", i18n.ErrInvalidLanguage, target)
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var targetVal, enabledByVal sql.NullString
	if enabled {
		targetVal = sql.NullString{String: string(target), Valid: true}
		enabledByVal = sql.NullString{String: enabledBy, Valid: enabledBy != ""}
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO group_settings (group_id, translation_enabled, target_language, enabled_by, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (group_id) DO UPDATE SET
            translation_enabled = excluded.translation_enabled,
            target_language = excluded.target_language,
            enabled_by = excluded.enabled_by,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.ExecContext(ctx, query, groupID, enabled, targetVal, enabledByVal, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error saving group translation setting",
			"group_id", groupID, "enabled", enabled, "error", err)
		return fmt.Errorf("%w: failed to set translation for group %s: %v", ErrStorage, groupID, err)
	}

	s.logger.DebugContext(ctx, "Group translation setting saved",
		"group_id", groupID, "enabled", enabled, "target", target)
	return nil
}

// SaveMessage inserts a new conversation message record.
func (s *sqlxStore) SaveMessage(ctx context.Context, message *ConversationMessage) error {
	if message == nil {
		return fmt.Errorf("%w: cannot save nil message", ErrStorage)
	}
	if message.UserID == "" {
		return fmt.Errorf("%w: message must have a non-empty user_id", ErrStorage)
	}
	if message.Role != RoleUser && message.Role != RoleAssistant {
		return fmt.Errorf("%w: invalid message role %q", ErrStorage, message.Role)
	}
	if message.Content == "" {
		return fmt.Errorf("%w: message must have non-empty content", ErrStorage)
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving message",
			"user_id", message.UserID, "error", err)
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrStorage, err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	query := `
        INSERT INTO conversation_messages (id, user_id, role, content, created_at)
        VALUES (:id, :user_id, :role, :content, :created_at);
    `

	if _, err := tx.NamedExecContext(ctx, query, message); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "user_id", message.UserID, "role", message.Role, "error", err)
		return fmt.Errorf("%w: failed to save message for user %s: %v", ErrStorage, message.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "user_id", message.UserID, "error", err)
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrStorage, err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Message saved successfully",
		"user_id", message.UserID, "role", message.Role, "message_id", message.ID)
	return nil
}

// GetRecentMessages retrieves the most recent 'limit' messages for a
// user. Rows are fetched newest-first and reversed, so callers always
// see the window in chronological order.
func (s *sqlxStore) GetRecentMessages(ctx context.Context, userID string, limit int) ([]ConversationMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id cannot be empty", ErrStorage)
	}

	if limit <= 0 {
		limit = defaultRecentLimit
		s.logger.DebugContext(ctx, "Invalid limit provided, using default", "user_id", userID, "default_limit", limit)
	} else if limit > maxRecentLimit {
		limit = maxRecentLimit
		s.logger.DebugContext(ctx, "Limit exceeded maximum value, capping", "user_id", userID, "capped_limit", limit)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []ConversationMessage
	query := `
        SELECT id, user_id, role, content, created_at
        FROM conversation_messages
        WHERE user_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &messages, query, userID, limit)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "user_id", userID, "limit", limit, "error", err)
		return nil, fmt.Errorf("%w: failed to get recent messages for user %s: %v", ErrStorage, userID, err)
	}

	// Reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	s.logger.DebugContext(ctx, "Fetched recent messages successfully", "user_id", userID, "count", len(messages))
	return messages, nil
}

// ClearConversation deletes a user's conversation history. Clearing a
// user with no history succeeds with a zero count.
func (s *sqlxStore) ClearConversation(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user_id cannot be empty", ErrStorage)
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM conversation_messages WHERE user_id = ?`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error clearing conversation", "user_id", userID, "error", err)
		return 0, fmt.Errorf("%w: failed to clear conversation for user %s: %v", ErrStorage, userID, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Cleared conversation history", "user_id", userID, "deleted", count)
	return count, nil
}

// PurgeMessagesOlderThan deletes conversation messages older than the
// given age across all users.
func (s *sqlxStore) PurgeMessagesOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, fmt.Errorf("%w: purge age must be positive", ErrStorage)
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	cutoff := time.Now().UTC().Add(-age)
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversation_messages WHERE created_at < ?`, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error purging old messages", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("%w: failed to purge messages older than %s: %v", ErrStorage, age, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Purged old conversation messages", "cutoff", cutoff, "deleted", count)
	return count, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("%w: database maintenance (VACUUM) timed out: %v", ErrStorage, err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("%w: failed to execute VACUUM: %v", ErrStorage, err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
