package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/kawanbot/internal/ai"
	"github.com/edgard/kawanbot/internal/config"
	"github.com/edgard/kawanbot/internal/database"
	"github.com/edgard/kawanbot/internal/gemini"
	"github.com/edgard/kawanbot/internal/i18n"
	"github.com/edgard/kawanbot/internal/intent"
	"github.com/edgard/kawanbot/internal/maps"
	"github.com/edgard/kawanbot/internal/text"
)

// ErrUnauthorized marks group commands rejected by the authorizer.
var ErrUnauthorized = errors.New("unauthorized")

// defaultNearbyKeyword seeds location replies when the user has not
// picked a category.
const defaultNearbyKeyword = "indonesian restaurant"

// Source identifies where an event came from. GroupID is empty for
// one-on-one chats.
type Source struct {
	UserID  string
	GroupID string
}

// GroupAuthorizer decides whether a user may change group settings.
type GroupAuthorizer interface {
	IsGroupAdmin(ctx context.Context, groupID, userID string) (bool, error)
}

// AllowAllAuthorizer permits every group member to toggle translation.
// The LINE API exposes no member roles for ordinary groups, so this is
// the default policy; stricter ones can be injected.
type AllowAllAuthorizer struct{}

// IsGroupAdmin always reports true.
func (AllowAllAuthorizer) IsGroupAdmin(context.Context, string, string) (bool, error) {
	return true, nil
}

// ResponderDeps provides dependencies for the reply orchestrator.
type ResponderDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      database.Store
	Completer  ai.Completer
	Translator gemini.Translator
	Places     maps.Finder
	Catalog    *i18n.Catalog
	Authorizer GroupAuthorizer
}

// Responder turns incoming events into reply text. It owns all routing
// decisions: command dispatch, the new-user language gate, group
// translation passthrough, and conversation logging.
type Responder struct {
	log        *slog.Logger
	cfg        *config.Config
	store      database.Store
	completer  ai.Completer
	translator gemini.Translator
	places     maps.Finder
	catalog    *i18n.Catalog
	authorizer GroupAuthorizer
}

// NewResponder creates the reply orchestrator.
func NewResponder(deps ResponderDeps) *Responder {
	authorizer := deps.Authorizer
	if authorizer == nil {
		authorizer = AllowAllAuthorizer{}
	}
	return &Responder{
		log:        deps.Logger.With("component", "responder"),
		cfg:        deps.Config,
		store:      deps.Store,
		completer:  deps.Completer,
		translator: deps.Translator,
		places:     deps.Places,
		catalog:    deps.Catalog,
		authorizer: authorizer,
	}
}

// RespondText handles an incoming text message and returns the reply.
// An empty reply with a nil error means no reply should be sent.
func (r *Responder) RespondText(ctx context.Context, src Source, message string) (string, error) {
	if src.GroupID != "" {
		return r.respondGroup(ctx, src, message)
	}
	return r.dispatch(ctx, src.UserID, intent.Classify(message))
}

// dispatch answers a classified message for one user. It serves both
// one-on-one chats and group chats without active translation.
func (r *Responder) dispatch(ctx context.Context, userID string, it intent.Intent) (string, error) {
	lang, found, err := r.store.GetUserLanguage(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user language: %w", err)
	}
	if !found {
		lang = r.cfg.Bot.DefaultLanguage
	}

	switch it.Kind {
	case intent.KindLanguage:
		return r.setLanguage(ctx, userID, it.Lang, found)

	case intent.KindLanguageMenu:
		return r.catalog.Get(lang, i18n.KeyLanguageSelect), nil

	case intent.KindClear:
		if _, err := r.store.ClearConversation(ctx, userID); err != nil {
			return "", fmt.Errorf("failed to clear conversation: %w", err)
		}
		return r.catalog.Get(lang, i18n.KeyCleared), nil

	case intent.KindHelp:
		return r.catalog.Get(lang, i18n.KeyHelp), nil

	case intent.KindEmergency:
		return i18n.EmergencyInfo(), nil

	case intent.KindGroupTranslate, intent.KindGroupTranslateUsage:
		// /translate only makes sense inside a group
		return r.catalog.Get(lang, i18n.KeyGroupUsage), nil

	case intent.KindUnknown:
		return r.catalog.Get(lang, i18n.KeyHelp), nil

	default: // intent.KindFreeform
		// New users pick a language before anything reaches the LLM
		if !found {
			r.log.InfoContext(ctx, "New user, prompting for language selection", "user_id", userID)
			return r.catalog.Get(lang, i18n.KeyLanguageSelect), nil
		}
		return r.chat(ctx, userID, lang, it.Text)
	}
}

// RespondPostback handles rich menu postback data.
func (r *Responder) RespondPostback(ctx context.Context, src Source, data string) (string, error) {
	lang, found, err := r.store.GetUserLanguage(ctx, src.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to load user language: %w", err)
	}
	if !found {
		lang = r.cfg.Bot.DefaultLanguage
	}

	switch {
	case data == "clear_chat":
		if _, err := r.store.ClearConversation(ctx, src.UserID); err != nil {
			return "", fmt.Errorf("failed to clear conversation: %w", err)
		}
		return r.catalog.Get(lang, i18n.KeyCleared), nil

	case data == "category_emergency":
		return i18n.EmergencyInfo(), nil

	case data == "category_language":
		return r.catalog.Get(lang, i18n.KeyLanguageSelect), nil

	case strings.HasPrefix(data, "lang_"):
		code := i18n.Normalize(strings.TrimPrefix(data, "lang_"))
		if !i18n.Valid(code) {
			return r.catalog.Get(lang, i18n.KeyLanguageSelect), nil
		}
		return r.setLanguage(ctx, src.UserID, code, found)

	default:
		prompt, ok := categoryPrompts[data]
		if !ok {
			return r.catalog.Get(lang, i18n.KeyHelp), nil
		}
		return r.chat(ctx, src.UserID, lang, prompt)
	}
}

// RespondLocation handles a shared location by looking up nearby places.
func (r *Responder) RespondLocation(ctx context.Context, src Source, lat, lng float64) (string, error) {
	lang, found, err := r.store.GetUserLanguage(ctx, src.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to load user language: %w", err)
	}
	if !found {
		lang = r.cfg.Bot.DefaultLanguage
	}

	if r.places == nil || !r.places.Available() {
		return r.catalog.Get(lang, i18n.KeyErrorFallback), nil
	}

	places, err := r.places.FindNearby(ctx, lat, lng, defaultNearbyKeyword, r.cfg.Bot.NearbyResults)
	if err != nil || len(places) == 0 {
		if err != nil {
			r.log.ErrorContext(ctx, "Nearby place lookup failed", "user_id", src.UserID, "error", err)
		}
		return r.catalog.Get(lang, i18n.KeyErrorFallback), nil
	}

	return maps.FormatPlaces("📍", places), nil
}

// categoryPrompts maps rich menu categories to the freeform prompt sent
// to the LLM on the user's behalf.
var categoryPrompts = map[string]string{
	"category_labor":      "I have a problem at work",
	"category_government": "I need information about government services",
	"category_daily":      "I need help with daily life",
	"category_translate":  "I need translation help",
	"category_healthcare": "I need healthcare information",
}

// setLanguage persists a preference change. The first-ever selection
// gets the welcome message, later changes the confirmation, both in the
// newly selected language.
func (r *Responder) setLanguage(ctx context.Context, userID string, lang i18n.Code, hadLanguage bool) (string, error) {
	if err := r.store.SetUserLanguage(ctx, userID, lang); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}

	r.log.InfoContext(ctx, "User language updated", "user_id", userID, "language", lang, "first_time", !hadLanguage)

	if !hadLanguage {
		return r.catalog.Get(lang, i18n.KeyWelcome), nil
	}
	return r.catalog.Get(lang, i18n.KeyLanguageChanged), nil
}

// chat runs the LLM conversation flow: recent history in, sanitized
// reply out, both turns appended to the log afterwards.
func (r *Responder) chat(ctx context.Context, userID string, lang i18n.Code, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return r.catalog.Get(lang, i18n.KeyHelp), nil
	}

	history, err := r.store.GetRecentMessages(ctx, userID, r.cfg.Bot.HistoryLimit)
	if err != nil {
		// Degrade to a contextless completion rather than dropping the message
		r.log.WarnContext(ctx, "Failed to load conversation history", "user_id", userID, "error", err)
		history = nil
	}

	turns := make([]ai.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, ai.Turn{Role: msg.Role, Content: msg.Content})
	}

	reply, err := r.completer.Complete(ctx, lang, turns, message)
	if err != nil {
		// The user still gets a useful localized reply when the model is down
		r.log.ErrorContext(ctx, "Chat completion failed, using fallback reply", "user_id", userID, "error", err)
		return r.catalog.Get(lang, i18n.KeyHelp), nil
	}

	reply = text.SanitizeReply(reply)
	if reply == "" {
		r.log.WarnContext(ctx, "Chat completion empty after sanitizing, using fallback reply", "user_id", userID)
		return r.catalog.Get(lang, i18n.KeyHelp), nil
	}

	// Log writes must not block the reply once the completion succeeded
	for _, msg := range []*database.ConversationMessage{
		{UserID: userID, Role: database.RoleUser, Content: message},
		{UserID: userID, Role: database.RoleAssistant, Content: reply},
	} {
		if err := r.store.SaveMessage(ctx, msg); err != nil {
			r.log.ErrorContext(ctx, "Failed to append conversation message", "user_id", userID, "role", msg.Role, "error", err)
		}
	}

	return reply, nil
}

// respondGroup handles group chat messages. While translation is active
// only the /translate command is interpreted and everything else is
// auto-translated; without an active setting the group behaves like a
// one-on-one chat.
func (r *Responder) respondGroup(ctx context.Context, src Source, message string) (string, error) {
	it := intent.Classify(message)

	if it.Kind == intent.KindGroupTranslate || it.Kind == intent.KindGroupTranslateUsage {
		return r.groupTranslateCommand(ctx, src, it)
	}

	setting, err := r.store.GetGroupSetting(ctx, src.GroupID)
	if err != nil {
		return "", fmt.Errorf("failed to load group setting: %w", err)
	}
	if setting == nil || !setting.TranslationEnabled || setting.Target() == "" {
		return r.dispatch(ctx, src.UserID, it)
	}

	// Translation passthrough: no classification, no conversation log
	translated, err := r.translator.Translate(ctx, message, setting.Target(), gemini.SourceAuto)
	if err != nil {
		r.log.ErrorContext(ctx, "Group auto-translation failed", "group_id", src.GroupID, "error", err)
		return "", nil
	}

	return gemini.FormatTranslation(translated, setting.Target()), nil
}

func (r *Responder) groupTranslateCommand(ctx context.Context, src Source, it intent.Intent) (string, error) {
	lang, found, err := r.store.GetUserLanguage(ctx, src.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to load user language: %w", err)
	}
	if !found {
		lang = r.cfg.Bot.DefaultLanguage
	}

	admin, err := r.authorizer.IsGroupAdmin(ctx, src.GroupID, src.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to check group admin: %w", err)
	}
	if !admin {
		r.log.InfoContext(ctx, "Group translation command rejected",
			"group_id", src.GroupID, "user_id", src.UserID, "error", ErrUnauthorized)
		return r.catalog.Get(lang, i18n.KeyAdminOnly), nil
	}

	if it.Kind == intent.KindGroupTranslateUsage {
		return r.catalog.Get(lang, i18n.KeyGroupUsage), nil
	}

	if err := r.store.SetGroupTranslation(ctx, src.GroupID, it.Enabled, it.Target, src.UserID); err != nil {
		return "", fmt.Errorf("failed to set group translation: %w", err)
	}

	if it.Enabled {
		r.log.InfoContext(ctx, "Group translation enabled", "group_id", src.GroupID, "target", it.Target)
		return fmt.Sprintf(r.catalog.Get(lang, i18n.KeyTranslationEnabled), i18n.Name(it.Target)), nil
	}

	r.log.InfoContext(ctx, "Group translation disabled", "group_id", src.GroupID)
	return r.catalog.Get(lang, i18n.KeyTranslationDisabled), nil
}
