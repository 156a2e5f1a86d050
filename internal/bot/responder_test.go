package bot_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/edgard/kawanbot/internal/ai"
	"github.com/edgard/kawanbot/internal/bot"
	"github.com/edgard/kawanbot/internal/config"
	"github.com/edgard/kawanbot/internal/database"
	"github.com/edgard/kawanbot/internal/gemini"
	"github.com/edgard/kawanbot/internal/i18n"
	"github.com/edgard/kawanbot/internal/maps"
)

type fakeCompleter struct {
	reply string
	err   error

	calls    int
	lastLang i18n.Code
	lastMsg  string
	lastHist []ai.Turn
}

func (f *fakeCompleter) Complete(_ context.Context, lang i18n.Code, history []ai.Turn, message string) (string, error) {
	f.calls++
	f.lastLang = lang
	f.lastMsg = message
	f.lastHist = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeTranslator struct {
	translated string
	err        error

	calls      int
	lastText   string
	lastTarget i18n.Code
}

func (f *fakeTranslator) Translate(_ context.Context, content string, target i18n.Code, _ string) (string, error) {
	f.calls++
	f.lastText = content
	f.lastTarget = target
	if f.err != nil {
		return "", f.err
	}
	return f.translated, nil
}

type fakeFinder struct {
	available bool
	places    []maps.Place
	err       error
}

func (f *fakeFinder) Available() bool { return f.available }

func (f *fakeFinder) FindNearby(context.Context, float64, float64, string, int) ([]maps.Place, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.places, nil
}

type denyAuthorizer struct{}

func (denyAuthorizer) IsGroupAdmin(context.Context, string, string) (bool, error) {
	return false, nil
}

// failingSaveStore makes every SaveMessage call fail while delegating
// everything else to the real store.
type failingSaveStore struct {
	database.Store
}

func (failingSaveStore) SaveMessage(context.Context, *database.ConversationMessage) error {
	return fmt.Errorf("%w: disk full", database.ErrStorage)
}

type testEnv struct {
	responder  *bot.Responder
	store      database.Store
	completer  *fakeCompleter
	translator *fakeTranslator
	catalog    *i18n.Catalog
}

func newTestEnv(t *testing.T, mutate func(deps *bot.ResponderDeps)) *testEnv {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewStore(db, logger)

	catalog, err := i18n.NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	completer := &fakeCompleter{reply: "hello there"}
	translator := &fakeTranslator{translated: "translated text"}

	deps := bot.ResponderDeps{
		Logger: logger,
		Config: &config.Config{
			Bot: config.BotConfig{
				DefaultLanguage: i18n.English,
				HistoryLimit:    4,
				MaxMessageChars: 2000,
				MaxHistoryChars: 500,
				RetentionDays:   30,
				NearbyResults:   5,
			},
		},
		Store:      store,
		Completer:  completer,
		Translator: translator,
		Places:     &fakeFinder{},
		Catalog:    catalog,
	}
	if mutate != nil {
		mutate(&deps)
	}

	return &testEnv{
		responder:  bot.NewResponder(deps),
		store:      store,
		completer:  completer,
		translator: translator,
		catalog:    catalog,
	}
}

func TestRespondTextNewUserPromptsLanguage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1"}, "hi, can you help me?")
	if err != nil {
		t.Fatalf("RespondText() error = %v", err)
	}

	want := env.catalog.Get(i18n.English, i18n.KeyLanguageSelect)
	if reply != want {
		t.Errorf("RespondText() = %q, want language selection prompt", reply)
	}
	if env.completer.calls != 0 {
		t.Errorf("completer called %d times for a new user, want 0", env.completer.calls)
	}
}

func TestRespondTextChatFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.completer.reply = "**Halo!** Ada yang bisa saya bantu?"

	if err := env.store.SetUserLanguage(ctx, "U1", i18n.Indonesian); err != nil {
		t.Fatalf("SetUserLanguage() error = %v", err)
	}

	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1"}, "halo")
	if err != nil {
		t.Fatalf("RespondText() error = %v", err)
	}
	if reply != "Halo! Ada yang bisa saya bantu?" {
		t.Errorf("RespondText() = %q, want sanitized reply", reply)
	}
	if env.completer.lastLang != i18n.Indonesian {
		t.Errorf("completion language = %q, want %q", env.completer.lastLang, i18n.Indonesian)
	}

	messages, err := env.store.GetRecentMessages(ctx, "U1", 10)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("stored %d messages, want 2", len(messages))
	}
	if messages[0].Role != database.RoleUser || messages[0].Content != "halo" {
		t.Errorf("first stored message = %+v, want user turn", messages[0])
	}
	if messages[1].Role != database.RoleAssistant || messages[1].Content != reply {
		t.Errorf("second stored message = %+v, want assistant turn", messages[1])
	}
}

func TestRespondTextUpstreamFailureFallsBack(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.completer.err = ai.ErrUpstream

	if err := env.store.SetUserLanguage(ctx, "U1", i18n.Vietnamese); err != nil {
		t.Fatalf("SetUserLanguage() error = %v", err)
	}

	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1"}, "help me please")
	if err != nil {
		t.Fatalf("RespondText() error = %v, want nil on upstream failure", err)
	}

	want := env.catalog.Get(i18n.Vietnamese, i18n.KeyHelp)
	if reply != want {
		t.Errorf("RespondText() = %q, want localized help fallback", reply)
	}

	messages, err := env.store.GetRecentMessages(ctx, "U1", 10)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("stored %d messages after failed completion, want 0", len(messages))
	}
}

func TestRespondTextLogWriteFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(deps *bot.ResponderDeps) {
		deps.Store = failingSaveStore{deps.Store}
	})
	ctx := context.Background()
	env.completer.reply = "all good"

	if err := env.store.SetUserLanguage(ctx, "U1", i18n.English); err != nil {
		t.Fatalf("SetUserLanguage() error = %v", err)
	}

	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1"}, "are you there?")
	if err != nil {
		t.Fatalf("RespondText() error = %v, want nil when only log writes fail", err)
	}
	if reply != "all good" {
		t.Errorf("RespondText() = %q, want completion reply despite log failure", reply)
	}
}

func TestRespondTextSetLanguage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	// First selection gets the welcome message in the new language
	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1"}, "/lang id")
	if err != nil {
		t.Fatalf("RespondText(/lang id) error = %v", err)
	}
	if want := env.catalog.Get(i18n.Indonesian, i18n.KeyWelcome); reply != want {
		t.Errorf("first /lang reply = %q, want welcome message", reply)
	}

	// Later changes get the confirmation instead
	reply, err = env.responder.RespondText(ctx, bot.Source{UserID: "U1"}, "/lang zh")
	if err != nil {
		t.Fatalf("RespondText(/lang zh) error = %v", err)
	}
	if want := env.catalog.Get(i18n.Chinese, i18n.KeyLanguageChanged); reply != want {
		t.Errorf("second /lang reply = %q, want change confirmation", reply)
	}

	lang, found, err := env.store.GetUserLanguage(ctx, "U1")
	if err != nil || !found {
		t.Fatalf("GetUserLanguage() = %v, %v, %v", lang, found, err)
	}
	if lang != i18n.Chinese {
		t.Errorf("stored language = %q, want %q", lang, i18n.Chinese)
	}
}

func TestRespondTextUnknownCommandNeverReachesLLM(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	if err := env.store.SetUserLanguage(ctx, "U1", i18n.English); err != nil {
		t.Fatalf("SetUserLanguage() error = %v", err)
	}

	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1"}, "/clearr")
	if err != nil {
		t.Fatalf("RespondText() error = %v", err)
	}
	if want := env.catalog.Get(i18n.English, i18n.KeyHelp); reply != want {
		t.Errorf("RespondText(/clearr) = %q, want help text", reply)
	}
	if env.completer.calls != 0 {
		t.Errorf("completer called %d times for unknown command, want 0", env.completer.calls)
	}
}

func TestRespondTextClear(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	if err := env.store.SetUserLanguage(ctx, "U1", i18n.Chinese); err != nil {
		t.Fatalf("SetUserLanguage() error = %v", err)
	}
	if err := env.store.SaveMessage(ctx, &database.ConversationMessage{
		UserID: "U1", Role: database.RoleUser, Content: "old message",
	}); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1"}, "/clear")
	if err != nil {
		t.Fatalf("RespondText(/clear) error = %v", err)
	}
	if want := env.catalog.Get(i18n.Chinese, i18n.KeyCleared); reply != want {
		t.Errorf("RespondText(/clear) = %q, want cleared confirmation", reply)
	}

	messages, err := env.store.GetRecentMessages(ctx, "U1", 10)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("history has %d messages after /clear, want 0", len(messages))
	}
}

func TestRespondTextTranslateOutsideGroup(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	if err := env.store.SetUserLanguage(ctx, "U1", i18n.English); err != nil {
		t.Fatalf("SetUserLanguage() error = %v", err)
	}

	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1"}, "/translate on vi")
	if err != nil {
		t.Fatalf("RespondText() error = %v", err)
	}
	if want := env.catalog.Get(i18n.English, i18n.KeyGroupUsage); reply != want {
		t.Errorf("RespondText(/translate) = %q, want group usage text", reply)
	}
}

func TestRespondTextGroupTranslationPassthrough(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.translator.translated = "xin chào mọi người"

	if err := env.store.SetGroupTranslation(ctx, "G1", true, i18n.Vietnamese, "U1"); err != nil {
		t.Fatalf("SetGroupTranslation() error = %v", err)
	}

	src := bot.Source{UserID: "U2", GroupID: "G1"}
	reply, err := env.responder.RespondText(ctx, src, "hello everyone")
	if err != nil {
		t.Fatalf("RespondText() error = %v", err)
	}
	if want := gemini.FormatTranslation("xin chào mọi người", i18n.Vietnamese); reply != want {
		t.Errorf("group reply = %q, want formatted translation %q", reply, want)
	}
	if env.translator.lastText != "hello everyone" {
		t.Errorf("translated text = %q, want original message", env.translator.lastText)
	}
	if env.completer.calls != 0 {
		t.Errorf("completer called %d times on the translation path, want 0", env.completer.calls)
	}

	// The translation path never touches the conversation log
	messages, err := env.store.GetRecentMessages(ctx, "U2", 10)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("stored %d messages for group traffic, want 0", len(messages))
	}
}

func TestRespondTextGroupTranslationFailureIsSilent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.translator.err = gemini.ErrUpstream

	if err := env.store.SetGroupTranslation(ctx, "G1", true, i18n.Chinese, "U1"); err != nil {
		t.Fatalf("SetGroupTranslation() error = %v", err)
	}

	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U2", GroupID: "G1"}, "hello")
	if err != nil {
		t.Fatalf("RespondText() error = %v, want nil on translation failure", err)
	}
	if reply != "" {
		t.Errorf("RespondText() = %q, want no reply on translation failure", reply)
	}
}

func TestRespondTextGroupWithoutTranslationDispatchesNormally(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.completer.reply = "You can renew your ARC at the local immigration office."

	if err := env.store.SetUserLanguage(ctx, "U2", i18n.English); err != nil {
		t.Fatalf("SetUserLanguage() error = %v", err)
	}

	src := bot.Source{UserID: "U2", GroupID: "G1"}

	// Freeform text goes to the model, keyed by the sender
	reply, err := env.responder.RespondText(ctx, src, "how do I renew my ARC?")
	if err != nil {
		t.Fatalf("RespondText() error = %v", err)
	}
	if reply != env.completer.reply {
		t.Errorf("RespondText() = %q, want the completion reply", reply)
	}
	if env.completer.calls != 1 {
		t.Errorf("completer called %d times, want 1", env.completer.calls)
	}
	if env.translator.calls != 0 {
		t.Errorf("translator called %d times, want 0", env.translator.calls)
	}

	// Commands are answered like in a one-on-one chat
	reply, err = env.responder.RespondText(ctx, src, "/help")
	if err != nil {
		t.Fatalf("RespondText(/help) error = %v", err)
	}
	if want := env.catalog.Get(i18n.English, i18n.KeyHelp); reply != want {
		t.Errorf("RespondText(/help) = %q, want help text", reply)
	}
}

func TestRespondTextGroupTranslateCommand(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	src := bot.Source{UserID: "U1", GroupID: "G1"}

	reply, err := env.responder.RespondText(ctx, src, "/translate on zh")
	if err != nil {
		t.Fatalf("RespondText(/translate on zh) error = %v", err)
	}
	want := fmt.Sprintf(env.catalog.Get(i18n.English, i18n.KeyTranslationEnabled), i18n.Name(i18n.Chinese))
	if reply != want {
		t.Errorf("enable reply = %q, want %q", reply, want)
	}

	setting, err := env.store.GetGroupSetting(ctx, "G1")
	if err != nil {
		t.Fatalf("GetGroupSetting() error = %v", err)
	}
	if setting == nil || !setting.TranslationEnabled || setting.Target() != i18n.Chinese {
		t.Fatalf("group setting = %+v, want translation enabled with target zh", setting)
	}

	reply, err = env.responder.RespondText(ctx, src, "/translate off")
	if err != nil {
		t.Fatalf("RespondText(/translate off) error = %v", err)
	}
	if want := env.catalog.Get(i18n.English, i18n.KeyTranslationDisabled); reply != want {
		t.Errorf("disable reply = %q, want %q", reply, want)
	}

	setting, err = env.store.GetGroupSetting(ctx, "G1")
	if err != nil {
		t.Fatalf("GetGroupSetting() error = %v", err)
	}
	if setting == nil || setting.TranslationEnabled {
		t.Errorf("group setting after disable = %+v, want translation disabled", setting)
	}
}

func TestRespondTextGroupTranslateInterceptedWhileEnabled(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	if err := env.store.SetGroupTranslation(ctx, "G1", true, i18n.Vietnamese, "U1"); err != nil {
		t.Fatalf("SetGroupTranslation() error = %v", err)
	}

	// The command is handled even when everything else would be translated
	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1", GroupID: "G1"}, "/translate off")
	if err != nil {
		t.Fatalf("RespondText() error = %v", err)
	}
	if want := env.catalog.Get(i18n.English, i18n.KeyTranslationDisabled); reply != want {
		t.Errorf("reply = %q, want disable confirmation, not a translation", reply)
	}
	if env.translator.calls != 0 {
		t.Errorf("translator called %d times for the command, want 0", env.translator.calls)
	}
}

func TestRespondTextGroupTranslateDenied(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(deps *bot.ResponderDeps) {
		deps.Authorizer = denyAuthorizer{}
	})
	ctx := context.Background()

	reply, err := env.responder.RespondText(ctx, bot.Source{UserID: "U1", GroupID: "G1"}, "/translate on vi")
	if err != nil {
		t.Fatalf("RespondText() error = %v", err)
	}
	if want := env.catalog.Get(i18n.English, i18n.KeyAdminOnly); reply != want {
		t.Errorf("reply = %q, want admin-only message", reply)
	}

	setting, err := env.store.GetGroupSetting(ctx, "G1")
	if err != nil {
		t.Fatalf("GetGroupSetting() error = %v", err)
	}
	if setting != nil {
		t.Errorf("group setting = %+v, want none after a denied command", setting)
	}
}

func TestRespondPostback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	t.Run("language selection", func(t *testing.T) {
		t.Parallel()

		reply, err := env.responder.RespondPostback(ctx, bot.Source{UserID: "P1"}, "lang_vi")
		if err != nil {
			t.Fatalf("RespondPostback(lang_vi) error = %v", err)
		}
		if want := env.catalog.Get(i18n.Vietnamese, i18n.KeyWelcome); reply != want {
			t.Errorf("reply = %q, want Vietnamese welcome", reply)
		}
	})

	t.Run("emergency category", func(t *testing.T) {
		t.Parallel()

		reply, err := env.responder.RespondPostback(ctx, bot.Source{UserID: "P2"}, "category_emergency")
		if err != nil {
			t.Fatalf("RespondPostback(category_emergency) error = %v", err)
		}
		if !strings.Contains(reply, "110") || !strings.Contains(reply, "1955") {
			t.Errorf("emergency reply = %q, want police and labor hotlines", reply)
		}
	})

	t.Run("category prompt goes to the model", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, nil)
		if err := env.store.SetUserLanguage(ctx, "P3", i18n.English); err != nil {
			t.Fatalf("SetUserLanguage() error = %v", err)
		}

		if _, err := env.responder.RespondPostback(ctx, bot.Source{UserID: "P3"}, "category_labor"); err != nil {
			t.Fatalf("RespondPostback(category_labor) error = %v", err)
		}
		if env.completer.calls != 1 {
			t.Fatalf("completer called %d times, want 1", env.completer.calls)
		}
		if env.completer.lastMsg != "I have a problem at work" {
			t.Errorf("prompt = %q, want the labor category prompt", env.completer.lastMsg)
		}
	})

	t.Run("unknown data falls back to help", func(t *testing.T) {
		t.Parallel()

		reply, err := env.responder.RespondPostback(ctx, bot.Source{UserID: "P4"}, "bogus_data")
		if err != nil {
			t.Fatalf("RespondPostback(bogus) error = %v", err)
		}
		if want := env.catalog.Get(i18n.English, i18n.KeyHelp); reply != want {
			t.Errorf("reply = %q, want help text", reply)
		}
	})
}

func TestRespondLocation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nearby places formatted", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(deps *bot.ResponderDeps) {
			deps.Places = &fakeFinder{
				available: true,
				places: []maps.Place{
					{Name: "Warung Makan", Address: "No. 5, Zhongshan Rd", Rating: 4.5},
				},
			}
		})

		reply, err := env.responder.RespondLocation(ctx, bot.Source{UserID: "L1"}, 25.03, 121.56)
		if err != nil {
			t.Fatalf("RespondLocation() error = %v", err)
		}
		if !strings.Contains(reply, "Warung Makan") || !strings.Contains(reply, "Zhongshan Rd") {
			t.Errorf("reply = %q, want the place name and address", reply)
		}
	})

	t.Run("lookup disabled", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, nil)

		reply, err := env.responder.RespondLocation(ctx, bot.Source{UserID: "L2"}, 25.03, 121.56)
		if err != nil {
			t.Fatalf("RespondLocation() error = %v", err)
		}
		if want := env.catalog.Get(i18n.English, i18n.KeyErrorFallback); reply != want {
			t.Errorf("reply = %q, want fallback message when lookups are disabled", reply)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(deps *bot.ResponderDeps) {
			deps.Places = &fakeFinder{available: true, err: errors.New("quota exceeded")}
		})

		reply, err := env.responder.RespondLocation(ctx, bot.Source{UserID: "L3"}, 25.03, 121.56)
		if err != nil {
			t.Fatalf("RespondLocation() error = %v", err)
		}
		if want := env.catalog.Get(i18n.English, i18n.KeyErrorFallback); reply != want {
			t.Errorf("reply = %q, want fallback message on lookup failure", reply)
		}
	})
}
