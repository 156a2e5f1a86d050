// Package ai implements the chat completion collaborator backed by an
// OpenAI-compatible API.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/edgard/kawanbot/internal/config"
	"github.com/edgard/kawanbot/internal/database"
	"github.com/edgard/kawanbot/internal/i18n"
	"github.com/edgard/kawanbot/internal/text"
)

// ErrUpstream wraps all chat completion failures so the orchestrator can
// substitute a localized fallback reply.
var ErrUpstream = errors.New("ai upstream error")

// Turn is one prior conversation turn passed as completion context.
type Turn struct {
	Role    string
	Content string
}

// Completer generates an assistant reply from the user's language, prior
// turns, and the current message.
type Completer interface {
	Complete(ctx context.Context, lang i18n.Code, history []Turn, message string) (string, error)
}

type client struct {
	api             *openai.Client
	log             *slog.Logger
	model           string
	temperature     float32
	maxTokens       int
	maxMessageChars int
	maxHistoryChars int
}

// NewClient creates a chat completion client. An empty BaseURL targets
// the OpenAI API directly; otherwise any OpenAI-compatible endpoint
// (vLLM, Ollama, LiteLLM) can serve the model.
func NewClient(cfg config.AIConfig, botCfg config.BotConfig, log *slog.Logger) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai API key is required")
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger := log.With("component", "ai_client")
	logger.Info("AI client initialized successfully", "model", cfg.Model, "base_url", cfg.BaseURL)

	return &client{
		api:             openai.NewClientWithConfig(apiCfg),
		log:             logger,
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxTokens:       cfg.MaxTokens,
		maxMessageChars: botCfg.MaxMessageChars,
		maxHistoryChars: botCfg.MaxHistoryChars,
	}, nil
}

// Complete generates an assistant reply. The current message and each
// history turn are truncated before the request to bound prompt size.
func (c *client) Complete(ctx context.Context, lang i18n.Code, history []Turn, message string) (string, error) {
	c.log.DebugContext(ctx, "Generating chat completion", "language", lang, "history_turns", len(history))

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.systemPrompt(lang),
	})

	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == database.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: text.Truncate(turn.Content, c.maxHistoryChars),
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text.Truncate(message, c.maxMessageChars),
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Chat completion request failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		c.log.WarnContext(ctx, "Chat completion returned no content", "choices", len(resp.Choices))
		return "", fmt.Errorf("%w: empty completion response", ErrUpstream)
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *client) systemPrompt(lang i18n.Code) string {
	name := i18n.Name(lang)
	return fmt.Sprintf(systemPromptTemplate, name, lang, name, name, name)
}
