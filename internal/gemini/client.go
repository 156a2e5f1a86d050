// Package gemini implements the translation collaborator on Google's
// Gemini API. It powers group-chat auto-translation.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/kawanbot/internal/config"
	"github.com/edgard/kawanbot/internal/i18n"
)

// ErrUpstream wraps all translation failures.
var ErrUpstream = errors.New("translation upstream error")

// SourceAuto asks the model to detect the source language itself.
const SourceAuto = "auto"

const (
	autoPromptTemplate = `You are a professional translator. Translate the following text to %s.
Only output the translated text, nothing else. Keep the tone and style natural.`

	pairPromptTemplate = `You are a professional translator. Translate the following text from %s to %s.
Only output the translated text, nothing else. Keep the tone and style natural.`
)

// Translator translates text into a target language. source is a
// language code or SourceAuto for detection.
type Translator interface {
	Translate(ctx context.Context, content string, target i18n.Code, source string) (string, error)
}

type sdkClient struct {
	genaiClient      *genai.Client
	log              *slog.Logger
	temperature      float32
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
}

// NewClient creates a new Gemini translation client with the provided
// configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Translator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return &sdkClient{
		genaiClient:      gi,
		log:              logger,
		temperature:      cfg.Temperature,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

// Translate renders content in the target language. Source language
// detection is left to the model unless source names a language code.
func (c *sdkClient) Translate(ctx context.Context, content string, target i18n.Code, source string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: nothing to translate", ErrUpstream)
	}

	var prompt string
	if source == SourceAuto || source == "" {
		prompt = fmt.Sprintf(autoPromptTemplate, i18n.Name(target))
	} else {
		prompt = fmt.Sprintf(pairPromptTemplate, i18n.Name(i18n.Code(source)), i18n.Name(target))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:       &c.temperature,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt}}},
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	contents := []*genai.Content{genai.NewContentFromText(content, genai.RoleUser)}

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, cfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini translation failed", "target", target, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	translated, err := c.extractTextFromResponse(ctx, resp)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	c.log.DebugContext(ctx, "Translated text", "target", target)
	return translated, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var genAiAPIError *genai.APIError
		if errors.As(err, &genAiAPIError) && (genAiAPIError.Code == 500 || genAiAPIError.Code == 503) { // Retriable HTTP codes
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", genAiAPIError.Code)
				time.Sleep(c.retryDelay)
				continue
			}
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", genAiAPIError.Code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, genAiAPIError.Code, err)
		}

		c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	return nil, err
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("translation blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("translation returned no content, finish reason: %s", finishReason)
	}

	translated := strings.TrimSpace(resp.Text())
	if translated == "" {
		return "", fmt.Errorf("translation returned empty text")
	}

	return translated, nil
}

// FormatTranslation renders a group translation reply with the target
// language's flag and native name above the translated text.
func FormatTranslation(translated string, target i18n.Code) string {
	return fmt.Sprintf("%s %s:\n%s", i18n.Flag(target), i18n.Name(target), translated)
}
