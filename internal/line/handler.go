// Package line implements the LINE Messaging API transport: webhook
// parsing, event dispatch to the reply orchestrator, and reply delivery.
package line

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/edgard/kawanbot/internal/bot"
)

// defaultEventTimeout bounds the processing of a single webhook event
// when no explicit timeout is configured.
const defaultEventTimeout = 60 * time.Second

// Handler handles LINE webhook events.
type Handler struct {
	channelSecret string
	client        *messaging_api.MessagingApiAPI
	logger        *slog.Logger
	responder     *bot.Responder
	eventTimeout  time.Duration
	wg            sync.WaitGroup
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	ChannelSecret string
	ChannelToken  string
	Logger        *slog.Logger
	Responder     *bot.Responder

	// EventTimeout bounds a single event including the LLM round trip.
	// It must exceed the AI client timeout or completions get cancelled
	// before their own deadline.
	EventTimeout time.Duration
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	client, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging API client: %w", err)
	}

	timeout := cfg.EventTimeout
	if timeout <= 0 {
		timeout = defaultEventTimeout
	}

	return &Handler{
		channelSecret: cfg.ChannelSecret,
		client:        client,
		logger:        cfg.Logger.With("component", "line_handler"),
		responder:     cfg.Responder,
		eventTimeout:  timeout,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint. It acknowledges
// the request immediately and processes events asynchronously, as the
// LINE platform requires a fast 200 response.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.Error("Failed to parse webhook request", "error", err)
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusOK)

	// Copy events so processing never races the HTTP response lifecycle
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("Panic in async event processing", "panic", r)
			}
		}()

		for _, event := range events {
			h.processEvent(event)
		}
	}()
}

// processEvent dispatches a single webhook event to the responder and
// delivers the resulting reply.
func (h *Handler) processEvent(event webhook.EventInterface) {
	ctx, cancel := context.WithTimeout(context.Background(), h.eventTimeout)
	defer cancel()

	src, ok := extractSource(event)
	if !ok {
		h.logger.Debug("Event without a usable source, skipping", "event_type", fmt.Sprintf("%T", event))
		return
	}

	var reply string
	var err error
	var eventType string

	switch e := event.(type) {
	case webhook.MessageEvent:
		switch msg := e.Message.(type) {
		case webhook.TextMessageContent:
			eventType = "text"
			reply, err = h.responder.RespondText(ctx, src, msg.Text)
		case webhook.LocationMessageContent:
			eventType = "location"
			reply, err = h.responder.RespondLocation(ctx, src, msg.Latitude, msg.Longitude)
		default:
			h.logger.Debug("Unsupported message type, skipping", "message_type", msg.GetType())
			return
		}

	case webhook.PostbackEvent:
		eventType = "postback"
		reply, err = h.responder.RespondPostback(ctx, src, e.Postback.Data)

	case webhook.FollowEvent:
		// New followers get the language selection prompt right away
		eventType = "follow"
		reply, err = h.responder.RespondPostback(ctx, src, "category_language")

	default:
		h.logger.Debug("Unsupported event type, skipping", "event_type", fmt.Sprintf("%T", e))
		return
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to handle event", "event_type", eventType, "error", err)
		return
	}
	if reply == "" {
		return
	}

	replyToken := getReplyToken(event)
	if replyToken == "" {
		h.logger.Debug("Empty reply token, skipping reply", "event_type", eventType)
		return
	}

	if _, err := h.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: reply},
		},
	}); err != nil {
		h.logger.ErrorContext(ctx, "Failed to send reply", "event_type", eventType, "error", err)
		return
	}

	h.logger.InfoContext(ctx, "Event processed", "event_type", eventType)
}

// extractSource maps a webhook event source to the responder's Source.
// Rooms are treated like groups for translation purposes.
func extractSource(event webhook.EventInterface) (bot.Source, bool) {
	var source webhook.SourceInterface

	switch e := event.(type) {
	case webhook.MessageEvent:
		source = e.Source
	case webhook.PostbackEvent:
		source = e.Source
	case webhook.FollowEvent:
		source = e.Source
	default:
		return bot.Source{}, false
	}

	switch s := source.(type) {
	case webhook.UserSource:
		return bot.Source{UserID: s.UserId}, true
	case webhook.GroupSource:
		return bot.Source{UserID: s.UserId, GroupID: s.GroupId}, true
	case webhook.RoomSource:
		return bot.Source{UserID: s.UserId, GroupID: s.RoomId}, true
	default:
		return bot.Source{}, false
	}
}

// getReplyToken extracts the reply token from an event.
func getReplyToken(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.ReplyToken
	case webhook.PostbackEvent:
		return e.ReplyToken
	case webhook.FollowEvent:
		return e.ReplyToken
	default:
		return ""
	}
}

// Shutdown waits for all async event processing to complete. It returns
// an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
