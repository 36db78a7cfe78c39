package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/dialogflow"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/whatsapp"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/dedup"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/dialog"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/lifecycle"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/session"
)

const (
	consentYesReply = "consent_yes"
	consentNoReply  = "consent_no"
	deleteConfirmID = "delete_account_confirm"
	deleteCancelID  = "delete_account_cancel"

	// EventTimeout bounds one inbound event's processing, collaborator calls
	// included.
	EventTimeout = 60 * time.Second
)

type WebhookConfig struct {
	VerifyToken string
}

// WebhookHandler owns the chat-channel surface: the subscription handshake
// and inbound event deliveries. Each event is processed on its own goroutine
// and the delivery is acknowledged immediately; the channel's retry behavior
// is absorbed by the deduplicator, not by slow handlers.
type WebhookHandler struct {
	log      *logger.Logger
	cfg      WebhookConfig
	users    repos.UserRepo
	sessions session.Resolver
	dedup    dedup.Deduplicator
	nlu      dialogflow.Client
	engine   *lifecycle.Engine
	notifier notify.Dispatcher
}

func NewWebhookHandler(
	log *logger.Logger,
	cfg WebhookConfig,
	users repos.UserRepo,
	sessions session.Resolver,
	deduper dedup.Deduplicator,
	nlu dialogflow.Client,
	engine *lifecycle.Engine,
	notifier notify.Dispatcher,
) (*WebhookHandler, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.VerifyToken == "" {
		return nil, fmt.Errorf("missing WHATSAPP_VERIFY_TOKEN")
	}
	switch {
	case users == nil, sessions == nil, deduper == nil, nlu == nil, engine == nil, notifier == nil:
		return nil, fmt.Errorf("all webhook dependencies required")
	}
	return &WebhookHandler{
		log:      log.With("handler", "WebhookHandler"),
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		dedup:    deduper,
		nlu:      nlu,
		engine:   engine,
		notifier: notifier,
	}, nil
}

// Verify answers the channel's subscription handshake: the challenge is
// echoed verbatim only for a subscribe request carrying the shared token.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	challenge := c.Query("hub.challenge")
	token := c.Query("hub.verify_token")

	if mode == "" || challenge == "" || token == "" {
		RespondError(c, http.StatusBadRequest, "missing_params", fmt.Errorf("hub.mode, hub.challenge and hub.verify_token are required"))
		return
	}
	if mode != "subscribe" || token != h.cfg.VerifyToken {
		RespondError(c, http.StatusForbidden, "verification_failed", fmt.Errorf("invalid verification token"))
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive acknowledges the delivery immediately and processes each carried
// event on its own goroutine.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload whatsapp.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_payload", err)
		return
	}

	for _, event := range payload.Events() {
		go h.processEvent(event)
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (h *WebhookHandler) processEvent(event whatsapp.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), EventTimeout)
	defer cancel()

	if event.Kind == "status" {
		return
	}
	if event.From == "" {
		h.log.Warn("event without sender, dropping", "kind", event.Kind)
		return
	}

	if err := h.handleEvent(ctx, event); err != nil {
		h.log.Error("event processing failed",
			"kind", event.Kind,
			"error", err.Error(),
		)
		_ = h.notifier.Send(ctx, event.From, notify.Message{
			Text: "Something went wrong please try again",
		})
	}
}

func (h *WebhookHandler) handleEvent(ctx context.Context, event whatsapp.Event) error {
	dbc := dbctx.From(ctx)

	user, err := h.users.GetByPhone(dbc, event.From)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		name := event.SenderName
		if name == "" {
			name = event.From
		}
		if user, err = h.users.Create(dbc, &domain.User{Name: name, PhoneNumber: event.From}); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return h.sendConsentPrompt(ctx, user)
	}

	if !user.HasConsented() {
		return h.handleConsentReply(ctx, dbc, user, event)
	}

	if !h.dedup.ShouldProcess(ctx, event.MessageID) {
		h.log.Info("duplicate delivery skipped", "message_id", event.MessageID)
		return nil
	}

	if event.Kind == "unsupported" {
		return h.notifier.Send(ctx, user.PhoneNumber, notify.Message{
			Text: "This chatbot only supports text and interactive messages.",
		})
	}
	return h.dispatch(ctx, dbc, user, event)
}

func (h *WebhookHandler) sendConsentPrompt(ctx context.Context, user *domain.User) error {
	return h.notifier.Send(ctx, user.PhoneNumber, notify.Message{
		Text: "Welcome! Before we start, we need your consent to store your phone number and " +
			"messages so the service can work. Do you agree?",
		Options: []notify.Option{
			{ID: consentYesReply, Title: "I agree"},
			{ID: consentNoReply, Title: "No thanks"},
		},
	})
}

func (h *WebhookHandler) handleConsentReply(ctx context.Context, dbc dbctx.Context, user *domain.User, event whatsapp.Event) error {
	switch strings.ToLower(strings.TrimSpace(event.Text)) {
	case consentYesReply, "i agree", "yes":
		if err := h.users.SetConsented(dbc, user.ID, time.Now().UTC()); err != nil {
			return fmt.Errorf("record consent: %w", err)
		}
		return h.notifier.Send(ctx, user.PhoneNumber, notify.Message{
			Text: "Thanks! You are all set. Send \"post job\" to offer work or \"find job\" to earn money.",
		})
	case consentNoReply, "no thanks", "no":
		return h.notifier.Send(ctx, user.PhoneNumber, notify.Message{
			Text: "Understood. We will not store your data. Message us again any time if you change your mind.",
		})
	default:
		return h.sendConsentPrompt(ctx, user)
	}
}

// dispatch routes one consented, first-delivery event: structured replies and
// command phrases act directly on the lifecycle engine, everything else is a
// conversational turn for the NLU.
func (h *WebhookHandler) dispatch(ctx context.Context, dbc dbctx.Context, user *domain.User, event whatsapp.Event) error {
	text := strings.TrimSpace(event.Text)

	if jobID, ok := lifecycle.ParseAcceptReply(text); ok {
		return h.engine.AcceptJob(ctx, user, jobID)
	}
	if jobID, ok := lifecycle.ParseCompleteReply(text); ok {
		return h.engine.MarkComplete(ctx, user, jobID)
	}
	if jobID, ok := lifecycle.ParseConfirmReply(text); ok {
		return h.engine.MarkComplete(ctx, user, jobID)
	}
	if _, ok := lifecycle.ParseNotDoneReply(text); ok {
		return h.notifier.Send(ctx, user.PhoneNumber, notify.Message{
			Text: "Okay, we have let the worker know it is not finished yet. Confirm again once it is done.",
		})
	}

	switch strings.ToLower(text) {
	case "delete account", "delete my account":
		return h.notifier.Send(ctx, user.PhoneNumber, notify.Message{
			Text: "This removes your personal data permanently. Open jobs are cancelled and accepted work goes back on the market. Are you sure?",
			Options: []notify.Option{
				{ID: deleteConfirmID, Title: "Yes, delete"},
				{ID: deleteCancelID, Title: "Keep my account"},
			},
		})
	case deleteConfirmID:
		return h.engine.DeleteAccount(ctx, user)
	case deleteCancelID:
		return h.notifier.Send(ctx, user.PhoneNumber, notify.Message{
			Text: "Glad to keep you around!",
		})
	}

	if jobType, ok := session.JobCommand(text); ok {
		if jobType == domain.JobTypeComplete {
			return h.engine.RequestCompletion(ctx, user)
		}
		started, err := h.sessions.StartSession(dbc, user.ID, jobType)
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		return h.converse(ctx, user, session.CorrelationID(user.PhoneNumber, started), text)
	}

	current, err := h.sessions.Resolve(dbc, user.ID)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	return h.converse(ctx, user, session.CorrelationID(user.PhoneNumber, current), text)
}

func (h *WebhookHandler) converse(ctx context.Context, user *domain.User, correlationID, text string) error {
	result, err := h.nlu.DetectIntent(ctx, correlationID, text)
	if err != nil {
		return fmt.Errorf("detect intent: %w", err)
	}
	messages := dialog.Render(result)
	if len(messages) == 0 {
		return h.notifier.Send(ctx, user.PhoneNumber, notify.Message{
			Text: "Sorry, I did not catch that. You can say \"post job\", \"find job\" or \"mark complete\".",
		})
	}
	return h.notifier.SendAll(ctx, user.PhoneNumber, messages)
}
