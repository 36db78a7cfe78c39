package dialog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

// Turn is one decoded fulfillment call.
type Turn struct {
	Tag           string
	Phone         string
	ChatSessionID string
	Text          string
	Parameters    map[string]interface{}
}

// Handler fulfills one dialogue step. Handlers translate internal failures
// into corrective dialogue; an error return here means the step itself could
// not run and the user gets the generic retry message.
type Handler func(ctx context.Context, turn *Turn) (*Result, error)

type Router struct {
	log *logger.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRouter(log *logger.Logger) (*Router, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Router{
		log:      log.With("service", "DialogRouter"),
		handlers: make(map[string]Handler),
	}, nil
}

func (r *Router) Register(tag string, h Handler) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("dialog: tag required")
	}
	if h == nil {
		return fmt.Errorf("dialog: handler required for tag %q", tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[tag]; exists {
		return fmt.Errorf("dialog: duplicate handler for tag %q", tag)
	}
	r.handlers[tag] = h
	return nil
}

// Dispatch runs the handler registered for the request's tag. An unknown tag
// is answered explicitly rather than swallowed; the dialogue designer finding
// that message in a transcript is the point.
func (r *Router) Dispatch(ctx context.Context, req *WebhookRequest) *WebhookResponse {
	phone, chatSessionID := req.SessionInfo.CorrelationID()
	turn := &Turn{
		Tag:           strings.TrimSpace(req.FulfillmentInfo.Tag),
		Phone:         phone,
		ChatSessionID: chatSessionID,
		Text:          req.Text,
		Parameters:    req.SessionInfo.Parameters,
	}

	r.mu.RLock()
	h, ok := r.handlers[turn.Tag]
	r.mu.RUnlock()
	if !ok {
		r.log.Warn("no handler for fulfillment tag", "tag", turn.Tag)
		resp := TextResult(fmt.Sprintf("No handler is configured for step %q.", turn.Tag)).Response()
		return &resp
	}

	result, err := h(ctx, turn)
	if err != nil {
		r.log.Error("fulfillment handler failed",
			"tag", turn.Tag,
			"error", err.Error(),
		)
		resp := TextResult("Something went wrong on our side. Please try again in a moment.").Response()
		return &resp
	}
	if result == nil {
		result = &Result{}
	}
	resp := result.Response()
	return &resp
}
