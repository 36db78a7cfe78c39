package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/dialog"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

// DialogflowHandler receives the NLU collaborator's fulfillment calls and
// hands them to the dialog router.
type DialogflowHandler struct {
	log    *logger.Logger
	router *dialog.Router
}

func NewDialogflowHandler(log *logger.Logger, router *dialog.Router) (*DialogflowHandler, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if router == nil {
		return nil, fmt.Errorf("dialog router required")
	}
	return &DialogflowHandler{
		log:    log.With("handler", "DialogflowHandler"),
		router: router,
	}, nil
}

func (h *DialogflowHandler) Fulfill(c *gin.Context) {
	var req dialog.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_payload", err)
		return
	}
	if req.SessionInfo.Session == "" {
		RespondError(c, http.StatusBadRequest, "missing_session", fmt.Errorf("sessionInfo.session is required"))
		return
	}

	resp := h.router.Dispatch(c.Request.Context(), &req)
	RespondOK(c, resp)
}
