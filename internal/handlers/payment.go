package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/lifecycle"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/errs"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

// PaymentHandler receives the checkout-success redirect from the payment
// provider's hosted page.
type PaymentHandler struct {
	log    *logger.Logger
	engine *lifecycle.Engine
}

func NewPaymentHandler(log *logger.Logger, engine *lifecycle.Engine) (*PaymentHandler, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if engine == nil {
		return nil, fmt.Errorf("lifecycle engine required")
	}
	return &PaymentHandler{
		log:    log.With("handler", "PaymentHandler"),
		engine: engine,
	}, nil
}

func (h *PaymentHandler) Success(c *gin.Context) {
	paymentID := c.Query("paymentID")
	if paymentID == "" {
		RespondError(c, http.StatusBadRequest, "missing_payment_id", fmt.Errorf("paymentID query parameter is required"))
		return
	}

	if err := h.engine.HandlePaymentSuccess(c.Request.Context(), paymentID); err != nil {
		h.log.Error("payment success callback failed",
			"error", err.Error(),
		)
		if errors.Is(err, errs.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "payment_not_found", fmt.Errorf("this payment does not match any job"))
			return
		}
		RespondError(c, http.StatusInternalServerError, "payment_processing_failed", fmt.Errorf("could not finish processing this payment"))
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, "<html><body><h2>Payment received</h2><p>You can close this tab and return to WhatsApp.</p></body></html>")
}
