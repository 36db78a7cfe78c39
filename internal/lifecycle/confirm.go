package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/dialog"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
)

// handleConfirmation summarizes the collected job and asks for a yes/no
// before anything is persisted or charged.
func (e *Engine) handleConfirmation(ctx context.Context, turn *dialog.Turn) (*dialog.Result, error) {
	params := dialog.DecodePostJobParams(turn.Parameters)

	// Snapshot the collected slots so the conversation survives a restart.
	if sessionID, err := uuid.Parse(turn.ChatSessionID); err == nil {
		if err := e.deps.Sessions.SaveParameters(dbctx.From(ctx), sessionID, turn.Parameters); err != nil {
			e.log.Warn("could not snapshot session parameters",
				"chat_session_id", turn.ChatSessionID,
				"error", err.Error(),
			)
		}
	}

	category := params.Category
	if category == "" {
		category = "N/A"
	}
	location := params.Location
	if location == "" {
		location = "N/A"
	}
	dateStr, timeStr := "N/A", "N/A"
	if params.Date != nil {
		dateStr = params.Date.Format()
	}
	if params.Time != nil {
		timeStr = params.Time.Format()
	}
	amountStr := "N/A"
	if params.Amount != nil {
		amountStr = "$" + params.Amount.Amount.StringFixed(2)
	}
	fee := params.PostingFee
	if fee.IsZero() {
		fee = e.cfg.PostingFee
	}

	summary := fmt.Sprintf(
		"*Please confirm the details of your job posting:*\n\n"+
			"Job Category: %s\n"+
			"Date: %s\n"+
			"Time: %s\n"+
			"Location: %s\n"+
			"Amount: %s\n"+
			"Posting Fee: $%s\n\n"+
			"Do you want to post this job?",
		titleCase(category), dateStr, timeStr, location, amountStr, fee.StringFixed(2),
	)

	result := &dialog.Result{Messages: []dialog.ResponseMessage{
		dialog.ChipsMessage(summary, dialog.Chip{Text: "Yes"}, dialog.Chip{Text: "No"}),
	}}
	return result.WithParameters(map[string]interface{}{
		"posting_fee": fee.InexactFloat64(),
	}), nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	first := runes[0]
	if first >= 'a' && first <= 'z' {
		runes[0] = first - ('a' - 'A')
	}
	return string(runes)
}
