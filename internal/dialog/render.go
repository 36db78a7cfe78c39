package dialog

import (
	"strings"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/dialogflow"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
)

// Render flattens a detect-intent result into channel messages. Rich-content
// chips become options; the prompt text comes from the first plain text
// message when one exists, otherwise from the rich content's own text block.
// With no chips at all the result is a single plain-text message.
func Render(qr *dialogflow.QueryResult) []notify.Message {
	if qr == nil {
		return nil
	}

	var plainText string
	var payloadText string
	var options []notify.Option

	for _, msg := range qr.ResponseMessages {
		if msg.Text != nil && len(msg.Text.Text) > 0 && plainText == "" {
			plainText = msg.Text.Text[0]
		}
		if msg.Payload == nil {
			continue
		}
		for _, item := range msg.Payload.RichContent {
			if item.Text != "" {
				payloadText = item.Text
			}
			if item.Type != "chips" {
				continue
			}
			for _, opt := range item.Options {
				options = append(options, notify.Option{
					ID:    opt.Text,
					Title: opt.Text,
					URL:   opt.URL(),
				})
			}
		}
	}

	if len(options) > 0 {
		body := plainText
		if body == "" {
			body = payloadText
		}
		return []notify.Message{{Text: body, Options: options}}
	}
	if strings.TrimSpace(plainText) != "" {
		return []notify.Message{{Text: plainText}}
	}
	return nil
}
