// Package notify turns dialogue output into chat-channel messages. Handlers
// and the fulfillment pipeline speak in Messages (text plus optional options
// or list rows); the dispatcher picks the wire shape and hands off to the
// WhatsApp client.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/whatsapp"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

// Option is one tappable choice. A non-empty URL makes it a link option.
type Option struct {
	ID    string
	Title string
	URL   string
}

// ListRow is one entry of a list picker (job search results).
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// Message is channel-independent dialogue output.
type Message struct {
	Text       string
	Options    []Option
	ListButton string
	ListTitle  string
	ListRows   []ListRow
}

type Dispatcher interface {
	Send(ctx context.Context, to string, msg Message) error
	SendAll(ctx context.Context, to string, msgs []Message) error
}

type dispatcher struct {
	log *logger.Logger
	wa  whatsapp.Client
}

func New(log *logger.Logger, wa whatsapp.Client) (Dispatcher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if wa == nil {
		return nil, fmt.Errorf("whatsapp client required")
	}
	return &dispatcher{
		log: log.With("service", "NotifyDispatcher"),
		wa:  wa,
	}, nil
}

const maxReplyButtons = 3

func (d *dispatcher) Send(ctx context.Context, to string, msg Message) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("notify: recipient required")
	}

	switch {
	case len(msg.ListRows) > 0:
		return d.wa.SendInteractive(ctx, to, buildList(msg))
	case len(msg.Options) > 0:
		return d.wa.SendInteractive(ctx, to, buildOptions(msg))
	case strings.TrimSpace(msg.Text) != "":
		return d.wa.SendText(ctx, to, msg.Text)
	}
	return nil
}

func (d *dispatcher) SendAll(ctx context.Context, to string, msgs []Message) error {
	for _, msg := range msgs {
		if err := d.Send(ctx, to, msg); err != nil {
			return err
		}
	}
	return nil
}

// buildOptions renders choice options. Any URL option turns the whole message
// into a single call-to-action link using the first such option; reply
// buttons and links cannot be mixed on the channel.
func buildOptions(msg Message) whatsapp.Interactive {
	for _, opt := range msg.Options {
		if strings.TrimSpace(opt.URL) != "" {
			return whatsapp.Interactive{
				Type: "cta_url",
				Body: whatsapp.InteractiveText{Text: msg.Text},
				Action: whatsapp.InteractiveAction{
					Name: "cta_url",
					Parameters: &whatsapp.CTAParameters{
						DisplayText: opt.Title,
						URL:         opt.URL,
					},
				},
			}
		}
	}

	options := msg.Options
	if len(options) > maxReplyButtons {
		options = options[:maxReplyButtons]
	}
	buttons := make([]whatsapp.Button, 0, len(options))
	for _, opt := range options {
		id := opt.ID
		if id == "" {
			id = opt.Title
		}
		buttons = append(buttons, whatsapp.Button{
			Type:  "reply",
			Reply: whatsapp.ButtonReply{ID: id, Title: truncate(opt.Title, 20)},
		})
	}
	return whatsapp.Interactive{
		Type:   "button",
		Body:   whatsapp.InteractiveText{Text: msg.Text},
		Action: whatsapp.InteractiveAction{Buttons: buttons},
	}
}

func buildList(msg Message) whatsapp.Interactive {
	rows := make([]whatsapp.Row, 0, len(msg.ListRows))
	for _, row := range msg.ListRows {
		rows = append(rows, whatsapp.Row{
			ID:          row.ID,
			Title:       truncate(row.Title, 24),
			Description: truncate(row.Description, 72),
		})
	}
	button := msg.ListButton
	if button == "" {
		button = "View"
	}
	return whatsapp.Interactive{
		Type: "list",
		Body: whatsapp.InteractiveText{Text: msg.Text},
		Action: whatsapp.InteractiveAction{
			ButtonText: button,
			Sections: []whatsapp.Section{
				{Title: msg.ListTitle, Rows: rows},
			},
		},
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
