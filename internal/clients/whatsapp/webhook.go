package whatsapp

import "strings"

// Inbound webhook payload, as delivered by the Graph API. Only the fields the
// bot consumes are modeled.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         Metadata         `json:"metadata"`
	Contacts         []Contact        `json:"contacts"`
	Messages         []InboundMessage `json:"messages"`
	Statuses         []Status         `json:"statuses"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Name string `json:"name"`
}

type InboundMessage struct {
	ID          string        `json:"id"`
	From        string        `json:"from"`
	Timestamp   string        `json:"timestamp"`
	Type        string        `json:"type"` // "text" | "interactive" | ...
	Text        *TextContent  `json:"text,omitempty"`
	Interactive *InboundReply `json:"interactive,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

type InboundReply struct {
	Type        string       `json:"type"` // "button_reply" | "list_reply"
	ButtonReply *ReplyChoice `json:"button_reply,omitempty"`
	ListReply   *ReplyChoice `json:"list_reply,omitempty"`
}

type ReplyChoice struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Status is a delivery/read receipt. Receipts are acknowledged and otherwise
// ignored.
type Status struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Event is the flattened inbound event the rest of the pipeline works with.
type Event struct {
	MessageID  string
	From       string // sender wa_id (phone-equivalent)
	SenderName string
	Text       string // free text, or the chosen reply id for interactive messages
	Kind       string // "text" | "interactive" | "status" | "unsupported"
}

// Events flattens a webhook delivery into inbound events. The Graph API
// batches by entry/change; each carried message or receipt becomes one event.
func (p *WebhookPayload) Events() []Event {
	if p == nil {
		return nil
	}
	var out []Event
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			for _, st := range v.Statuses {
				out = append(out, Event{MessageID: st.ID, Kind: "status"})
			}
			for _, msg := range v.Messages {
				ev := Event{
					MessageID: msg.ID,
					From:      msg.From,
				}
				if len(v.Contacts) > 0 {
					if ev.From == "" {
						ev.From = v.Contacts[0].WaID
					}
					ev.SenderName = strings.TrimSpace(v.Contacts[0].Profile.Name)
				}
				switch msg.Type {
				case "text":
					ev.Kind = "text"
					if msg.Text != nil {
						ev.Text = msg.Text.Body
					}
				case "interactive":
					ev.Kind = "interactive"
					if msg.Interactive != nil {
						if msg.Interactive.ButtonReply != nil {
							ev.Text = msg.Interactive.ButtonReply.ID
						} else if msg.Interactive.ListReply != nil {
							ev.Text = msg.Interactive.ListReply.ID
						}
					}
				default:
					ev.Kind = "unsupported"
				}
				out = append(out, ev)
			}
		}
	}
	return out
}
