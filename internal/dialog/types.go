// Package dialog is the seam between the NLU collaborator and the job
// lifecycle. The collaborator drives slot filling and calls back into the
// fulfillment webhook with a tag naming the step; this package decodes the
// request, routes the tag to a handler, and shapes the handler's output back
// into the fulfillment wire format.
package dialog

import (
	"strings"
)

// WebhookRequest is the fulfillment call from the NLU collaborator.
type WebhookRequest struct {
	FulfillmentInfo FulfillmentInfo `json:"fulfillmentInfo"`
	SessionInfo     SessionInfo     `json:"sessionInfo"`
	Text            string          `json:"text"`
}

type FulfillmentInfo struct {
	Tag string `json:"tag"`
}

type SessionInfo struct {
	// Session is the full session resource path; its last path element is the
	// "<phone>" or "<phone>&<chatSessionID>" correlation id.
	Session    string                 `json:"session"`
	Parameters map[string]interface{} `json:"parameters"`
}

// CorrelationID extracts phone and chat-session id from the session path.
func (s SessionInfo) CorrelationID() (phone, chatSessionID string) {
	raw := s.Session
	if idx := strings.LastIndex(raw, "/"); idx >= 0 {
		raw = raw[idx+1:]
	}
	phone, chatSessionID, _ = strings.Cut(raw, "&")
	return phone, chatSessionID
}

// WebhookResponse mirrors the fulfillment response shape the collaborator
// expects: messages to say, parameters to write back into the dialogue.
type WebhookResponse struct {
	FulfillmentResponse FulfillmentResponse    `json:"fulfillment_response"`
	SessionInfo         *ResponseSessionInfo   `json:"session_info,omitempty"`
	Payload             map[string]interface{} `json:"payload,omitempty"`
}

type FulfillmentResponse struct {
	Messages []ResponseMessage `json:"messages"`
}

type ResponseSessionInfo struct {
	Parameters map[string]interface{} `json:"parameters"`
}

type ResponseMessage struct {
	Text    *TextMessage           `json:"text,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

type TextMessage struct {
	Text []string `json:"text"`
}

// Result is what a lifecycle handler returns for one fulfillment call.
type Result struct {
	Messages   []ResponseMessage
	Parameters map[string]interface{}
}

func (r *Result) Response() WebhookResponse {
	resp := WebhookResponse{
		FulfillmentResponse: FulfillmentResponse{Messages: r.Messages},
	}
	if len(r.Parameters) > 0 {
		resp.SessionInfo = &ResponseSessionInfo{Parameters: r.Parameters}
	}
	return resp
}

// TextResult is the common single-text-message result.
func TextResult(lines ...string) *Result {
	return &Result{Messages: []ResponseMessage{textMessage(lines...)}}
}

func textMessage(lines ...string) ResponseMessage {
	return ResponseMessage{Text: &TextMessage{Text: lines}}
}

// ChipsMessage renders a prompt followed by tappable options in the
// collaborator's rich-content payload shape. An option with a URL becomes a
// link chip.
func ChipsMessage(prompt string, options ...Chip) ResponseMessage {
	chips := make([]map[string]interface{}, 0, len(options))
	for _, opt := range options {
		chip := map[string]interface{}{"text": opt.Text}
		if opt.URL != "" {
			chip["anchor"] = map[string]interface{}{"href": opt.URL}
		}
		chips = append(chips, chip)
	}
	return ResponseMessage{
		Payload: map[string]interface{}{
			"richContent": []interface{}{
				map[string]interface{}{"type": "description", "text": prompt},
				map[string]interface{}{"type": "chips", "options": chips},
			},
		},
	}
}

type Chip struct {
	Text string
	URL  string
}

// WithParameters attaches session parameter writes to a result.
func (r *Result) WithParameters(params map[string]interface{}) *Result {
	if r.Parameters == nil {
		r.Parameters = make(map[string]interface{}, len(params))
	}
	for k, v := range params {
		r.Parameters[k] = v
	}
	return r
}
