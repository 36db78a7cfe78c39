// Package dialogflow is the narrow client for the external intent-detection
// collaborator (a Dialogflow-CX-shaped REST API). It carries raw user text in
// and returns fulfillment messages plus session parameters; understanding the
// text is entirely the collaborator's problem.
package dialogflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/ctxutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/envutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/httpx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type Client interface {
	// DetectIntent runs one conversational turn. The correlation id is
	// "<phone>" or "<phone>&<chatSessionID>"; the collaborator keys its
	// dialogue state off it, which is why losing the session id mid-dialogue
	// silently resets the conversation.
	DetectIntent(ctx context.Context, correlationID string, text string) (*QueryResult, error)
}

type Config struct {
	ProjectID    string
	Location     string
	AgentID      string
	AccessToken  string
	BaseURL      string
	LanguageCode string
	Timeout      time.Duration
	MaxRetries   int
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("DIALOGFLOW_TIMEOUT_SECONDS", 30)
	return Config{
		ProjectID:    strings.TrimSpace(os.Getenv("DIALOGFLOW_CX_PROJECT_ID")),
		Location:     strings.TrimSpace(os.Getenv("DIALOGFLOW_CX_LOCATION")),
		AgentID:      strings.TrimSpace(os.Getenv("DIALOGFLOW_CX_AGENT_ID")),
		AccessToken:  strings.TrimSpace(os.Getenv("DIALOGFLOW_CX_ACCESS_TOKEN")),
		BaseURL:      strings.TrimSpace(os.Getenv("DIALOGFLOW_CX_BASE_URL")),
		LanguageCode: envutil.String("LANGUAGE", "en"),
		Timeout:      time.Duration(timeoutSec) * time.Second,
		MaxRetries:   envutil.Int("DIALOGFLOW_MAX_RETRIES", 2),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("missing DIALOGFLOW_CX_PROJECT_ID")
	}
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("missing DIALOGFLOW_CX_AGENT_ID")
	}
	if cfg.Location == "" {
		cfg.Location = "global"
	}
	if cfg.BaseURL == "" {
		host := "dialogflow.googleapis.com"
		if cfg.Location != "global" {
			host = cfg.Location + "-dialogflow.googleapis.com"
		}
		cfg.BaseURL = "https://" + host + "/v3"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &client{
		log:        log.With("client", "DialogflowClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// ---------- wire types ----------

type detectIntentRequest struct {
	QueryInput queryInput `json:"queryInput"`
}

type queryInput struct {
	Text         textInput `json:"text"`
	LanguageCode string    `json:"languageCode"`
}

type textInput struct {
	Text string `json:"text"`
}

type detectIntentResponse struct {
	QueryResult *QueryResult `json:"queryResult"`
}

// QueryResult is the portion of the detect-intent response the bot consumes.
type QueryResult struct {
	Text             string                 `json:"text,omitempty"`
	ResponseMessages []ResponseMessage      `json:"responseMessages"`
	Parameters       map[string]interface{} `json:"parameters,omitempty"`
}

type ResponseMessage struct {
	Text    *TextBlock   `json:"text,omitempty"`
	Payload *RichPayload `json:"payload,omitempty"`
}

type TextBlock struct {
	Text []string `json:"text"`
}

// RichPayload carries the rich content blocks (text + choice chips) produced
// by the collaborator's custom payloads.
type RichPayload struct {
	RichContent []RichItem `json:"richContent"`
}

type RichItem struct {
	Type    string       `json:"type,omitempty"` // "chips" for option rows
	Text    string       `json:"text,omitempty"`
	Options []ChipOption `json:"options,omitempty"`
}

type ChipOption struct {
	Text   string  `json:"text"`
	Anchor *Anchor `json:"anchor,omitempty"`
}

type Anchor struct {
	Href string `json:"href"`
}

// URL returns the option's link target, if any. A linked chip becomes a URL
// call-to-action on the chat channel; a plain chip becomes a reply button.
func (o ChipOption) URL() string {
	if o.Anchor == nil {
		return ""
	}
	return strings.TrimSpace(o.Anchor.Href)
}

// ---------- calls ----------

func (c *client) DetectIntent(ctx context.Context, correlationID string, text string) (*QueryResult, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("dialogflow client unavailable")
	}
	correlationID = strings.TrimSpace(correlationID)
	text = strings.TrimSpace(text)
	if correlationID == "" {
		return nil, fmt.Errorf("dialogflow: correlation id required")
	}
	if text == "" {
		return nil, fmt.Errorf("dialogflow: text required")
	}

	endpoint := fmt.Sprintf("%s/projects/%s/locations/%s/agents/%s/sessions/%s:detectIntent",
		c.cfg.BaseURL, c.cfg.ProjectID, c.cfg.Location, c.cfg.AgentID, correlationID)

	body := detectIntentRequest{
		QueryInput: queryInput{
			Text:         textInput{Text: text},
			LanguageCode: c.cfg.LanguageCode,
		},
	}

	backoff := 1 * time.Second
	for attempt := 0; ; attempt++ {
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out, resp, err := c.detectOnce(ctx, endpoint, body)
		if err == nil {
			return out, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 8*time.Second))
		c.log.Warn("Dialogflow detect-intent retrying",
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
}

func (c *client) detectOnce(ctx context.Context, endpoint string, body detectIntentRequest) (*QueryResult, *http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out detectIntentResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, resp, fmt.Errorf("dialogflow decode error: %w", err)
	}
	if out.QueryResult == nil {
		return nil, resp, fmt.Errorf("dialogflow: empty query result")
	}
	return out.QueryResult, resp, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "dialogflow: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("dialogflow http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
