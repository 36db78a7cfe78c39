// Package classifier calls the external model that maps a free-text job
// description to catalogue categories. The model returns ranked suggestions;
// the dialogue layer decides whether to auto-pick, offer a choice, or ask
// the user to rephrase.
package classifier

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
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type Client interface {
	Predict(ctx context.Context, description string) ([]Suggestion, error)
}

type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type Config struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("CLASSIFICATION_MODEL_TIMEOUT_SECONDS", 20)
	return Config{
		APIURL:  strings.TrimSpace(os.Getenv("CLASSIFICATION_MODEL_API_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("CLASSIFICATION_MODEL_API_KEY")),
		Timeout: time.Duration(timeoutSec) * time.Second,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("missing CLASSIFICATION_MODEL_API_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &client{
		log:        log.With("client", "ClassifierClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type predictRequest struct {
	Description string `json:"description"`
}

type predictResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

func (c *client) Predict(ctx context.Context, description string) ([]Suggestion, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("classifier client unavailable")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("classifier: description required")
	}

	raw, err := json.Marshal(predictRequest{Description: description})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, c.cfg.APIURL, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out predictResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("classifier decode error: %w", err)
	}
	return out.Suggestions, nil
}
