// Package stripe is the payments collaborator client. Escrow works in two
// legs: a checkout session authorizes the full charge up front (manual
// capture), and the capture plus worker transfer happen only after the poster
// confirms the work. Everything here is the Stripe REST surface needed for
// that flow, nothing more.
package stripe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/ctxutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/envutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/httpx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type Client interface {
	FindOrCreateCustomer(ctx context.Context, name, phone string) (*Customer, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	CapturePaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)
	CreateConnectAccount(ctx context.Context, phone string) (*Account, error)
	CreateAccountLink(ctx context.Context, accountID string) (*AccountLink, error)
	CreateTransfer(ctx context.Context, in TransferParams) (*Transfer, error)
}

type Config struct {
	SecretKey  string
	BaseURL    string
	WebsiteURL string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("STRIPE_TIMEOUT_SECONDS", 30)
	return Config{
		SecretKey:  strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("STRIPE_BASE_URL")),
		WebsiteURL: strings.TrimSpace(os.Getenv("WEBSITE_URL")),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: envutil.Int("STRIPE_MAX_RETRIES", 2),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("missing STRIPE_SECRET_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "StripeClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// ---------- resource types ----------

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type customerSearchResult struct {
	Data []Customer `json:"data"`
}

type CheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntentID string            `json:"payment_intent"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails *CustomerDetails  `json:"customer_details"`
}

type CustomerDetails struct {
	Name    string          `json:"name"`
	Address *BillingAddress `json:"address"`
}

type BillingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type PaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Account struct {
	ID string `json:"id"`
}

type AccountLink struct {
	URL string `json:"url"`
}

type Transfer struct {
	ID string `json:"id"`
}

// CheckoutParams is everything the checkout leg needs. Job facts ride along
// as session metadata so the payment callback can finish the flow without a
// second database round trip to reconstruct context.
type CheckoutParams struct {
	CustomerID      string
	Amount          decimal.Decimal
	ProductName     string
	JobID           int
	JobDescription  string
	JobCategory     string
	JobDate         string
	JobTime         string
	JobAmount       decimal.Decimal
	RecipientNumber string
	UserID          int
}

type TransferParams struct {
	Amount             decimal.Decimal
	DestinationAccount string
	Description        string
}

// ---------- operations ----------

func (c *client) FindOrCreateCustomer(ctx context.Context, name, phone string) (*Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("stripe: phone required")
	}
	query := url.Values{}
	query.Set("query", fmt.Sprintf("phone:'%s'", phone))
	found, err := doCall[customerSearchResult](ctx, c, http.MethodGet, "/customers/search?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if len(found.Data) > 0 {
		return &found.Data[0], nil
	}

	form := url.Values{}
	form.Set("name", name)
	form.Set("phone", phone)
	return doCall[*Customer](ctx, c, http.MethodPost, "/customers", form)
}

func (c *client) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (*CheckoutSession, error) {
	if in.CustomerID == "" {
		return nil, fmt.Errorf("stripe: customer required")
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("stripe: amount must be positive")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("customer", in.CustomerID)
	form.Set("billing_address_collection", "required")
	form.Set("payment_intent_data[capture_method]", "manual")
	form.Set("success_url", strings.TrimRight(c.cfg.WebsiteURL, "/")+"/success?paymentID={CHECKOUT_SESSION_ID}")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(toCents(in.Amount), 10))
	form.Set("line_items[0][price_data][product_data][name]", in.ProductName)
	form.Set("metadata[job_id]", strconv.Itoa(in.JobID))
	form.Set("metadata[job_description]", in.JobDescription)
	form.Set("metadata[job_category]", in.JobCategory)
	form.Set("metadata[job_date]", in.JobDate)
	form.Set("metadata[job_time]", in.JobTime)
	form.Set("metadata[job_amount]", in.JobAmount.StringFixed(2))
	form.Set("metadata[recipient_number]", in.RecipientNumber)
	form.Set("metadata[user_id]", strconv.Itoa(in.UserID))

	return doCall[*CheckoutSession](ctx, c, http.MethodPost, "/checkout/sessions", form)
}

func (c *client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("stripe: session id required")
	}
	return doCall[*CheckoutSession](ctx, c, http.MethodGet, "/checkout/sessions/"+url.PathEscape(sessionID), nil)
}

func (c *client) CapturePaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, fmt.Errorf("stripe: payment intent id required")
	}
	path := "/payment_intents/" + url.PathEscape(paymentIntentID) + "/capture"
	return doCall[*PaymentIntent](ctx, c, http.MethodPost, path, url.Values{})
}

func (c *client) CreateConnectAccount(ctx context.Context, phone string) (*Account, error) {
	form := url.Values{}
	form.Set("type", "express")
	form.Set("business_profile[product_description]", "Job marketplace payout account")
	if phone = strings.TrimSpace(phone); phone != "" {
		form.Set("business_profile[support_phone]", phone)
	}
	return doCall[*Account](ctx, c, http.MethodPost, "/accounts", form)
}

func (c *client) CreateAccountLink(ctx context.Context, accountID string) (*AccountLink, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("stripe: account id required")
	}
	site := strings.TrimRight(c.cfg.WebsiteURL, "/")
	form := url.Values{}
	form.Set("account", accountID)
	form.Set("type", "account_onboarding")
	form.Set("refresh_url", site+"/onboarding/refresh")
	form.Set("return_url", site+"/onboarding/complete")
	return doCall[*AccountLink](ctx, c, http.MethodPost, "/account_links", form)
}

func (c *client) CreateTransfer(ctx context.Context, in TransferParams) (*Transfer, error) {
	if in.DestinationAccount == "" {
		return nil, fmt.Errorf("stripe: destination account required")
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("stripe: amount must be positive")
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(toCents(in.Amount), 10))
	form.Set("currency", "usd")
	form.Set("destination", in.DestinationAccount)
	if in.Description != "" {
		form.Set("description", in.Description)
	}
	return doCall[*Transfer](ctx, c, http.MethodPost, "/transfers", form)
}

// toCents rounds half-up to whole cents, which is how dollar amounts are
// stored in numeric(10,2) columns anyway.
func toCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ---------- transport ----------

func doCall[T any](ctx context.Context, c *client, method, path string, form url.Values) (T, error) {
	var zero T
	if c == nil || c.httpClient == nil {
		return zero, fmt.Errorf("stripe client unavailable")
	}

	backoff := 1 * time.Second
	for attempt := 0; ; attempt++ {
		if ctx != nil && ctx.Err() != nil {
			return zero, ctx.Err()
		}
		out, resp, err := doOnce[T](ctx, c, method, path, form)
		if err == nil {
			return out, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return zero, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 8*time.Second))
		c.log.Warn("Stripe call retrying",
			"method", method,
			"path", path,
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
}

func doOnce[T any](ctx context.Context, c *client, method, path string, form url.Values) (T, *http.Response, error) {
	var zero T
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.cfg.BaseURL+path, body)
	if err != nil {
		return zero, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, resp, err
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return zero, resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out T
	if err := json.Unmarshal(respBody, &out); err != nil {
		return zero, resp, fmt.Errorf("stripe decode error: %w", err)
	}
	return out, resp, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "stripe: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("stripe http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
