// Package geocode resolves a US zip code to its city and state through the
// Google Geocoding API. The bot uses it to echo a human-readable location
// back during job posting and to validate the zip a user typed.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/ctxutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/envutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type Client interface {
	// LookupZip returns (nil, nil) when the zip is well-formed but unknown;
	// transport and API failures come back as errors so callers can tell
	// "bad zip" apart from "could not check".
	LookupZip(ctx context.Context, zip string) (*Place, error)
}

type Place struct {
	Zip   string
	City  string
	State string
}

type Config struct {
	APIKey  string
	BaseURL string
	Region  string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("GOOGLE_MAPS_TIMEOUT_SECONDS", 10)
	return Config{
		APIKey:  strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY")),
		BaseURL: strings.TrimSpace(os.Getenv("GOOGLE_MAPS_BASE_URL")),
		Region:  envutil.String("GOOGLE_MAPS_REGION", "US"),
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
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing GOOGLE_MAPS_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	if cfg.Region == "" {
		cfg.Region = "US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &client{
		log:        log.With("client", "GeocodeClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type geocodeResponse struct {
	Status  string          `json:"status"`
	Results []geocodeResult `json:"results"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (c *client) LookupZip(ctx context.Context, zip string) (*Place, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("geocode client unavailable")
	}
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return nil, fmt.Errorf("geocode: zip required")
	}

	query := url.Values{}
	query.Set("components", "postal_code:"+zip+"|country:"+c.cfg.Region)
	query.Set("key", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, c.cfg.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
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
		return nil, fmt.Errorf("geocode http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out geocodeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("geocode decode error: %w", err)
	}
	switch out.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, fmt.Errorf("geocode status %s", out.Status)
	}
	if len(out.Results) == 0 {
		return nil, nil
	}

	place := &Place{Zip: zip}
	for _, comp := range out.Results[0].AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality", "postal_town":
				if place.City == "" {
					place.City = comp.LongName
				}
			case "administrative_area_level_1":
				place.State = comp.ShortName
			}
		}
	}
	if place.City == "" {
		// Rural zips often report the township as sublocality or level 3.
		for _, comp := range out.Results[0].AddressComponents {
			for _, t := range comp.Types {
				if t == "sublocality" || t == "administrative_area_level_3" {
					place.City = comp.LongName
				}
			}
		}
	}
	if place.City == "" || place.State == "" {
		return nil, nil
	}
	return place, nil
}
