// Package lifecycle owns the job state machine and the money flow around it.
// Every transition is a guarded update in the job repo; the engine sequences
// those updates with the payment, geocoding, and classification collaborators
// and talks back to users through the notification dispatcher.
//
// Handlers never let an internal error reach the transport: validation
// failures become corrective prompts, lost races become explanatory messages,
// collaborator failures become a logged generic retry message.
package lifecycle

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/classifier"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/geocode"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/stripe"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/dialog"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/envutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/session"
)

// Fulfillment tags the NLU collaborator is configured with.
const (
	TagValidatePostJob = "validateCollectedPostJobData"
	TagValidateFindJob = "validateCollectedFindJobData"
	TagConfirmation    = "postJobDataConfirmation"
	TagSave            = "postJobDataSave"
	TagFindResults     = "findJobResults"
)

type Config struct {
	MinPrice    decimal.Decimal
	PostingFee  decimal.Decimal
	SearchLimit int
}

func ConfigFromEnv() Config {
	return Config{
		MinPrice:    decimal.NewFromInt(int64(envutil.Int("JOB_MIN_PRICE", 10))),
		PostingFee:  decimal.NewFromFloat(float64(envutil.Int("JOB_POSTING_FEE_CENTS", 300)) / 100),
		SearchLimit: envutil.Int("JOB_SEARCH_LIMIT", 10),
	}
}

type Deps struct {
	Users      repos.UserRepo
	Categories repos.CategoryRepo
	Addresses  repos.AddressRepo
	Jobs       repos.JobRepo
	Sessions   session.Resolver
	Stripe     stripe.Client
	Geocoder   geocode.Client
	Classifier classifier.Client
	Notifier   notify.Dispatcher
}

type Engine struct {
	log  *logger.Logger
	cfg  Config
	deps Deps
}

func NewEngine(log *logger.Logger, cfg Config, deps Deps) (*Engine, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	switch {
	case deps.Users == nil, deps.Categories == nil, deps.Addresses == nil, deps.Jobs == nil:
		return nil, fmt.Errorf("all repos required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session resolver required")
	case deps.Stripe == nil, deps.Geocoder == nil, deps.Classifier == nil:
		return nil, fmt.Errorf("all collaborator clients required")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	}
	if cfg.MinPrice.IsZero() {
		cfg.MinPrice = decimal.NewFromInt(10)
	}
	if cfg.PostingFee.IsZero() {
		cfg.PostingFee = decimal.NewFromInt(3)
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
	return &Engine{
		log:  log.With("service", "JobLifecycle"),
		cfg:  cfg,
		deps: deps,
	}, nil
}

// RegisterHandlers binds the engine's dialogue steps to the fulfillment
// router.
func (e *Engine) RegisterHandlers(r *dialog.Router) error {
	for tag, h := range map[string]dialog.Handler{
		TagValidatePostJob: e.handleValidatePostJob,
		TagValidateFindJob: e.handleValidateFindJob,
		TagConfirmation:    e.handleConfirmation,
		TagSave:            e.handleSave,
		TagFindResults:     e.handleFindResults,
	} {
		if err := r.Register(tag, h); err != nil {
			return err
		}
	}
	return nil
}
