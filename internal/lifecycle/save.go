package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/stripe"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/dialog"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/errs"
)

// handleSave persists the confirmed job and opens the escrow leg: the job row
// is created pending/unpaid, a manual-capture checkout session is attached,
// and the user gets the payment link. The job becomes discoverable only after
// the payment callback authorizes it.
func (e *Engine) handleSave(ctx context.Context, turn *dialog.Turn) (*dialog.Result, error) {
	dbc := dbctx.From(ctx)
	params := dialog.DecodePostJobParams(turn.Parameters)

	user, err := e.deps.Users.GetByPhone(dbc, turn.Phone)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return dialog.TextResult("We could not find your account. Please send a message to start over."), nil
	}

	if params.Description == "" || params.Category == "" || params.ZipCode == "" {
		return dialog.TextResult("Some job details are missing. Let's go over them again."), nil
	}
	scheduled, ok := params.Scheduled()
	if !ok {
		return dialog.TextResult("I could not work out the date and time for this job. When should it happen?"), nil
	}
	if params.Amount == nil {
		return dialog.TextResult("How much are you offering for this job?"), nil
	}
	if params.Amount.Amount.LessThan(e.cfg.MinPrice) {
		return dialog.TextResult(minPriceMessage).
			WithParameters(map[string]interface{}{"amount": nil}), nil
	}

	category, err := e.deps.Categories.GetOrCreate(dbc, params.Category)
	if err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}

	city, state := splitLocation(params.Location)
	fee := params.PostingFee
	if fee.IsZero() {
		fee = e.cfg.PostingFee
	}
	job, err := e.deps.Jobs.Create(dbc, &domain.Job{
		Description: params.Description,
		CategoryID:  category.ID,
		DateTime:    scheduled,
		Amount:      params.Amount.Amount,
		PostingFee:  fee,
		ZipCode:     params.ZipCode,
		City:        city,
		State:       state,
		PostedBy:    user.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if sessionID, parseErr := uuid.Parse(turn.ChatSessionID); parseErr == nil {
		if _, attachErr := e.deps.Sessions.AttachJob(dbc, sessionID, job.ID); attachErr != nil {
			e.log.Warn("could not attach job to chat session",
				"job_id", job.ID,
				"error", attachErr.Error(),
			)
		}
	}

	checkoutURL, err := e.openCheckout(ctx, dbc, user, job, params)
	if err != nil {
		e.log.Error("checkout setup failed",
			"job_id", job.ID,
			"error", err.Error(),
		)
		return dialog.TextResult("Your job was saved, but we could not start the payment. Please try again in a moment."), nil
	}

	total := job.Total()
	prompt := fmt.Sprintf(
		"Your job is saved. Complete the payment of $%s ($%s job + $%s posting fee) to post it. "+
			"The money is held until you confirm the work is done.",
		total.StringFixed(2), job.Amount.StringFixed(2), job.PostingFee.StringFixed(2),
	)
	return &dialog.Result{Messages: []dialog.ResponseMessage{
		dialog.ChipsMessage(prompt, dialog.Chip{Text: "Pay $" + total.StringFixed(2), URL: checkoutURL}),
	}}, nil
}

func (e *Engine) openCheckout(ctx context.Context, dbc dbctx.Context, user *domain.User, job *domain.Job, params *dialog.PostJobParams) (string, error) {
	customerID := user.StripeCustomerID
	if customerID == "" {
		customer, err := e.deps.Stripe.FindOrCreateCustomer(ctx, user.Name, user.PhoneNumber)
		if err != nil {
			return "", fmt.Errorf("stripe customer: %w", err)
		}
		customerID = customer.ID
		if err := e.deps.Users.SetStripeCustomerID(dbc, user.ID, customerID); err != nil {
			return "", fmt.Errorf("save stripe customer id: %w", err)
		}
	}

	dateStr, timeStr := "", ""
	if params.Date != nil {
		dateStr = params.Date.Format()
	}
	if params.Time != nil {
		timeStr = params.Time.Format()
	}
	checkout, err := e.deps.Stripe.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		CustomerID:      customerID,
		Amount:          job.Total(),
		ProductName:     titleCase(params.Category) + " job posting",
		JobID:           job.ID,
		JobDescription:  job.Description,
		JobCategory:     params.Category,
		JobDate:         dateStr,
		JobTime:         timeStr,
		JobAmount:       job.Amount,
		RecipientNumber: user.PhoneNumber,
		UserID:          user.ID,
	})
	if err != nil {
		return "", fmt.Errorf("stripe checkout: %w", err)
	}

	linked, err := e.deps.Jobs.LinkCheckout(dbc, job.ID, checkout.ID)
	if err != nil {
		return "", fmt.Errorf("link checkout: %w", err)
	}
	if !linked {
		return "", fmt.Errorf("job %d not in a linkable state: %w", job.ID, errs.ErrConflict)
	}
	return checkout.URL, nil
}

func splitLocation(location string) (city, state string) {
	city, state, found := strings.Cut(location, ",")
	if !found {
		return strings.TrimSpace(location), ""
	}
	return strings.TrimSpace(city), strings.TrimSpace(state)
}
