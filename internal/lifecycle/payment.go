package lifecycle

import (
	"context"
	"fmt"
	"strconv"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/errs"
)

// HandlePaymentSuccess finishes the escrow authorization after the browser
// checkout redirects back. The billing address from checkout is deduplicated
// per user before the job flips to authorized/posted in one guarded update;
// the payment provider retrying the redirect therefore cannot apply the
// transition twice, and only the winning delivery notifies the poster.
func (e *Engine) HandlePaymentSuccess(ctx context.Context, checkoutSessionID string) error {
	if checkoutSessionID == "" {
		return fmt.Errorf("checkout session id required: %w", errs.ErrInvalidArgument)
	}
	dbc := dbctx.From(ctx)

	checkout, err := e.deps.Stripe.GetCheckoutSession(ctx, checkoutSessionID)
	if err != nil {
		return fmt.Errorf("retrieve checkout session: %w", err)
	}
	if checkout == nil {
		return fmt.Errorf("checkout session %s: %w", checkoutSessionID, errs.ErrNotFound)
	}

	job, err := e.deps.Jobs.GetByPaymentID(dbc, checkout.ID)
	if err != nil {
		return fmt.Errorf("lookup job by payment id: %w", err)
	}
	if job == nil {
		// Fall back to the job id the checkout carries in its metadata.
		jobID, convErr := strconv.Atoi(checkout.Metadata["job_id"])
		if convErr != nil {
			return fmt.Errorf("checkout %s references no known job: %w", checkout.ID, errs.ErrNotFound)
		}
		job, err = e.deps.Jobs.GetByID(dbc, jobID)
		if err != nil {
			return fmt.Errorf("lookup job %d: %w", jobID, err)
		}
		if job == nil {
			return fmt.Errorf("checkout %s references missing job %d: %w", checkout.ID, jobID, errs.ErrNotFound)
		}
	}

	addressID := 0
	if checkout.CustomerDetails != nil && checkout.CustomerDetails.Address != nil {
		billing := checkout.CustomerDetails.Address
		address, _, regErr := e.deps.Addresses.Register(dbc, &domain.Address{
			Street:  billing.Line1,
			City:    billing.City,
			State:   billing.State,
			ZipCode: billing.PostalCode,
			Country: billing.Country,
			UserID:  job.PostedBy,
		})
		if regErr != nil {
			return fmt.Errorf("register billing address: %w", regErr)
		}
		addressID = address.ID
	}

	confirmed, err := e.deps.Jobs.ConfirmPayment(dbc, job.ID, addressID, checkout.PaymentIntentID)
	if err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}
	if !confirmed {
		e.log.Info("payment already confirmed, skipping",
			"job_id", job.ID,
		)
		return nil
	}

	poster, err := e.deps.Users.GetByID(dbc, job.PostedBy)
	if err != nil {
		return fmt.Errorf("lookup poster %d: %w", job.PostedBy, err)
	}
	if poster == nil {
		return fmt.Errorf("poster %d: %w", job.PostedBy, errs.ErrNotFound)
	}
	return e.deps.Notifier.Send(ctx, poster.PhoneNumber, notify.Message{
		Text: "Payment received. Your job is now posted and visible to workers nearby. " +
			"You will hear from us when someone accepts it.",
	})
}
