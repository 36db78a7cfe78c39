package lifecycle

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/clients/stripe"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/errs"
)

var (
	completeReplyPattern = regexp.MustCompile(`^complete_job_(\d+)$`)
	confirmReplyPattern  = regexp.MustCompile(`^confirm_complete_(\d+)$`)
	notDoneReplyPattern  = regexp.MustCompile(`^not_done_(\d+)$`)
)

func ParseCompleteReply(replyID string) (int, bool) { return parseIDReply(completeReplyPattern, replyID) }
func ParseConfirmReply(replyID string) (int, bool)  { return parseIDReply(confirmReplyPattern, replyID) }
func ParseNotDoneReply(replyID string) (int, bool)  { return parseIDReply(notDoneReplyPattern, replyID) }

func parseIDReply(pattern *regexp.Regexp, replyID string) (int, bool) {
	m := pattern.FindStringSubmatch(replyID)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// RequestCompletion handles a bare "mark complete": zero active jobs gets an
// explanation, one gets completed directly, several become a picker.
func (e *Engine) RequestCompletion(ctx context.Context, caller *domain.User) error {
	dbc := dbctx.From(ctx)
	active, err := e.deps.Jobs.ActiveByAccepter(dbc, caller.ID)
	if err != nil {
		return fmt.Errorf("list active jobs: %w", err)
	}
	switch len(active) {
	case 0:
		return e.deps.Notifier.Send(ctx, caller.PhoneNumber, notify.Message{
			Text: "You have no accepted jobs to mark complete. Send \"find job\" to pick one up.",
		})
	case 1:
		return e.MarkComplete(ctx, caller, active[0].ID)
	default:
		rows := make([]notify.ListRow, 0, len(active))
		for _, job := range active {
			rows = append(rows, notify.ListRow{
				ID:          fmt.Sprintf("complete_job_%d", job.ID),
				Title:       job.Description,
				Description: describeJob(job),
			})
		}
		return e.deps.Notifier.Send(ctx, caller.PhoneNumber, notify.Message{
			Text:       "Which job did you finish?",
			ListButton: "Select job",
			ListRows:   rows,
		})
	}
}

// MarkComplete applies the completion step that matches the caller's side of
// the job. The worker moves it to pending review and the poster is asked to
// confirm; the poster's own confirmation completes it and releases the money.
// A caller on neither side is rejected explicitly.
func (e *Engine) MarkComplete(ctx context.Context, caller *domain.User, jobID int) error {
	dbc := dbctx.From(ctx)
	job, err := e.deps.Jobs.GetByID(dbc, jobID)
	if err != nil {
		return fmt.Errorf("lookup job %d: %w", jobID, err)
	}
	if job == nil {
		return e.deps.Notifier.Send(ctx, caller.PhoneNumber, notify.Message{
			Text: "We could not find that job anymore.",
		})
	}
	if domain.IsTerminal(job.Status) {
		return e.deps.Notifier.Send(ctx, caller.PhoneNumber, notify.Message{
			Text: "This job is already closed out, nothing left to do.",
		})
	}

	switch {
	case job.AcceptedBy != nil && *job.AcceptedBy == caller.ID:
		return e.workerMarksDone(ctx, dbc, caller, job)
	case job.PostedBy == caller.ID:
		return e.posterConfirmsDone(ctx, dbc, caller, job)
	default:
		return e.deps.Notifier.Send(ctx, caller.PhoneNumber, notify.Message{
			Text: "Only the poster or the worker on this job can mark it complete.",
		})
	}
}

func (e *Engine) workerMarksDone(ctx context.Context, dbc dbctx.Context, worker *domain.User, job *domain.Job) error {
	moved, err := e.deps.Jobs.MarkPendingReview(dbc, job.ID, worker.ID)
	if err != nil {
		return fmt.Errorf("mark pending review: %w", err)
	}
	if !moved {
		return e.deps.Notifier.Send(ctx, worker.PhoneNumber, notify.Message{
			Text: "This job is not in a state you can mark complete.",
		})
	}

	if err := e.deps.Notifier.Send(ctx, worker.PhoneNumber, notify.Message{
		Text: "Thanks! We asked the poster to confirm the work. You will be paid as soon as they do.",
	}); err != nil {
		return err
	}

	poster, err := e.deps.Users.GetByID(dbc, job.PostedBy)
	if err != nil {
		return fmt.Errorf("lookup poster %d: %w", job.PostedBy, err)
	}
	if poster == nil {
		return fmt.Errorf("poster %d: %w", job.PostedBy, errs.ErrNotFound)
	}
	return e.deps.Notifier.Send(ctx, poster.PhoneNumber, notify.Message{
		Text: fmt.Sprintf("%s says the job %q is done. Confirm to release the payment.", worker.Name, job.Description),
		Options: []notify.Option{
			{ID: fmt.Sprintf("confirm_complete_%d", job.ID), Title: "Confirm & pay"},
			{ID: fmt.Sprintf("not_done_%d", job.ID), Title: "Not done yet"},
		},
	})
}

func (e *Engine) posterConfirmsDone(ctx context.Context, dbc dbctx.Context, poster *domain.User, job *domain.Job) error {
	completed, err := e.deps.Jobs.CompleteByPoster(dbc, job.ID, poster.ID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if !completed {
		return e.deps.Notifier.Send(ctx, poster.PhoneNumber, notify.Message{
			Text: "This job cannot be completed right now. It needs an accepted worker first.",
		})
	}

	if err := e.releaseEscrow(ctx, dbc, job); err != nil {
		// The completion stands; payout provisioning can be retried.
		e.log.Error("escrow release failed",
			"job_id", job.ID,
			"error", err.Error(),
		)
		return e.deps.Notifier.Send(ctx, poster.PhoneNumber, notify.Message{
			Text: "The job is marked complete, but the payout needs another attempt. We are on it.",
		})
	}

	return e.deps.Notifier.Send(ctx, poster.PhoneNumber, notify.Message{
		Text: "Job completed and payment released. Thanks for using the service!",
	})
}

// releaseEscrow captures the held charge and pays the worker, provisioning a
// payout account on first use.
func (e *Engine) releaseEscrow(ctx context.Context, dbc dbctx.Context, job *domain.Job) error {
	if job.PaymentIntentID == "" {
		return fmt.Errorf("job %d has no payment to capture", job.ID)
	}
	if job.AcceptedBy == nil {
		return fmt.Errorf("job %d has no worker to pay", job.ID)
	}
	worker, err := e.deps.Users.GetByID(dbc, *job.AcceptedBy)
	if err != nil {
		return fmt.Errorf("lookup worker %d: %w", *job.AcceptedBy, err)
	}
	if worker == nil {
		return fmt.Errorf("worker %d: %w", *job.AcceptedBy, errs.ErrNotFound)
	}

	if _, err := e.deps.Stripe.CapturePaymentIntent(ctx, job.PaymentIntentID); err != nil {
		return fmt.Errorf("capture payment: %w", err)
	}

	accountID := worker.StripeConnectAccountID
	if accountID == "" {
		account, accErr := e.deps.Stripe.CreateConnectAccount(ctx, worker.PhoneNumber)
		if accErr != nil {
			return fmt.Errorf("create payout account: %w", accErr)
		}
		accountID = account.ID
		if saveErr := e.deps.Users.SetStripeConnectAccountID(dbc, worker.ID, accountID); saveErr != nil {
			return fmt.Errorf("save payout account id: %w", saveErr)
		}
		link, linkErr := e.deps.Stripe.CreateAccountLink(ctx, accountID)
		if linkErr != nil {
			return fmt.Errorf("create onboarding link: %w", linkErr)
		}
		if sendErr := e.deps.Notifier.Send(ctx, worker.PhoneNumber, notify.Message{
			Text: "Set up your payout account to receive your earnings:",
			Options: []notify.Option{
				{Title: "Set up payouts", URL: link.URL},
			},
		}); sendErr != nil {
			return sendErr
		}
	}

	transfer, err := e.deps.Stripe.CreateTransfer(ctx, stripe.TransferParams{
		Amount:             job.Amount,
		DestinationAccount: accountID,
		Description:        fmt.Sprintf("Payout for job %d", job.ID),
	})
	if err != nil {
		return fmt.Errorf("transfer payout: %w", err)
	}
	captured, err := e.deps.Jobs.MarkCaptured(dbc, job.ID, transfer.ID)
	if err != nil {
		return fmt.Errorf("record capture: %w", err)
	}
	if !captured {
		e.log.Warn("payment capture already recorded",
			"job_id", job.ID,
		)
	}

	return e.deps.Notifier.Send(ctx, worker.PhoneNumber, notify.Message{
		Text: fmt.Sprintf("The poster confirmed your work. $%s is on its way to you.", job.Amount.StringFixed(2)),
	})
}
