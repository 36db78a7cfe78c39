package lifecycle

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/errs"
)

var acceptReplyPattern = regexp.MustCompile(`^accept_job_(\d+)$`)

// ParseAcceptReply recognizes the tap on a job listing row.
func ParseAcceptReply(replyID string) (int, bool) {
	m := acceptReplyPattern.FindStringSubmatch(replyID)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// AcceptJob claims a job for the accepter. The claim is a single conditional
// update, so of two users tapping the same listing exactly one wins; the
// loser is told the job is gone and gets a refreshed listing.
func (e *Engine) AcceptJob(ctx context.Context, accepter *domain.User, jobID int) error {
	dbc := dbctx.From(ctx)

	job, err := e.deps.Jobs.GetByID(dbc, jobID)
	if err != nil {
		return fmt.Errorf("lookup job %d: %w", jobID, err)
	}
	if job == nil {
		return e.deps.Notifier.Send(ctx, accepter.PhoneNumber, notify.Message{
			Text: "That job does not exist anymore. Send \"find job\" to see what is available.",
		})
	}
	if job.PostedBy == accepter.ID {
		return e.deps.Notifier.Send(ctx, accepter.PhoneNumber, notify.Message{
			Text: "You posted this job yourself, so you cannot accept it.",
		})
	}

	won := domain.CanTransition(job.Status, domain.StatusAccepted)
	if won {
		won, err = e.deps.Jobs.Accept(dbc, jobID, accepter.ID)
		if err != nil {
			return fmt.Errorf("accept job %d: %w", jobID, err)
		}
	}
	if !won {
		listing, listErr := e.openJobsListing(ctx, dbc, 0, accepter.ID,
			"Sorry, that job is no longer available. Here is what else is open:")
		if listErr != nil {
			return listErr
		}
		if len(listing.ListRows) == 0 {
			listing.Text = "Sorry, that job is no longer available, and nothing else is open right now. Check back soon."
		}
		return e.deps.Notifier.Send(ctx, accepter.PhoneNumber, listing)
	}

	if err := e.deps.Notifier.Send(ctx, accepter.PhoneNumber, notify.Message{
		Text: fmt.Sprintf(
			"You accepted the job: %s (%s, %s). When you are done, reply \"mark complete\".",
			job.Description, job.DateTime.Format("1/2/2006 03:04 PM"), job.City,
		),
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
		Text: fmt.Sprintf("%s accepted your job: %s. Once the work is done you can confirm completion to release the payment.",
			accepter.Name, job.Description),
	})
}
