package lifecycle

import (
	"context"
	"fmt"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/dialog"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
)

// handleFindResults closes the find-job dialogue: the listing is sent to the
// user's chat directly (the fulfillment text channel cannot carry a list
// picker), the dialogue just acknowledges.
func (e *Engine) handleFindResults(ctx context.Context, turn *dialog.Turn) (*dialog.Result, error) {
	dbc := dbctx.From(ctx)
	params := dialog.DecodeFindJobParams(turn.Parameters)

	user, err := e.deps.Users.GetByPhone(dbc, turn.Phone)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return dialog.TextResult("We could not find your account. Please send a message to start over."), nil
	}

	categoryID := 0
	if params.Category != "" {
		category, catErr := e.deps.Categories.GetByName(dbc, params.Category)
		if catErr != nil {
			return nil, fmt.Errorf("resolve category: %w", catErr)
		}
		if category == nil {
			return dialog.TextResult(fmt.Sprintf(
				"We have no %q jobs right now. Try a broader search or check back later.", params.Category)), nil
		}
		categoryID = category.ID
	}

	listing, err := e.openJobsListing(ctx, dbc, categoryID, user.ID,
		"Here are open jobs you can accept:")
	if err != nil {
		return nil, err
	}
	if len(listing.ListRows) == 0 {
		return dialog.TextResult("There are no open jobs matching your search right now. Check back soon."), nil
	}
	if err := e.deps.Notifier.Send(ctx, user.PhoneNumber, listing); err != nil {
		return nil, fmt.Errorf("send job listing: %w", err)
	}
	return &dialog.Result{}, nil
}

// openJobsListing renders discoverable jobs as a tappable list. Rows reply
// with accept_job_<id>.
func (e *Engine) openJobsListing(ctx context.Context, dbc dbctx.Context, categoryID, excludeUserID int, prompt string) (notify.Message, error) {
	jobs, err := e.deps.Jobs.SearchOpen(dbc, categoryID, excludeUserID, e.cfg.SearchLimit)
	if err != nil {
		return notify.Message{}, fmt.Errorf("search open jobs: %w", err)
	}
	if len(jobs) == 0 {
		return notify.Message{
			Text: "There are no open jobs matching your search right now. Check back soon.",
		}, nil
	}

	rows := make([]notify.ListRow, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, notify.ListRow{
			ID:          fmt.Sprintf("accept_job_%d", job.ID),
			Title:       job.Description,
			Description: describeJob(job),
		})
	}
	return notify.Message{
		Text:       prompt,
		ListButton: "View jobs",
		ListTitle:  "Open jobs",
		ListRows:   rows,
	}, nil
}

func describeJob(job *domain.Job) string {
	where := job.City
	if job.State != "" {
		where += ", " + job.State
	}
	if where == "" {
		where = job.ZipCode
	}
	return fmt.Sprintf("$%s · %s · %s",
		job.Amount.StringFixed(2),
		job.DateTime.Format("1/2 03:04 PM"),
		where,
	)
}
