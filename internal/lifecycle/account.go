package lifecycle

import (
	"context"
	"fmt"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/notify"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
)

// DeleteAccount anonymizes the user in place and untangles their jobs: open
// posts are tombstoned, accepted work goes back on the market. Completed
// history keeps its rows; the anonymized user record preserves referential
// integrity.
func (e *Engine) DeleteAccount(ctx context.Context, user *domain.User) error {
	dbc := dbctx.From(ctx)

	released, err := e.deps.Jobs.ReleaseByAccepter(dbc, user.ID)
	if err != nil {
		return fmt.Errorf("release accepted jobs: %w", err)
	}
	deleted, err := e.deps.Jobs.DeleteOpenByPoster(dbc, user.ID)
	if err != nil {
		return fmt.Errorf("delete open jobs: %w", err)
	}
	if err := e.deps.Users.Anonymize(dbc, user.ID); err != nil {
		return fmt.Errorf("anonymize user: %w", err)
	}
	e.deps.Sessions.Forget(user.ID)

	e.log.Info("account deleted",
		"released_jobs", released,
		"removed_jobs", deleted,
	)
	return e.deps.Notifier.Send(ctx, user.PhoneNumber, notify.Message{
		Text: "Your account and personal data have been removed. Goodbye, and thanks for using the service.",
	})
}
