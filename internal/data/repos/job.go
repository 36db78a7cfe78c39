package repos

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

// JobRepo owns all job rows. Every correctness-bearing transition is a
// conditional update whose guard repeats the precondition in the WHERE
// clause; the bool result reports whether the caller won the update. Two
// concurrent tasks racing on the same row therefore resolve at the database,
// not in process memory.
type JobRepo interface {
	Create(dbc dbctx.Context, job *domain.Job) (*domain.Job, error)
	GetByID(dbc dbctx.Context, id int) (*domain.Job, error)
	GetByPaymentID(dbc dbctx.Context, paymentID string) (*domain.Job, error)

	// LinkCheckout moves pending → posted (still unpaid) and records the
	// checkout-session reference.
	LinkCheckout(dbc dbctx.Context, id int, paymentID string) (bool, error)
	// ConfirmPayment applies the checkout-success callback: unpaid →
	// authorized plus the resolved address, in one guarded update. A
	// duplicate callback delivery loses the guard and is a no-op.
	ConfirmPayment(dbc dbctx.Context, id int, addressID int, paymentIntentID string) (bool, error)
	// Accept succeeds only while the job is still posted, authorized, and
	// unaccepted.
	Accept(dbc dbctx.Context, id int, accepterID int) (bool, error)
	// CompleteByPoster moves accepted|pending_review → completed, but only
	// for the poster.
	CompleteByPoster(dbc dbctx.Context, id int, posterID int) (bool, error)
	// MarkPendingReview moves accepted → pending_review, but only for the
	// accepter.
	MarkPendingReview(dbc dbctx.Context, id int, accepterID int) (bool, error)
	// MarkCaptured moves payment authorized → captured and records the payout
	// transfer reference.
	MarkCaptured(dbc dbctx.Context, id int, transferID string) (bool, error)

	// ActiveByAccepter lists jobs the user accepted and has not finished.
	ActiveByAccepter(dbc dbctx.Context, accepterID int) ([]*domain.Job, error)

	// SearchOpen lists discoverable jobs (posted + authorized, unaccepted),
	// optionally filtered by category, excluding the seeker's own posts.
	SearchOpen(dbc dbctx.Context, categoryID int, excludeUserID int, limit int) ([]*domain.Job, error)

	// DeleteOpenByPoster tombstones a departing poster's unfinished jobs.
	DeleteOpenByPoster(dbc dbctx.Context, posterID int) (int64, error)
	// ReleaseByAccepter reverts a departing accepter's accepted jobs to
	// posted with accepted_by cleared.
	ReleaseByAccepter(dbc dbctx.Context, accepterID int) (int64, error)
	// ExpireStaleUnpaid tombstones jobs whose checkout was abandoned.
	ExpireStaleUnpaid(dbc dbctx.Context, olderThan time.Time) (int64, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{db: db, log: baseLog.With("repo", "JobRepo")}
}

func (r *jobRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *jobRepo) Create(dbc dbctx.Context, job *domain.Job) (*domain.Job, error) {
	if job == nil {
		return nil, fmt.Errorf("job required")
	}
	if job.Status == "" {
		job.Status = domain.StatusPending
	}
	if job.PaymentStatus == "" {
		job.PaymentStatus = domain.PaymentUnpaid
	}
	if err := r.conn(dbc).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) GetByID(dbc dbctx.Context, id int) (*domain.Job, error) {
	var job domain.Job
	err := r.conn(dbc).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) GetByPaymentID(dbc dbctx.Context, paymentID string) (*domain.Job, error) {
	var job domain.Job
	err := r.conn(dbc).Where("payment_id = ?", paymentID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) LinkCheckout(dbc dbctx.Context, id int, paymentID string) (bool, error) {
	res := r.conn(dbc).Model(&domain.Job{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]interface{}{
			"status":     domain.StatusPosted,
			"payment_id": paymentID,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) ConfirmPayment(dbc dbctx.Context, id int, addressID int, paymentIntentID string) (bool, error) {
	updates := map[string]interface{}{
		"status":         domain.StatusPosted,
		"payment_status": domain.PaymentAuthorized,
		"updated_at":     time.Now().UTC(),
	}
	if addressID > 0 {
		updates["address_id"] = addressID
	}
	if paymentIntentID != "" {
		updates["payment_intent"] = paymentIntentID
	}
	res := r.conn(dbc).Model(&domain.Job{}).
		Where("id = ? AND payment_status = ?", id, domain.PaymentUnpaid).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) Accept(dbc dbctx.Context, id int, accepterID int) (bool, error) {
	res := r.conn(dbc).Model(&domain.Job{}).
		Where("id = ? AND status = ? AND accepted_by IS NULL AND payment_status = ?",
			id, domain.StatusPosted, domain.PaymentAuthorized).
		Updates(map[string]interface{}{
			"status":      domain.StatusAccepted,
			"accepted_by": accepterID,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) CompleteByPoster(dbc dbctx.Context, id int, posterID int) (bool, error) {
	res := r.conn(dbc).Model(&domain.Job{}).
		Where("id = ? AND posted_by = ? AND status IN ?",
			id, posterID, []domain.JobStatus{domain.StatusAccepted, domain.StatusPendingReview}).
		Updates(map[string]interface{}{
			"status":     domain.StatusCompleted,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) MarkPendingReview(dbc dbctx.Context, id int, accepterID int) (bool, error) {
	res := r.conn(dbc).Model(&domain.Job{}).
		Where("id = ? AND accepted_by = ? AND status = ?", id, accepterID, domain.StatusAccepted).
		Updates(map[string]interface{}{
			"status":     domain.StatusPendingReview,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) MarkCaptured(dbc dbctx.Context, id int, transferID string) (bool, error) {
	res := r.conn(dbc).Model(&domain.Job{}).
		Where("id = ? AND payment_status = ?", id, domain.PaymentAuthorized).
		Updates(map[string]interface{}{
			"payment_status":      domain.PaymentCaptured,
			"payment_transfer_id": transferID,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) ActiveByAccepter(dbc dbctx.Context, accepterID int) ([]*domain.Job, error) {
	var out []*domain.Job
	err := r.conn(dbc).
		Where("accepted_by = ? AND status = ?", accepterID, domain.StatusAccepted).
		Order("date_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) SearchOpen(dbc dbctx.Context, categoryID int, excludeUserID int, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 10
	}
	q := r.conn(dbc).Model(&domain.Job{}).
		Where("status = ? AND payment_status = ? AND accepted_by IS NULL",
			domain.StatusPosted, domain.PaymentAuthorized)
	if categoryID > 0 {
		q = q.Where("category_id = ?", categoryID)
	}
	if excludeUserID > 0 {
		q = q.Where("posted_by <> ?", excludeUserID)
	}
	var out []*domain.Job
	if err := q.Order("date_time ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) DeleteOpenByPoster(dbc dbctx.Context, posterID int) (int64, error) {
	res := r.conn(dbc).Model(&domain.Job{}).
		Where("posted_by = ? AND status IN ?", posterID,
			[]domain.JobStatus{domain.StatusPending, domain.StatusPosted, domain.StatusAccepted, domain.StatusPendingReview}).
		Updates(map[string]interface{}{
			"status":     domain.StatusDeleted,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *jobRepo) ReleaseByAccepter(dbc dbctx.Context, accepterID int) (int64, error) {
	res := r.conn(dbc).Model(&domain.Job{}).
		Where("accepted_by = ? AND status = ?", accepterID, domain.StatusAccepted).
		Updates(map[string]interface{}{
			"status":      domain.StatusPosted,
			"accepted_by": nil,
			"updated_at":  time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *jobRepo) ExpireStaleUnpaid(dbc dbctx.Context, olderThan time.Time) (int64, error) {
	res := r.conn(dbc).Model(&domain.Job{}).
		Where("payment_status = ? AND status IN ? AND created_at < ?",
			domain.PaymentUnpaid,
			[]domain.JobStatus{domain.StatusPending, domain.StatusPosted},
			olderThan).
		Updates(map[string]interface{}{
			"status":     domain.StatusDeleted,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
