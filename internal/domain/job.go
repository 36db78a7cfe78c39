package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Job is owned exclusively by the job repository. Money fields are
// fixed-point decimals persisted as numeric(10,2).
//
// Invariants:
//   - AcceptedBy set ⇒ Status ∈ {accepted, pending_review, completed}
//   - discoverable by search ⇔ Status = posted ∧ PaymentStatus = authorized
type Job struct {
	ID                int             `gorm:"primaryKey;autoIncrement" json:"id"`
	Description       string          `gorm:"column:job_description;not null" json:"description"`
	CategoryID        int             `gorm:"not null;index:idx_job_category_id" json:"category_id"`
	DateTime          time.Time       `gorm:"column:date_time;not null;index:idx_job_date_time" json:"date_time"`
	Amount            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	PostingFee        decimal.Decimal `gorm:"column:posting_fee;type:numeric(10,2)" json:"posting_fee"`
	ZipCode           string          `gorm:"column:zip_code;not null" json:"zip_code"`
	City              string          `json:"city,omitempty"`
	State             string          `json:"state,omitempty"`
	PostedBy          int             `gorm:"column:posted_by;not null;index" json:"posted_by"`
	AcceptedBy        *int            `gorm:"column:accepted_by;index" json:"accepted_by,omitempty"`
	AddressID         *int            `gorm:"column:address_id" json:"address_id,omitempty"`
	PaymentID         string          `gorm:"column:payment_id;index" json:"payment_id,omitempty"`
	PaymentIntentID   string          `gorm:"column:payment_intent" json:"payment_intent,omitempty"`
	PaymentTransferID string          `gorm:"column:payment_transfer_id" json:"payment_transfer_id,omitempty"`
	Status            JobStatus       `gorm:"not null;default:pending;index:idx_job_status" json:"status"`
	PaymentStatus     PaymentStatus   `gorm:"column:payment_status;not null;default:unpaid" json:"payment_status"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

// Discoverable reports whether the job may appear in find-job searches.
func (j *Job) Discoverable() bool {
	return j != nil && j.Status == StatusPosted && j.PaymentStatus == PaymentAuthorized
}

// Total returns the checkout total: amount plus posting fee.
func (j *Job) Total() decimal.Decimal {
	return j.Amount.Add(j.PostingFee)
}
