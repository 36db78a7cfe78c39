package domain

import "time"

// User is the long-lived anchor referenced by jobs and chat sessions.
// Users are created on first contact after explicit consent and are never
// hard-deleted: account deletion anonymizes the row in place and stamps
// DeletedAt.
type User struct {
	ID                     int        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                   string     `gorm:"not null" json:"name"`
	PhoneNumber            string     `gorm:"not null;uniqueIndex" json:"phone_number"`
	StripeCustomerID       string     `gorm:"column:stripe_customer_id" json:"stripe_customer_id,omitempty"`
	StripeConnectAccountID string     `gorm:"column:stripe_connect_account_id" json:"stripe_connect_account_id,omitempty"`
	ConsentedAt            *time.Time `gorm:"column:consented_at" json:"consented_at,omitempty"`
	DeletedAt              *time.Time `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
	CreatedAt              time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// HasConsented reports whether the user accepted the data-processing prompt.
func (u *User) HasConsented() bool {
	return u != nil && u.ConsentedAt != nil
}

// IsDeleted reports whether the account was anonymized.
func (u *User) IsDeleted() bool {
	return u != nil && u.DeletedAt != nil
}
