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

type UserRepo interface {
	Create(dbc dbctx.Context, user *domain.User) (*domain.User, error)
	GetByID(dbc dbctx.Context, id int) (*domain.User, error)
	GetByPhone(dbc dbctx.Context, phoneNumber string) (*domain.User, error)
	SetConsented(dbc dbctx.Context, id int, at time.Time) error
	SetStripeCustomerID(dbc dbctx.Context, id int, customerID string) error
	SetStripeConnectAccountID(dbc dbctx.Context, id int, accountID string) error
	Anonymize(dbc dbctx.Context, id int) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *userRepo) Create(dbc dbctx.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, fmt.Errorf("user required")
	}
	if err := r.conn(dbc).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, id int) (*domain.User, error) {
	var user domain.User
	err := r.conn(dbc).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByPhone(dbc dbctx.Context, phoneNumber string) (*domain.User, error) {
	var user domain.User
	err := r.conn(dbc).Where("phone_number = ?", phoneNumber).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) SetConsented(dbc dbctx.Context, id int, at time.Time) error {
	return r.conn(dbc).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"consented_at": at,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *userRepo) SetStripeCustomerID(dbc dbctx.Context, id int, customerID string) error {
	return r.conn(dbc).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stripe_customer_id": customerID,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (r *userRepo) SetStripeConnectAccountID(dbc dbctx.Context, id int, accountID string) error {
	return r.conn(dbc).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stripe_connect_account_id": accountID,
			"updated_at":                time.Now().UTC(),
		}).Error
}

// Anonymize overwrites the user's PII in place and stamps deleted_at. The row
// survives so historical jobs keep a valid anchor; the phone placeholder keeps
// the unique index satisfied.
func (r *userRepo) Anonymize(dbc dbctx.Context, id int) error {
	now := time.Now().UTC()
	return r.conn(dbc).Model(&domain.User{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"name":                      "Deleted User",
			"phone_number":              fmt.Sprintf("deleted:%d", id),
			"stripe_customer_id":        "",
			"stripe_connect_account_id": "",
			"deleted_at":                now,
			"updated_at":                now,
		}).Error
}
