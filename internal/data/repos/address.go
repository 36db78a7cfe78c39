package repos

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type AddressRepo interface {
	// Register persists the address unless the user already has one with the
	// same dedup index; the returned bool reports whether an existing row was
	// reused.
	Register(dbc dbctx.Context, address *domain.Address) (*domain.Address, bool, error)
	GetByID(dbc dbctx.Context, id int) (*domain.Address, error)
}

type addressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAddressRepo(db *gorm.DB, baseLog *logger.Logger) AddressRepo {
	return &addressRepo{db: db, log: baseLog.With("repo", "AddressRepo")}
}

func (r *addressRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *addressRepo) Register(dbc dbctx.Context, address *domain.Address) (*domain.Address, bool, error) {
	if address == nil {
		return nil, false, fmt.Errorf("address required")
	}
	if address.UserID == 0 {
		return nil, false, fmt.Errorf("address user id required")
	}
	address.AddressIndex = address.Index()

	var existing domain.Address
	err := r.conn(dbc).
		Where("address_index = ? AND user_id = ?", address.AddressIndex, address.UserID).
		First(&existing).Error
	if err == nil {
		return &existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if address.Country == "" {
		address.Country = "USA"
	}
	if err := r.conn(dbc).Create(address).Error; err != nil {
		return nil, false, err
	}
	return address, false, nil
}

func (r *addressRepo) GetByID(dbc dbctx.Context, id int) (*domain.Address, error) {
	var address domain.Address
	err := r.conn(dbc).Where("id = ?", id).First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}
