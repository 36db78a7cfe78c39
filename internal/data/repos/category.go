package repos

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type CategoryRepo interface {
	GetByID(dbc dbctx.Context, id int) (*domain.Category, error)
	GetByName(dbc dbctx.Context, name string) (*domain.Category, error)
	// GetOrCreate resolves a classifier-suggested category, creating the row
	// the first time the catalogue sees that name.
	GetOrCreate(dbc dbctx.Context, name string) (*domain.Category, error)
	List(dbc dbctx.Context) ([]*domain.Category, error)
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return &categoryRepo{db: db, log: baseLog.With("repo", "CategoryRepo")}
}

func (r *categoryRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *categoryRepo) GetByID(dbc dbctx.Context, id int) (*domain.Category, error) {
	var cat domain.Category
	err := r.conn(dbc).Where("id = ?", id).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *categoryRepo) GetByName(dbc dbctx.Context, name string) (*domain.Category, error) {
	var cat domain.Category
	err := r.conn(dbc).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *categoryRepo) GetOrCreate(dbc dbctx.Context, name string) (*domain.Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, errors.New("category name required")
	}
	existing, err := r.GetByName(dbc, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	cat := domain.Category{Name: name}
	if err := r.conn(dbc).Create(&cat).Error; err != nil {
		// Lost a create race; the row exists now.
		if again, lookupErr := r.GetByName(dbc, name); lookupErr == nil && again != nil {
			return again, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *categoryRepo) List(dbc dbctx.Context) ([]*domain.Category, error) {
	var out []*domain.Category
	if err := r.conn(dbc).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
