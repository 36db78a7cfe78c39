package repos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type ChatSessionRepo interface {
	Create(dbc dbctx.Context, session *domain.ChatSession) (*domain.ChatSession, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.ChatSession, error)
	LatestByUser(dbc dbctx.Context, userID int) (*domain.ChatSession, error)
	// AttachJob links a job to the session once; a session that already has a
	// job keeps it.
	AttachJob(dbc dbctx.Context, id uuid.UUID, jobID int) (bool, error)
	SaveParameters(dbc dbctx.Context, id uuid.UUID, parameters datatypes.JSON) error
}

type chatSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
	return &chatSessionRepo{db: db, log: baseLog.With("repo", "ChatSessionRepo")}
}

func (r *chatSessionRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *chatSessionRepo) Create(dbc dbctx.Context, session *domain.ChatSession) (*domain.ChatSession, error) {
	if session == nil {
		return nil, fmt.Errorf("session required")
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if err := r.conn(dbc).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *chatSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.ChatSession, error) {
	var session domain.ChatSession
	err := r.conn(dbc).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *chatSessionRepo) LatestByUser(dbc dbctx.Context, userID int) (*domain.ChatSession, error) {
	var session domain.ChatSession
	err := r.conn(dbc).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *chatSessionRepo) AttachJob(dbc dbctx.Context, id uuid.UUID, jobID int) (bool, error) {
	res := r.conn(dbc).Model(&domain.ChatSession{}).
		Where("id = ? AND job_id IS NULL", id).
		Update("job_id", jobID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *chatSessionRepo) SaveParameters(dbc dbctx.Context, id uuid.UUID, parameters datatypes.JSON) error {
	return r.conn(dbc).Model(&domain.ChatSession{}).
		Where("id = ?", id).
		Update("parameters", parameters).Error
}
