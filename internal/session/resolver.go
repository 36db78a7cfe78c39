// Package session keeps a conversation attached to the same chat session
// across webhook deliveries. The durable chat_sessions table is the source of
// truth; a process-local cache only saves the common-case lookup. Losing the
// cache must never lose the conversation, so resolution always falls back to
// the most recent persisted session before giving up.
package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type Resolver interface {
	// StartSession begins a fresh conversation for the user and makes it the
	// user's current session.
	StartSession(dbc dbctx.Context, userID int, jobType string) (*domain.ChatSession, error)
	// Resolve returns the user's current session: cached first, then the most
	// recent persisted one, then nil when the user has never talked to us.
	Resolve(dbc dbctx.Context, userID int) (*domain.ChatSession, error)
	// AttachJob links a job to the session. The first job wins; reports
	// whether this call did the linking.
	AttachJob(dbc dbctx.Context, sessionID uuid.UUID, jobID int) (bool, error)
	// SaveParameters snapshots the dialogue's collected slots on the durable
	// session row so a conversation can pick up after a process restart.
	SaveParameters(dbc dbctx.Context, sessionID uuid.UUID, parameters map[string]interface{}) error
	// Forget drops the user's cached session. Durable state is untouched.
	Forget(userID int)
}

// JobCommand maps a typed or tapped job command to its session job type.
// Free-form turns return ("", false) and continue the current conversation.
func JobCommand(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch normalized {
	case "post job", "post a job", "post_job":
		return domain.JobTypePost, true
	case "find job", "find a job", "find_job":
		return domain.JobTypeFind, true
	case "mark complete", "mark as complete", "mark_complete":
		return domain.JobTypeComplete, true
	}
	return "", false
}

type cacheEntry struct {
	sessionID uuid.UUID
	expiresAt time.Time
}

type resolver struct {
	log      *logger.Logger
	sessions repos.ChatSessionRepo

	mu    sync.Mutex
	cache map[int]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewResolver(log *logger.Logger, sessions repos.ChatSessionRepo, cacheTTL time.Duration) (Resolver, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("chat session repo required")
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	return &resolver{
		log:      log.With("service", "SessionResolver"),
		sessions: sessions,
		cache:    make(map[int]cacheEntry),
		ttl:      cacheTTL,
		now:      time.Now,
	}, nil
}

func (r *resolver) StartSession(dbc dbctx.Context, userID int, jobType string) (*domain.ChatSession, error) {
	created, err := r.sessions.Create(dbc, &domain.ChatSession{
		UserID:  userID,
		JobType: jobType,
	})
	if err != nil {
		return nil, err
	}
	r.remember(userID, created.ID)
	return created, nil
}

func (r *resolver) Resolve(dbc dbctx.Context, userID int) (*domain.ChatSession, error) {
	if id, ok := r.cached(userID); ok {
		found, err := r.sessions.GetByID(dbc, id)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
		// Cache pointed at a session the store no longer has.
		r.Forget(userID)
	}

	latest, err := r.sessions.LatestByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		r.remember(userID, latest.ID)
		return latest, nil
	}
	return nil, nil
}

func (r *resolver) AttachJob(dbc dbctx.Context, sessionID uuid.UUID, jobID int) (bool, error) {
	return r.sessions.AttachJob(dbc, sessionID, jobID)
}

func (r *resolver) SaveParameters(dbc dbctx.Context, sessionID uuid.UUID, parameters map[string]interface{}) error {
	raw, err := json.Marshal(parameters)
	if err != nil {
		return fmt.Errorf("marshal session parameters: %w", err)
	}
	return r.sessions.SaveParameters(dbc, sessionID, datatypes.JSON(raw))
}

func (r *resolver) Forget(userID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, userID)
}

func (r *resolver) remember(userID int, sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[userID] = cacheEntry{sessionID: sessionID, expiresAt: r.now().Add(r.ttl)}
}

func (r *resolver) cached(userID int) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[userID]
	if !ok {
		return uuid.Nil, false
	}
	if r.now().After(entry.expiresAt) {
		delete(r.cache, userID)
		return uuid.Nil, false
	}
	return entry.sessionID, true
}

// CorrelationID builds the identifier the NLU collaborator keys its dialogue
// state off. Without a session the phone alone is used, which begins a fresh
// dialogue on the collaborator side too.
func CorrelationID(phone string, sess *domain.ChatSession) string {
	if sess == nil || sess.ID == uuid.Nil {
		return phone
	}
	return phone + "&" + sess.ID.String()
}
