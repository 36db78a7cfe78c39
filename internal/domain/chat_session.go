package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Job-type labels carried on chat sessions. The label records which dialogue
// the session was opened for; the NLU collaborator correlates turns by the
// session id embedded in its correlation id.
const (
	JobTypePost     = "post_job"
	JobTypeFind     = "find_job"
	JobTypeComplete = "mark_complete"
)

// ChatSession is an append-only record of a job-related dialogue. It is
// referenced, never mutated, except to attach a job id once a job is created
// mid-session. Sessions are kept forever for audit.
type ChatSession struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     int            `gorm:"not null;index" json:"user_id"`
	JobID      *int           `gorm:"column:job_id" json:"job_id,omitempty"`
	JobType    string         `gorm:"column:job_type" json:"job_type,omitempty"`
	Parameters datatypes.JSON `gorm:"column:parameters" json:"parameters,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (ChatSession) TableName() string { return "chat_sessions" }
