// Package sweeper runs scheduled maintenance over job rows. Its one job today
// is expiring abandoned checkouts: a posting whose payment never arrived sits
// pending/posted + unpaid forever and must not linger as a half-open draft.
package sweeper

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/repos"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/dbctx"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/envutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type Config struct {
	// Schedule is a cron expression; default is hourly on the hour.
	Schedule string
	// MaxUnpaidAge is how long an unpaid job may sit before it is expired.
	MaxUnpaidAge time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Schedule:     envutil.String("SWEEP_SCHEDULE", "0 * * * *"),
		MaxUnpaidAge: envutil.Duration("SWEEP_MAX_UNPAID_AGE", 24*time.Hour),
	}
}

type Sweeper struct {
	log  *logger.Logger
	cfg  Config
	jobs repos.JobRepo
	cron *cron.Cron
}

func New(log *logger.Logger, cfg Config, jobs repos.JobRepo) (*Sweeper, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if jobs == nil {
		return nil, fmt.Errorf("job repo required")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 * * * *"
	}
	if cfg.MaxUnpaidAge <= 0 {
		cfg.MaxUnpaidAge = 24 * time.Hour
	}
	return &Sweeper{
		log:  log.With("service", "JobSweeper"),
		cfg:  cfg,
		jobs: jobs,
		cron: cron.New(),
	}, nil
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	s.log.Info("sweeper started", "schedule", s.cfg.Schedule)
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().UTC().Add(-s.cfg.MaxUnpaidAge)
	expired, err := s.jobs.ExpireStaleUnpaid(dbctx.Background(), cutoff)
	if err != nil {
		s.log.Error("sweep failed", "error", err.Error())
		return
	}
	if expired > 0 {
		s.log.Info("expired abandoned checkouts", "count", expired)
	}
}
