package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/rendermarket/internal/config"
	"github.com/huangang/rendermarket/internal/models"
	"github.com/huangang/rendermarket/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	expiryLockName  = "quote_expiry"
	cleanupLockName = "log_cleanup"
)

// ExpiryScheduler is the external trigger that expires unanswered quote
// requests. Runs are claimed through scheduler_locks so only one instance
// sharing the database performs each tick.
type ExpiryScheduler struct {
	db            *gorm.DB
	engine        *EngagementService
	logs          *SystemLogService
	schedule      string
	retentionDays int
	holder        string
	now           func() time.Time
	cron          *cron.Cron
}

func NewExpiryScheduler(db *gorm.DB, engine *EngagementService, cfg *config.Config) *ExpiryScheduler {
	return &ExpiryScheduler{
		db:            db,
		engine:        engine,
		logs:          NewSystemLogService(db),
		schedule:      cfg.Marketplace.ExpirySchedule,
		retentionDays: cfg.Log.RetentionDays,
		holder:        uuid.NewString(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the expiry tick and a daily log cleanup.
func (s *ExpiryScheduler) Start() error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			logger.Error().Err(err).Msg("[Expiry] run failed")
		}
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", s.cleanup); err != nil {
		return err
	}

	s.cron.Start()
	logger.Infof("[Expiry] Scheduler started with schedule %q", s.schedule)
	return nil
}

func (s *ExpiryScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunOnce expires stale requests if this instance wins the claim for the
// current minute. It returns how many requests were expired.
func (s *ExpiryScheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	key := now.Truncate(time.Minute).Format("200601021504")

	ok, err := models.TryAcquireLock(s.db.WithContext(ctx), expiryLockName, key, s.holder, 10*time.Minute, now)
	if err != nil {
		return 0, err
	}
	if !ok {
		logger.Debug().Str("key", key).Msg("[Expiry] tick claimed by another instance")
		return 0, nil
	}

	n, err := s.engine.ExpireStaleQuoteRequests(ctx, now)
	if err != nil {
		return n, err
	}
	if n > 0 {
		logger.Info().Int("expired", n).Msg("[Expiry] quote requests expired")
	}
	return n, nil
}

func (s *ExpiryScheduler) cleanup() {
	now := s.now()
	ok, err := models.TryAcquireLock(s.db, cleanupLockName, now.Format("20060102"), s.holder, 24*time.Hour, now)
	if err != nil || !ok {
		return
	}

	if n, err := models.PruneLocks(s.db, now); err == nil && n > 0 {
		logger.Debug().Int64("pruned", n).Msg("[Expiry] scheduler locks pruned")
	}
	deleted, err := s.logs.CleanupOldLogs(s.retentionDays)
	if err != nil {
		logger.Warn().Err(err).Msg("[SystemLog] cleanup failed")
		return
	}
	if deleted > 0 {
		logger.Infof("[SystemLog] Cleaned up %d logs older than %d days", deleted, s.retentionDays)
	}
}
