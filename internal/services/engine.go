package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/rendermarket/internal/config"
	"github.com/huangang/rendermarket/internal/engagement"
	"gorm.io/gorm"
)

// Decision is a counterparty's answer to a proposal.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) valid() bool {
	return d == DecisionAccept || d == DecisionReject
}

// EngagementService runs every lifecycle command. Each command loads its
// records, consults the transition tables, and commits all writes in one
// transaction using version-conditioned updates.
type EngagementService struct {
	db       *gorm.DB
	cfg      config.MarketplaceConfig
	now      func() time.Time
	events   EventPublisher
	calendar *CalendarService
}

func NewEngagementService(db *gorm.DB, cfg *config.MarketplaceConfig) *EngagementService {
	if cfg == nil {
		cfg = &config.DefaultConfig().Marketplace
	}
	return &EngagementService{
		db:       db,
		cfg:      *cfg,
		now:      func() time.Time { return time.Now().UTC() },
		calendar: NewCalendarService(),
	}
}

// SetClock replaces the time source. Used by tests and the expiry CLI.
func (s *EngagementService) SetClock(now func() time.Time) {
	s.now = now
}

// SetEventPublisher installs the sink for committed transitions.
func (s *EngagementService) SetEventPublisher(p EventPublisher) {
	s.events = p
}

// outbox collects events inside a transaction; they are only published
// after commit.
type outbox struct {
	events []EngagementEvent
}

func (o *outbox) add(ev EngagementEvent) {
	o.events = append(o.events, ev)
}

// conn scopes db to ctx and stamps created_at/updated_at from the engine
// clock.
func (s *EngagementService) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Session(&gorm.Session{NowFunc: s.now})
}

func (s *EngagementService) command(ctx context.Context, fn func(tx *gorm.DB, out *outbox) error) error {
	var out outbox
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, &out)
	})
	if err != nil {
		return err
	}

	if s.events != nil && len(out.events) > 0 {
		at := s.now()
		for i := range out.events {
			if out.events[i].OccurredAt.IsZero() {
				out.events[i].OccurredAt = at
			}
		}
		s.events.Publish(out.events...)
	}
	return nil
}

// first loads one row by primary key, translating a miss into NotFound.
func first(tx *gorm.DB, dest any, kind engagement.Kind, id uint) error {
	if err := tx.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engagement.NotFound(kind, id)
		}
		return fmt.Errorf("load %s %d: %w", kind, id, err)
	}
	return nil
}

// transition writes updates only if the row still carries version. Zero
// affected rows means someone else committed first.
func transition(tx *gorm.DB, model any, kind engagement.Kind, id uint, version int, updates map[string]any) error {
	updates["version"] = gorm.Expr("version + 1")
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update %s %d: %w", kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return engagement.StaleState(kind, id)
	}
	return nil
}

// expectVersion compares the caller's read version with the stored one.
func expectVersion(kind engagement.Kind, id uint, expected *int, actual int) error {
	if expected != nil && *expected != actual {
		return engagement.StaleState(kind, id).
			With("expected_version", *expected).
			With("current_version", actual)
	}
	return nil
}

func (s *EngagementService) roundsOrDefault(n int) (int, error) {
	if n < 0 {
		return 0, engagement.InvalidInput("revision_rounds cannot be negative")
	}
	if n == 0 {
		return s.cfg.DefaultRevisionRounds, nil
	}
	return n, nil
}

func (s *EngagementService) daysOrDefault(n int, field string) (int, error) {
	if n < 0 {
		return 0, engagement.InvalidInput(field + " cannot be negative")
	}
	if n == 0 {
		return s.cfg.DefaultDeliveryDays, nil
	}
	return n, nil
}

func pageBounds(page, size, defaultSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
