package main

import (
	"github.com/huangang/rendermarket/internal/config"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/models"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/internal/utils"
	"github.com/huangang/rendermarket/pkg/logger"
)

// appServices holds the initialized engine and the background machinery
// around it.
type appServices struct {
	cfg       *config.Config
	engine    *services.EngagementService
	resolver  *services.MatchingResolver
	auth      *services.AuthService
	logs      *services.SystemLogService
	calendar  *services.CalendarService
	hub       *services.SSEHub
	taskQueue services.TaskQueue
	worker    *services.Worker
	expiry    *services.ExpiryScheduler
	limiter   *middleware.RateLimiter
}

// bootstrap initializes the database, the engine, event delivery and the
// expiry scheduler.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	services.InitSystemLogger(db)

	hub := services.GetSSEHub()
	processor := services.NewEventProcessor(hub)

	// Sync mode runs the processor inline after each commit; with Redis the
	// worker consumes what the async queue enqueues.
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processor)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processor)
			if err := worker.Start(); err != nil {
				logger.Fatalf("Failed to start event worker: %v", err)
			}
		}
	}

	engine := services.NewEngagementService(db, &cfg.Marketplace)
	engine.SetEventPublisher(services.NewEventDispatcher(taskQueue))

	var expiry *services.ExpiryScheduler
	if cfg.Marketplace.ExpiryEnabled {
		expiry = services.NewExpiryScheduler(db, engine, cfg)
		if err := expiry.Start(); err != nil {
			logger.Fatalf("Failed to start expiry scheduler: %v", err)
		}
	}

	return &appServices{
		cfg:       cfg,
		engine:    engine,
		resolver:  services.NewMatchingResolver(db),
		auth:      services.NewAuthService(db, &cfg.JWT),
		logs:      services.NewSystemLogService(db),
		calendar:  services.NewCalendarService(),
		hub:       hub,
		taskQueue: taskQueue,
		worker:    worker,
		expiry:    expiry,
		limiter:   middleware.FromConfig(&cfg.RateLimit),
	}
}

// shutdown stops the schedulers first so no new events are produced, then
// drains event delivery.
func (s *appServices) shutdown() {
	if s.expiry != nil {
		s.expiry.Stop()
		logger.Info().Msg("Expiry scheduler stopped")
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
