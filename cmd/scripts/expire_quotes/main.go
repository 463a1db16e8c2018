// Command expire_quotes runs one quote expiry sweep against the configured
// database and exits. It is the manual counterpart of the cron trigger in
// the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangang/rendermarket/internal/config"
	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	at := flag.String("at", "", "expire as of this RFC3339 time instead of now")
	dryRun := flag.Bool("dry-run", false, "only list the requests that would expire")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	now := time.Now().UTC()
	if *at != "" {
		now, err = time.Parse(time.RFC3339, *at)
		if err != nil {
			logger.Fatalf("Invalid -at value: %v", err)
		}
	}

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	if *dryRun {
		var due []models.CustomQuoteRequest
		if err := db.Where("status IN ? AND expires_at < ?",
			[]string{string(engagement.QuotePending), string(engagement.QuoteQuoted)}, now).
			Order("id ASC").Find(&due).Error; err != nil {
			logger.Fatalf("Failed to query quote requests: %v", err)
		}
		fmt.Printf("%-6s %-8s %-8s %-8s %s\n", "ID", "CLIENT", "ARTIST", "STATUS", "EXPIRES")
		for _, qr := range due {
			fmt.Printf("%-6d %-8d %-8d %-8s %s\n", qr.ID, qr.ClientID, qr.ArtistID, qr.Status, qr.ExpiresAt.Format(time.RFC3339))
		}
		fmt.Printf("%d request(s) would expire as of %s\n", len(due), now.Format(time.RFC3339))
		return
	}

	services.InitSystemLogger(db)
	queue := services.InitTaskQueue(cfg)
	if syncQueue, ok := queue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(services.NewEventProcessor(nil))
	}

	engine := services.NewEngagementService(db, &cfg.Marketplace)
	engine.SetEventPublisher(services.NewEventDispatcher(queue))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = sweep(ctx, engine, queue, now)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

type expirer interface {
	ExpireStaleQuoteRequests(ctx context.Context, now time.Time) (int, error)
}

// sweep runs one expiry pass and drains the event queue before returning,
// also when the pass fails partway.
func sweep(ctx context.Context, engine expirer, queue services.TaskQueue, now time.Time) error {
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warnf("Failed to drain event queue: %v", err)
		}
	}()

	n, err := engine.ExpireStaleQuoteRequests(ctx, now)
	if err != nil {
		logger.Error().Err(err).Int("expired", n).Msg("Expiry sweep stopped")
		return err
	}
	logger.Info().Int("expired", n).Time("as_of", now).Msg("Expiry sweep finished")
	return nil
}
