package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"github.com/huangang/rendermarket/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the subsystems the engine relies on.
type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	hub   *services.SSEHub
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, hub *services.SSEHub) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, hub: hub}
}

// CheckHealth
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := 200

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = 503
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	var sseClients int
	var sseDropped int64
	if h.hub != nil {
		sseClients = h.hub.ClientCount()
		sseDropped = h.hub.Dropped()
	}

	var pendingQuotes int64
	if dbStatus == "ok" {
		h.db.Model(&models.CustomQuoteRequest{}).
			Where("status IN ?", []string{string(engagement.QuotePending), string(engagement.QuoteQuoted)}).
			Count(&pendingQuotes)
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "rendermarket",
		"components": gin.H{
			"database":       dbStatus,
			"queue_mode":     queueMode,
			"sse_clients":    sseClients,
			"sse_dropped":    sseDropped,
			"pending_quotes": pendingQuotes,
		},
	})
}
