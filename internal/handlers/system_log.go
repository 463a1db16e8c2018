package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/response"
)

// HistoryHandler exposes the audit trail of one engagement to its parties.
type HistoryHandler struct {
	engine *services.EngagementService
	logs   *services.SystemLogService
}

func NewHistoryHandler(engine *services.EngagementService, logs *services.SystemLogService) *HistoryHandler {
	return &HistoryHandler{engine: engine, logs: logs}
}

type historyQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// GET /api/engagements/:kind/:id/history
func (h *HistoryHandler) List(c *gin.Context) {
	ref, ok := engagementRef(c)
	if !ok {
		return
	}
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// loading the deliveries doubles as the party check
	if _, err := h.engine.ListDeliveries(c.Request.Context(), middleware.ActorFrom(c), ref); err != nil {
		response.Error(c, err)
		return
	}

	resp, err := h.logs.History(ref, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}
