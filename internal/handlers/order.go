package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/response"
)

type OrderHandler struct {
	engine *services.EngagementService
}

func NewOrderHandler(engine *services.EngagementService) *OrderHandler {
	return &OrderHandler{engine: engine}
}

// GET /api/orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := h.engine.GetPackageOrder(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, order)
}

// Start is the artist picking up a pending order
// POST /api/orders/:id/start
func (h *OrderHandler) Start(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.StartOrderRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	order, err := h.engine.StartPackageOrder(c.Request.Context(), middleware.ActorFrom(c), id, req.ExpectedVersion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, order)
}
