package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/response"
)

// EngagementHandler serves the merged engagement list and the fulfillment
// endpoints shared by projects and package orders.
type EngagementHandler struct {
	engine   *services.EngagementService
	resolver *services.MatchingResolver
}

func NewEngagementHandler(engine *services.EngagementService, resolver *services.MatchingResolver) *EngagementHandler {
	return &EngagementHandler{engine: engine, resolver: resolver}
}

// List returns the caller's active engagements across all acquisition paths
// GET /api/engagements
func (h *EngagementHandler) List(c *gin.Context) {
	list, err := h.resolver.ListActiveEngagements(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// ListDeliveries
// GET /api/engagements/:kind/:id/deliveries
func (h *EngagementHandler) ListDeliveries(c *gin.Context) {
	ref, ok := engagementRef(c)
	if !ok {
		return
	}

	list, err := h.engine.ListDeliveries(c.Request.Context(), middleware.ActorFrom(c), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// SubmitDelivery records the next round of work
// POST /api/engagements/:kind/:id/deliveries
func (h *EngagementHandler) SubmitDelivery(c *gin.Context) {
	ref, ok := engagementRef(c)
	if !ok {
		return
	}
	var req services.SubmitDeliveryRequest
	if !bindJSON(c, &req) {
		return
	}

	delivery, err := h.engine.SubmitDelivery(c.Request.Context(), middleware.ActorFrom(c), ref, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, delivery)
}

// Approve closes out a delivered engagement
// POST /api/engagements/:kind/:id/approve
func (h *EngagementHandler) Approve(c *gin.Context) {
	ref, ok := engagementRef(c)
	if !ok {
		return
	}
	var req services.ApproveCompletionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.engine.ApproveCompletion(c.Request.Context(), middleware.ActorFrom(c), ref, req.ExpectedVersion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ReviewDelivery accepts a round or asks for a revision
// POST /api/deliveries/:id/review
func (h *EngagementHandler) ReviewDelivery(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ReviewDeliveryRequest
	if !bindJSON(c, &req) {
		return
	}

	delivery, err := h.engine.ReviewDelivery(c.Request.Context(), middleware.ActorFrom(c), id, req.Decision, req.ExpectedVersion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, delivery)
}
