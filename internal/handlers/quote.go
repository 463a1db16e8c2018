package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/response"
)

type QuoteHandler struct {
	engine *services.EngagementService
}

func NewQuoteHandler(engine *services.EngagementService) *QuoteHandler {
	return &QuoteHandler{engine: engine}
}

// Request asks one artist for a custom quote
// POST /api/quote-requests
func (h *QuoteHandler) Request(c *gin.Context) {
	var req services.QuoteRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	qr, err := h.engine.RequestCustomQuote(c.Request.Context(), middleware.ActorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, qr)
}

// List returns the requests the caller sent or received
// GET /api/quote-requests
func (h *QuoteHandler) List(c *gin.Context) {
	list, err := h.engine.ListQuoteRequests(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// GET /api/quote-requests/:id
func (h *QuoteHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	qr, err := h.engine.GetQuoteRequest(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, qr)
}

// SubmitQuote prices a request. Resubmitting replaces the earlier quote.
// POST /api/quote-requests/:id/quote
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.SubmitQuoteRequest
	if !bindJSON(c, &req) {
		return
	}

	qr, err := h.engine.SubmitQuote(c.Request.Context(), middleware.ActorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, qr)
}

// Decide accepts or rejects the quote on a request
// POST /api/quote-requests/:id/decision
func (h *QuoteHandler) Decide(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.DecisionRequest
	if !bindJSON(c, &req) {
		return
	}

	qr, err := h.engine.DecideQuote(c.Request.Context(), middleware.ActorFrom(c), id, req.Decision, req.ExpectedVersion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, qr)
}

// Decline is the artist turning a request down
// POST /api/quote-requests/:id/decline
func (h *QuoteHandler) Decline(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req VersionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	qr, err := h.engine.DeclineQuoteRequest(c.Request.Context(), middleware.ActorFrom(c), id, req.ExpectedVersion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, qr)
}
