package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/response"
)

type ApplicationHandler struct {
	engine *services.EngagementService
}

func NewApplicationHandler(engine *services.EngagementService) *ApplicationHandler {
	return &ApplicationHandler{engine: engine}
}

// Submit applies to an open project
// POST /api/projects/:id/applications
func (h *ApplicationHandler) Submit(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.SubmitApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.engine.SubmitApplication(c.Request.Context(), middleware.ActorFrom(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// ListForProject returns the applications to a project, for its owner
// GET /api/projects/:id/applications
func (h *ApplicationHandler) ListForProject(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}

	apps, err := h.engine.ListProjectApplications(c.Request.Context(), middleware.ActorFrom(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, apps)
}

// ListMine returns the caller's own applications
// GET /api/applications
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	apps, err := h.engine.ListArtistApplications(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, apps)
}

// Decide accepts or rejects an application. Accepting starts the project.
// POST /api/applications/:id/decision
func (h *ApplicationHandler) Decide(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.DecisionRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.engine.DecideApplication(c.Request.Context(), middleware.ActorFrom(c), id, req.Decision, req.ExpectedVersion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Withdraw
// POST /api/applications/:id/withdraw
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req VersionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	app, err := h.engine.WithdrawApplication(c.Request.Context(), middleware.ActorFrom(c), id, req.ExpectedVersion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, app)
}
