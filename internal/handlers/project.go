package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/response"
)

type ProjectHandler struct {
	engine *services.EngagementService
}

func NewProjectHandler(engine *services.EngagementService) *ProjectHandler {
	return &ProjectHandler{engine: engine}
}

// List returns the open board
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.engine.ListOpenProjects(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GetByID returns a project
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	project, err := h.engine.GetProject(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Create posts a project to the board
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.engine.CreateProject(c.Request.Context(), middleware.ActorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Close takes an open project off the board
// POST /api/projects/:id/close
func (h *ProjectHandler) Close(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req VersionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	project, err := h.engine.CloseProject(c.Request.Context(), middleware.ActorFrom(c), id, req.ExpectedVersion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}
