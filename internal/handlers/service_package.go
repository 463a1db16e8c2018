package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/response"
)

type PackageHandler struct {
	engine *services.EngagementService
}

func NewPackageHandler(engine *services.EngagementService) *PackageHandler {
	return &PackageHandler{engine: engine}
}

// ListForArtist returns an artist's listed packages, cheapest first
// GET /api/artists/:id/packages
func (h *PackageHandler) ListForArtist(c *gin.Context) {
	artistID, ok := paramID(c, "id")
	if !ok {
		return
	}

	pkgs, err := h.engine.ListActivePackages(c.Request.Context(), artistID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pkgs)
}

// POST /api/packages
func (h *PackageHandler) Create(c *gin.Context) {
	var req services.ServicePackageRequest
	if !bindJSON(c, &req) {
		return
	}

	pkg, err := h.engine.CreateServicePackage(c.Request.Context(), middleware.ActorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pkg)
}

// PUT /api/packages/:id
func (h *PackageHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ServicePackageRequest
	if !bindJSON(c, &req) {
		return
	}

	pkg, err := h.engine.UpdateServicePackage(c.Request.Context(), middleware.ActorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pkg)
}

// SetActive lists or unlists a package
// POST /api/packages/:id/active
func (h *PackageHandler) SetActive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.SetPackageActiveRequest
	if !bindJSON(c, &req) {
		return
	}

	pkg, err := h.engine.SetServicePackageActive(c.Request.Context(), middleware.ActorFrom(c), id, req.Active, req.ExpectedVersion)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pkg)
}

// Purchase orders a package
// POST /api/packages/:id/orders
func (h *PackageHandler) Purchase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.PurchasePackageRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.engine.PurchasePackage(c.Request.Context(), middleware.ActorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order)
}
