package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/venuedesk/service-billing/internal/application"
	"github.com/venuedesk/service-billing/internal/platform/auth"
	"github.com/venuedesk/service-billing/internal/platform/middleware"
	"github.com/venuedesk/service-billing/internal/platform/response"
)

// SpaceHandler handles HTTP requests for tables and halls.
type SpaceHandler struct {
	service *application.VenueService
}

// NewSpaceHandler creates a new SpaceHandler.
func NewSpaceHandler(service *application.VenueService) *SpaceHandler {
	return &SpaceHandler{service: service}
}

// RegisterRoutes registers all space routes on the given router group.
func (h *SpaceHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	spaces := r.Group("/spaces")
	spaces.Use(middleware.AuthMiddleware(jwtManager))
	{
		spaces.POST("", middleware.RequireRole(auth.RoleAdmin), h.CreateSpace)
		spaces.GET("", h.ListSpaces)
		spaces.GET("/:id", h.GetSpace)
		spaces.POST("/:id/deactivate", middleware.RequireRole(auth.RoleAdmin), h.DeactivateSpace)
	}
}

// CreateSpace handles POST /api/v1/spaces
func (h *SpaceHandler) CreateSpace(c *gin.Context) {
	var req application.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.CreateSpace(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// ListSpaces handles GET /api/v1/spaces?all=true
func (h *SpaceHandler) ListSpaces(c *gin.Context) {
	activeOnly := c.Query("all") != "true"
	spaces, err := h.service.ListSpaces(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, spaces)
}

// GetSpace handles GET /api/v1/spaces/:id
func (h *SpaceHandler) GetSpace(c *gin.Context) {
	id, ok := pathID(c, "id", "space")
	if !ok {
		return
	}

	dto, err := h.service.GetSpace(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// DeactivateSpace handles POST /api/v1/spaces/:id/deactivate
func (h *SpaceHandler) DeactivateSpace(c *gin.Context) {
	id, ok := pathID(c, "id", "space")
	if !ok {
		return
	}

	dto, err := h.service.DeactivateSpace(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
