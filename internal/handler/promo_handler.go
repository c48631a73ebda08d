package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/venuedesk/service-billing/internal/application"
	"github.com/venuedesk/service-billing/internal/platform/auth"
	"github.com/venuedesk/service-billing/internal/platform/middleware"
	"github.com/venuedesk/service-billing/internal/platform/response"
)

// PromoHandler handles HTTP requests for promo code operations.
type PromoHandler struct {
	service *application.PromoService
	limiter *middleware.RateLimiter
}

// NewPromoHandler creates a new PromoHandler. A nil limiter leaves
// validation unthrottled.
func NewPromoHandler(service *application.PromoService, limiter *middleware.RateLimiter) *PromoHandler {
	return &PromoHandler{service: service, limiter: limiter}
}

// RegisterRoutes registers all promo routes.
func (h *PromoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	validate := []gin.HandlerFunc{h.ValidatePromo}
	if h.limiter != nil {
		validate = append([]gin.HandlerFunc{h.limiter.Limit()}, validate...)
	}

	promos := r.Group("/promos")
	promos.Use(authMW)
	{
		promos.POST("", middleware.RequireRole(auth.RoleAdmin), h.CreatePromo)
		promos.POST("/validate", validate...)
		promos.GET("/active", h.GetActivePromos)
		promos.POST("/:id/deactivate", middleware.RequireRole(auth.RoleAdmin), h.DeactivatePromo)
	}
}

// CreatePromo handles POST /api/v1/promos.
func (h *PromoHandler) CreatePromo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreatePromo(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ValidatePromo handles POST /api/v1/promos/validate.
func (h *PromoHandler) ValidatePromo(c *gin.Context) {
	var req application.ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ValidatePromo(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetActivePromos handles GET /api/v1/promos/active.
func (h *PromoHandler) GetActivePromos(c *gin.Context) {
	result, err := h.service.GetActivePromos(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeactivatePromo handles POST /api/v1/promos/:id/deactivate.
func (h *PromoHandler) DeactivatePromo(c *gin.Context) {
	id, ok := pathID(c, "id", "promo")
	if !ok {
		return
	}

	result, err := h.service.DeactivatePromo(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
