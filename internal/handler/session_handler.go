package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/venuedesk/service-billing/internal/application"
	"github.com/venuedesk/service-billing/internal/platform/auth"
	"github.com/venuedesk/service-billing/internal/platform/middleware"
	"github.com/venuedesk/service-billing/internal/platform/response"
)

// SessionHandler handles HTTP requests for venue sessions.
type SessionHandler struct {
	sessions *application.SessionService
	billing  *application.BillingService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *application.SessionService, billing *application.BillingService) *SessionHandler {
	return &SessionHandler{sessions: sessions, billing: billing}
}

// RegisterRoutes registers all session routes on the given router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	sessions := r.Group("/sessions")
	sessions.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	{
		sessions.POST("", h.StartSession)
		sessions.GET("/open", h.ListOpenSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.POST("/:id/switch", h.SwitchSpace)
		sessions.POST("/:id/members", h.AddMember)
		sessions.POST("/:id/members/:memberId/leave", h.RemoveMember)
		sessions.POST("/:id/orders", h.AddOrder)
		sessions.GET("/:id/quote", h.Quote)
		sessions.POST("/:id/close", h.CloseSession)
	}
}

// StartSession handles POST /api/v1/sessions
func (h *SessionHandler) StartSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.sessions.StartSession(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// ListOpenSessions handles GET /api/v1/sessions/open
func (h *SessionHandler) ListOpenSessions(c *gin.Context) {
	dtos, err := h.sessions.ListOpenSessions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// GetSession handles GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := pathID(c, "id", "session")
	if !ok {
		return
	}

	dto, err := h.sessions.GetSession(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// SwitchSpace handles POST /api/v1/sessions/:id/switch
func (h *SessionHandler) SwitchSpace(c *gin.Context) {
	id, ok := pathID(c, "id", "session")
	if !ok {
		return
	}

	var req application.SwitchSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.sessions.SwitchSpace(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// AddMember handles POST /api/v1/sessions/:id/members
func (h *SessionHandler) AddMember(c *gin.Context) {
	id, ok := pathID(c, "id", "session")
	if !ok {
		return
	}

	var req application.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.sessions.AddMember(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// RemoveMember handles POST /api/v1/sessions/:id/members/:memberId/leave
func (h *SessionHandler) RemoveMember(c *gin.Context) {
	id, ok := pathID(c, "id", "session")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "memberId", "member")
	if !ok {
		return
	}

	dto, err := h.sessions.RemoveMember(c.Request.Context(), id, memberID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// AddOrder handles POST /api/v1/sessions/:id/orders
func (h *SessionHandler) AddOrder(c *gin.Context) {
	id, ok := pathID(c, "id", "session")
	if !ok {
		return
	}

	var req application.AddOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.sessions.AddOrder(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// Quote handles GET /api/v1/sessions/:id/quote?promo=CODE
func (h *SessionHandler) Quote(c *gin.Context) {
	id, ok := pathID(c, "id", "session")
	if !ok {
		return
	}

	dto, err := h.sessions.Quote(c.Request.Context(), id, c.Query("promo"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// CloseSession handles POST /api/v1/sessions/:id/close
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id, ok := pathID(c, "id", "session")
	if !ok {
		return
	}

	var req application.CloseSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	dto, err := h.billing.CloseSession(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}
