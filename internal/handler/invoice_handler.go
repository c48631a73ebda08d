package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/venuedesk/service-billing/internal/application"
	"github.com/venuedesk/service-billing/internal/platform/auth"
	"github.com/venuedesk/service-billing/internal/platform/middleware"
	"github.com/venuedesk/service-billing/internal/platform/response"
)

// InvoiceHandler handles HTTP requests for issued invoices.
type InvoiceHandler struct {
	service *application.BillingService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(service *application.BillingService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// RegisterRoutes registers all invoice routes on the given router group.
func (h *InvoiceHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	invoices := r.Group("/invoices")
	invoices.Use(middleware.AuthMiddleware(jwtManager))
	{
		invoices.GET("/:id", h.GetInvoice)
		invoices.GET("/session/:sessionId", h.GetInvoiceBySession)
	}
}

// GetInvoice handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := pathID(c, "id", "invoice")
	if !ok {
		return
	}

	dto, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// GetInvoiceBySession handles GET /api/v1/invoices/session/:sessionId
func (h *InvoiceHandler) GetInvoiceBySession(c *gin.Context) {
	sessionID, ok := pathID(c, "sessionId", "session")
	if !ok {
		return
	}

	dto, err := h.service.GetInvoiceBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
