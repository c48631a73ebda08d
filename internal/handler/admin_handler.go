package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/venuedesk/service-billing/internal/application"
	"github.com/venuedesk/service-billing/internal/platform/auth"
	"github.com/venuedesk/service-billing/internal/platform/middleware"
	"github.com/venuedesk/service-billing/internal/platform/response"
)

// AdminBillingHandler handles admin HTTP requests for invoice management.
type AdminBillingHandler struct {
	billingService *application.BillingService
	promoService   *application.PromoService
}

// NewAdminBillingHandler creates a new AdminBillingHandler.
func NewAdminBillingHandler(billingService *application.BillingService, promoService *application.PromoService) *AdminBillingHandler {
	return &AdminBillingHandler{
		billingService: billingService,
		promoService:   promoService,
	}
}

// RegisterRoutes registers admin billing routes.
func (h *AdminBillingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/invoices", h.ListInvoices)
		admin.POST("/invoices/:id/void", h.VoidInvoice)
		admin.GET("/stats/invoices", h.InvoiceStats)
		admin.GET("/promos", h.ListPromos)
	}
}

// ListInvoices handles GET /api/v1/admin/invoices.
func (h *AdminBillingHandler) ListInvoices(c *gin.Context) {
	page, limit := pagination(c)

	invoices, total, err := h.billingService.ListAllInvoices(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, invoices, total, page, limit)
}

// VoidInvoice handles POST /api/v1/admin/invoices/:id/void.
func (h *AdminBillingHandler) VoidInvoice(c *gin.Context) {
	id, ok := pathID(c, "id", "invoice")
	if !ok {
		return
	}

	var req application.VoidInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.billingService.VoidInvoice(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// InvoiceStats handles GET /api/v1/admin/stats/invoices.
func (h *AdminBillingHandler) InvoiceStats(c *gin.Context) {
	stats, err := h.billingService.GetInvoiceStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// ListPromos handles GET /api/v1/admin/promos.
func (h *AdminBillingHandler) ListPromos(c *gin.Context) {
	promos, err := h.promoService.GetActivePromos(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, promos)
}
