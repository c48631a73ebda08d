package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/venuedesk/service-billing/internal/domain/invoice"
	"github.com/venuedesk/service-billing/internal/domain/promo"
	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/saga"
)

// CloseSessionRequest closes a session with an optional promo code.
type CloseSessionRequest struct {
	PromoCode string `json:"promo_code"`
}

// VoidInvoiceRequest holds the reason for voiding an invoice.
type VoidInvoiceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// InvoiceStatsDTO holds invoice statistics for the admin dashboard.
type InvoiceStatsDTO struct {
	Revenue       decimal.Decimal  `json:"revenue"`
	Discounts     decimal.Decimal  `json:"discounts"`
	TotalInvoices int64            `json:"total_invoices"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// BillingService closes sessions into invoices and serves them.
type BillingService struct {
	sessions session.SessionRepository
	invoices invoice.InvoiceRepository
	promos   promo.PromoRepository
	closer   *saga.CloseSessionSaga
	now      Clock
	logger   *zap.Logger
}

// NewBillingService creates a new BillingService.
func NewBillingService(
	sessions session.SessionRepository,
	invoices invoice.InvoiceRepository,
	promos promo.PromoRepository,
	closer *saga.CloseSessionSaga,
	now Clock,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		sessions: sessions,
		invoices: invoices,
		promos:   promos,
		closer:   closer,
		now:      now,
		logger:   logger,
	}
}

// CloseSession freezes a session and issues its invoice.
func (s *BillingService) CloseSession(ctx context.Context, sessionID uuid.UUID, req CloseSessionRequest) (*InvoiceDTO, error) {
	s.logger.Info("closing session",
		zap.String("session_id", sessionID.String()),
		zap.String("promo_code", req.PromoCode),
	)

	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var p *promo.PromoCode
	if req.PromoCode != "" {
		if p, err = redeemable(ctx, s.promos, req.PromoCode, now); err != nil {
			return nil, err
		}
	}

	inv, err := s.closer.Run(ctx, sess, p, now)
	if err != nil {
		s.logger.Error("failed to close session", zap.String("session_id", sessionID.String()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("invoice issued",
		zap.String("invoice_id", inv.ID().String()),
		zap.String("session_id", sessionID.String()),
		zap.String("final_total", inv.FinalTotal().String()),
	)
	dto := toInvoiceDTO(inv)
	return &dto, nil
}

// GetInvoice retrieves an invoice by its ID.
func (s *BillingService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toInvoiceDTO(inv)
	return &dto, nil
}

// GetInvoiceBySession retrieves the invoice of a session.
func (s *BillingService) GetInvoiceBySession(ctx context.Context, sessionID uuid.UUID) (*InvoiceDTO, error) {
	inv, err := s.invoices.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	dto := toInvoiceDTO(inv)
	return &dto, nil
}

// VoidInvoice cancels an issued invoice (admin only).
func (s *BillingService) VoidInvoice(ctx context.Context, id uuid.UUID, req VoidInvoiceRequest) (*InvoiceDTO, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Void(req.Reason); err != nil {
		return nil, err
	}
	inv.IncrementVersion()
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice voided", zap.String("invoice_id", id.String()), zap.String("reason", req.Reason))
	dto := toInvoiceDTO(inv)
	return &dto, nil
}

// --- Admin methods ---

// ListAllInvoices returns a paginated list of all invoices (admin).
func (s *BillingService) ListAllInvoices(ctx context.Context, page, limit int) ([]InvoiceDTO, int64, error) {
	invoices, total, err := s.invoices.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	return dtos, total, nil
}

// GetInvoiceStats returns aggregate invoice statistics (admin).
func (s *BillingService) GetInvoiceStats(ctx context.Context) (*InvoiceStatsDTO, error) {
	stats, err := s.invoices.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range stats.CountByStatus {
		total += c
	}

	return &InvoiceStatsDTO{
		Revenue:       stats.Revenue,
		Discounts:     stats.Discounts,
		TotalInvoices: total,
		ByStatus:      stats.CountByStatus,
	}, nil
}
