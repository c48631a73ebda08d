package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/venuedesk/service-billing/internal/domain/billing"
	promoDomain "github.com/venuedesk/service-billing/internal/domain/promo"
	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// CreatePromoRequest holds data to create a promo code. Discount is the
// payload of the given kind, e.g. {"value":"10","applies_to":["time"]}.
type CreatePromoRequest struct {
	Code       string          `json:"code" binding:"required"`
	Kind       string          `json:"kind" binding:"required,oneof=percentage fixed recurring_offer item_discount"`
	Discount   json.RawMessage `json:"discount" binding:"required"`
	MaxUses    int             `json:"max_uses" binding:"min=0"`
	ValidFrom  string          `json:"valid_from" binding:"required"`
	ValidUntil string          `json:"valid_until" binding:"required"`
}

// ValidatePromoRequest holds data to validate a promo code, optionally
// previewing it against a running session.
type ValidatePromoRequest struct {
	Code      string     `json:"code" binding:"required"`
	SessionID *uuid.UUID `json:"session_id"`
}

// PromoValidationDTO is the result of validating a promo code.
type PromoValidationDTO struct {
	Valid   bool     `json:"valid"`
	Code    string   `json:"code"`
	Kind    string   `json:"kind,omitempty"`
	Preview *BillDTO `json:"preview,omitempty"`
	Message string   `json:"message,omitempty"`
}

// PromoService handles promo code use cases.
type PromoService struct {
	repo     promoDomain.PromoRepository
	sessions session.SessionRepository
	now      Clock
	logger   *zap.Logger
}

// NewPromoService creates a new PromoService.
func NewPromoService(repo promoDomain.PromoRepository, sessions session.SessionRepository, now Clock, logger *zap.Logger) *PromoService {
	return &PromoService{repo: repo, sessions: sessions, now: now, logger: logger}
}

// CreatePromo creates a new promo code (admin only).
func (s *PromoService) CreatePromo(ctx context.Context, createdBy uuid.UUID, req CreatePromoRequest) (*PromoDTO, error) {
	validFrom, err := time.Parse(time.RFC3339, req.ValidFrom)
	if err != nil {
		return nil, domain.NewValidationError("invalid valid_from format (use RFC3339)")
	}
	validUntil, err := time.Parse(time.RFC3339, req.ValidUntil)
	if err != nil {
		return nil, domain.NewValidationError("invalid valid_until format (use RFC3339)")
	}

	discount, err := promoDomain.UnmarshalDiscount(promoDomain.Kind(req.Kind), req.Discount)
	if err != nil {
		return nil, domain.NewValidationError("invalid discount: %v", err)
	}

	promo, err := promoDomain.NewPromoCode(req.Code, discount, req.MaxUses, validFrom, validUntil, createdBy)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, promo); err != nil {
		return nil, fmt.Errorf("failed to save promo: %w", err)
	}

	s.logger.Info("promo code created",
		zap.String("code", promo.Code()),
		zap.String("kind", string(promo.Kind())),
	)
	return toPromoDTO(promo), nil
}

// ValidatePromo checks if a promo code can be redeemed now and, given a
// session, previews the bill it would produce.
func (s *PromoService) ValidatePromo(ctx context.Context, req ValidatePromoRequest) (*PromoValidationDTO, error) {
	code := promoDomain.NormalizeCode(req.Code)
	now := s.now()

	promo, err := redeemable(ctx, s.repo, code, now)
	switch {
	case err == nil:
	case domain.IsNotFound(err):
		return &PromoValidationDTO{Valid: false, Code: code, Message: "promo code not found"}, nil
	case errors.Is(err, domain.ErrValidation):
		return &PromoValidationDTO{Valid: false, Code: code, Message: err.Error()}, nil
	default:
		return nil, err
	}

	result := &PromoValidationDTO{Valid: true, Code: promo.Code(), Kind: string(promo.Kind())}
	if req.SessionID != nil {
		sess, err := s.sessions.FindByID(ctx, *req.SessionID)
		if err != nil {
			return nil, err
		}
		bill := toBillDTO(billing.Quote(sess.Snapshot(), now, promo))
		result.Preview = &bill
	}
	return result, nil
}

// GetActivePromos returns all currently redeemable promo codes.
func (s *PromoService) GetActivePromos(ctx context.Context) ([]*PromoDTO, error) {
	promos, err := s.repo.FindActive(ctx, s.now())
	if err != nil {
		return nil, err
	}

	dtos := make([]*PromoDTO, len(promos))
	for i, p := range promos {
		dtos[i] = toPromoDTO(p)
	}
	return dtos, nil
}

// DeactivatePromo takes a code out of circulation (admin only).
func (s *PromoService) DeactivatePromo(ctx context.Context, id uuid.UUID) (*PromoDTO, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := promo.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, promo); err != nil {
		return nil, err
	}

	s.logger.Info("promo code deactivated", zap.String("code", promo.Code()))
	return toPromoDTO(promo), nil
}
