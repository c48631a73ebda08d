package promo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoRepository defines persistence operations for promo codes.
type PromoRepository interface {
	Save(ctx context.Context, p *PromoCode) error
	Update(ctx context.Context, p *PromoCode) error
	// FindByCode matches case-insensitively.
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*PromoCode, error)
	FindActive(ctx context.Context, now time.Time) ([]*PromoCode, error)
	SaveUsage(ctx context.Context, usage *PromoUsage) error
	DeleteUsage(ctx context.Context, id uuid.UUID) error
}

// PromoUsage records one redemption against a closed session.
type PromoUsage struct {
	ID             uuid.UUID
	PromoID        uuid.UUID
	SessionID      uuid.UUID
	InvoiceID      uuid.UUID
	DiscountAmount decimal.Decimal
	UsedAt         time.Time
}
