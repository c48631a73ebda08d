package promo

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// Status is the lifecycle state of a promo code.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

// PromoCode is the aggregate root for promotional codes.
type PromoCode struct {
	id          uuid.UUID
	code        string
	status      Status
	discount    Discount
	maxUses     int
	currentUses int
	validFrom   time.Time
	validUntil  time.Time
	createdBy   uuid.UUID
	createdAt   time.Time
	updatedAt   time.Time
}

// NormalizeCode canonicalises a code for storage and case-insensitive lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewPromoCode creates an active promo code.
func NewPromoCode(code string, discount Discount, maxUses int, validFrom, validUntil time.Time, createdBy uuid.UUID) (*PromoCode, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, domain.NewValidationError("promo code is required")
	}
	if discount == nil {
		return nil, domain.NewValidationError("discount configuration is required")
	}
	if err := discount.validate(); err != nil {
		return nil, domain.NewValidationError("invalid %s discount: %s", discount.Kind(), err)
	}
	if maxUses < 0 {
		return nil, domain.NewValidationError("max_uses cannot be negative")
	}
	if validUntil.Before(validFrom) {
		return nil, domain.NewValidationError("valid_until must be after valid_from")
	}

	now := time.Now().UTC()
	return &PromoCode{
		id:         uuid.New(),
		code:       code,
		status:     StatusActive,
		discount:   discount,
		maxUses:    maxUses,
		validFrom:  validFrom,
		validUntil: validUntil,
		createdBy:  createdBy,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct rebuilds a PromoCode from persistence without validation.
func Reconstruct(id uuid.UUID, code string, status Status, discount Discount, maxUses, currentUses int, validFrom, validUntil time.Time, createdBy uuid.UUID, createdAt, updatedAt time.Time) *PromoCode {
	return &PromoCode{
		id: id, code: code, status: status, discount: discount,
		maxUses: maxUses, currentUses: currentUses,
		validFrom: validFrom, validUntil: validUntil,
		createdBy: createdBy, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// IsActive reports the lifecycle status only; the billing engine relies on this alone.
func (p *PromoCode) IsActive() bool {
	return p.status == StatusActive
}

// IsRedeemable is the caller-side check: active, inside the validity window, uses left.
func (p *PromoCode) IsRedeemable(now time.Time) bool {
	return p.IsActive() &&
		!now.Before(p.validFrom) && !now.After(p.validUntil) &&
		(p.maxUses == 0 || p.currentUses < p.maxUses)
}

// Deactivate takes an active code out of circulation.
func (p *PromoCode) Deactivate() error {
	if p.status != StatusActive {
		return domain.NewInvalidStateError(string(p.status), string(StatusInactive))
	}
	p.status = StatusInactive
	p.updatedAt = time.Now().UTC()
	return nil
}

// Expire marks a code past its window. Expired codes never come back.
func (p *PromoCode) Expire() error {
	if p.status == StatusExpired {
		return domain.NewInvalidStateError(string(p.status), string(StatusExpired))
	}
	p.status = StatusExpired
	p.updatedAt = time.Now().UTC()
	return nil
}

// IncrementUses increments the usage count.
func (p *PromoCode) IncrementUses() {
	p.currentUses++
	p.updatedAt = time.Now().UTC()
}

// ReleaseUse gives back a use recorded by a failed close.
func (p *PromoCode) ReleaseUse() {
	if p.currentUses > 0 {
		p.currentUses--
	}
	p.updatedAt = time.Now().UTC()
}

// Getters.
func (p *PromoCode) ID() uuid.UUID         { return p.id }
func (p *PromoCode) Code() string          { return p.code }
func (p *PromoCode) Status() Status        { return p.status }
func (p *PromoCode) Discount() Discount    { return p.discount }
func (p *PromoCode) MaxUses() int          { return p.maxUses }
func (p *PromoCode) CurrentUses() int      { return p.currentUses }
func (p *PromoCode) ValidFrom() time.Time  { return p.validFrom }
func (p *PromoCode) ValidUntil() time.Time { return p.validUntil }
func (p *PromoCode) CreatedBy() uuid.UUID  { return p.createdBy }
func (p *PromoCode) CreatedAt() time.Time  { return p.createdAt }
func (p *PromoCode) UpdatedAt() time.Time  { return p.updatedAt }

// Kind is shorthand for Discount().Kind(); empty when no payload is set.
func (p *PromoCode) Kind() Kind {
	if p.discount == nil {
		return ""
	}
	return p.discount.Kind()
}
