package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/venuedesk/service-billing/internal/domain/billing"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// Status represents the state of an invoice.
type Status string

const (
	StatusIssued Status = "issued"
	StatusVoid   Status = "void"
)

// Invoice is the aggregate root recording what a closed session owed.
type Invoice struct {
	id              uuid.UUID
	sessionID       uuid.UUID
	spaceID         uuid.UUID
	status          Status
	promoCode       string
	timeCost        decimal.Decimal
	ordersCost      decimal.Decimal
	originalTotal   decimal.Decimal
	discountAmount  decimal.Decimal
	finalTotal      decimal.Decimal
	note            string
	durationMinutes int64
	issuedAt        time.Time
	voidedAt        *time.Time
	voidReason      string
	version         int64
	createdAt       time.Time
	updatedAt       time.Time
}

// NewInvoice issues an invoice for a bill computed at close time.
func NewInvoice(sessionID, spaceID uuid.UUID, bill billing.Bill, promoCode string, durationMinutes int64, issuedAt time.Time) *Invoice {
	return &Invoice{
		id:              uuid.New(),
		sessionID:       sessionID,
		spaceID:         spaceID,
		status:          StatusIssued,
		promoCode:       promoCode,
		timeCost:        bill.TimeCost,
		ordersCost:      bill.OrdersCost,
		originalTotal:   bill.OriginalTotal,
		discountAmount:  bill.DiscountAmount,
		finalTotal:      bill.FinalTotal,
		note:            bill.Note,
		durationMinutes: durationMinutes,
		issuedAt:        issuedAt,
		version:         1,
		createdAt:       issuedAt,
		updatedAt:       issuedAt,
	}
}

// --- Getters ---

func (i *Invoice) ID() uuid.UUID                   { return i.id }
func (i *Invoice) SessionID() uuid.UUID            { return i.sessionID }
func (i *Invoice) SpaceID() uuid.UUID              { return i.spaceID }
func (i *Invoice) Status() Status                  { return i.status }
func (i *Invoice) PromoCode() string               { return i.promoCode }
func (i *Invoice) TimeCost() decimal.Decimal       { return i.timeCost }
func (i *Invoice) OrdersCost() decimal.Decimal     { return i.ordersCost }
func (i *Invoice) OriginalTotal() decimal.Decimal  { return i.originalTotal }
func (i *Invoice) DiscountAmount() decimal.Decimal { return i.discountAmount }
func (i *Invoice) FinalTotal() decimal.Decimal     { return i.finalTotal }
func (i *Invoice) Note() string                    { return i.note }
func (i *Invoice) DurationMinutes() int64          { return i.durationMinutes }
func (i *Invoice) IssuedAt() time.Time             { return i.issuedAt }
func (i *Invoice) VoidedAt() *time.Time            { return i.voidedAt }
func (i *Invoice) VoidReason() string              { return i.voidReason }
func (i *Invoice) Version() int64                  { return i.version }
func (i *Invoice) CreatedAt() time.Time            { return i.createdAt }
func (i *Invoice) UpdatedAt() time.Time            { return i.updatedAt }

// Bill returns the amounts as a billing.Bill.
func (i *Invoice) Bill() billing.Bill {
	return billing.Bill{
		TimeCost:       i.timeCost,
		OrdersCost:     i.ordersCost,
		OriginalTotal:  i.originalTotal,
		DiscountAmount: i.discountAmount,
		FinalTotal:     i.finalTotal,
		Note:           i.note,
	}
}

// --- Behavior / State Transitions ---

// Void cancels an issued invoice. Amounts are never edited; a corrected
// invoice is issued instead.
func (i *Invoice) Void(reason string) error {
	if i.status != StatusIssued {
		return domain.NewInvalidStateError(string(i.status), string(StatusVoid))
	}
	if reason == "" {
		return domain.NewValidationError("void reason is required")
	}
	now := time.Now().UTC()
	i.status = StatusVoid
	i.voidReason = reason
	i.voidedAt = &now
	i.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (i *Invoice) IncrementVersion() {
	i.version++
	i.updatedAt = time.Now().UTC()
}

// --- Reconstitution (used by repository to rebuild from persistence) ---

// Reconstitute rebuilds an Invoice from persisted data.
func Reconstitute(
	id, sessionID, spaceID uuid.UUID,
	status Status,
	promoCode string,
	timeCost, ordersCost, originalTotal, discountAmount, finalTotal decimal.Decimal,
	note string,
	durationMinutes int64,
	issuedAt time.Time,
	voidedAt *time.Time,
	voidReason string,
	version int64,
	createdAt, updatedAt time.Time,
) *Invoice {
	return &Invoice{
		id:              id,
		sessionID:       sessionID,
		spaceID:         spaceID,
		status:          status,
		promoCode:       promoCode,
		timeCost:        timeCost,
		ordersCost:      ordersCost,
		originalTotal:   originalTotal,
		discountAmount:  discountAmount,
		finalTotal:      finalTotal,
		note:            note,
		durationMinutes: durationMinutes,
		issuedAt:        issuedAt,
		voidedAt:        voidedAt,
		voidReason:      voidReason,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}
