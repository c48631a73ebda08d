// Package messages defines the Kafka topics, event types and payloads
// exchanged with the rest of the venue platform.
package messages

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source identifies this service in CloudEvents.
const Source = "service-billing"

// Topics.
const (
	TopicBillingEvents = "billing.events"
	TopicPOSEvents     = "pos.events"
)

// Event types.
const (
	BillingInvoiceIssued = "billing.invoice.issued"
	BillingSessionClosed = "billing.session.closed"
	BillingFailed        = "billing.failed"

	POSOrderPlaced = "pos.order.placed"
)

// InvoiceIssuedEvent is published once a closed session has been invoiced.
type InvoiceIssuedEvent struct {
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	SessionID      uuid.UUID       `json:"session_id"`
	SpaceID        uuid.UUID       `json:"space_id"`
	PromoCode      string          `json:"promo_code,omitempty"`
	OriginalTotal  decimal.Decimal `json:"original_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalTotal     decimal.Decimal `json:"final_total"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// SessionClosedEvent tells occupancy consumers a space is free again.
type SessionClosedEvent struct {
	SessionID       uuid.UUID `json:"session_id"`
	SpaceID         uuid.UUID `json:"space_id"`
	DurationMinutes int64     `json:"duration_minutes"`
	ClosedAt        time.Time `json:"closed_at"`
}

// BillingFailedEvent reports a close that was rolled back.
type BillingFailedEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderPlacedEvent is emitted by the point of sale for every order rung up
// against an open session. MemberID is empty for table orders.
type OrderPlacedEvent struct {
	SessionID  uuid.UUID       `json:"session_id"`
	MemberID   *uuid.UUID      `json:"member_id,omitempty"`
	ItemID     string          `json:"item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int64           `json:"quantity"`
	OccurredAt time.Time       `json:"occurred_at"`
}
