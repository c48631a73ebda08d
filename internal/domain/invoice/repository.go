package invoice

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stats summarises issued invoices for the admin dashboard.
type Stats struct {
	Revenue       decimal.Decimal
	Discounts     decimal.Decimal
	CountByStatus map[string]int64
}

// InvoiceRepository defines the persistence contract for Invoice aggregates.
type InvoiceRepository interface {
	// FindByID retrieves an invoice by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindBySessionID retrieves the issued invoice of a session.
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*Invoice, error)

	// ListAll retrieves all invoices with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Invoice, int64, error)

	// GetStats returns revenue over issued invoices and counts per status (admin).
	GetStats(ctx context.Context) (Stats, error)

	Save(ctx context.Context, inv *Invoice) error

	// Update persists changes to an existing invoice with optimistic locking.
	Update(ctx context.Context, inv *Invoice) error
}
