package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	invoiceDomain "github.com/venuedesk/service-billing/internal/domain/invoice"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// InvoiceModel is the GORM persistence model for the invoices table.
type InvoiceModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SpaceID         uuid.UUID       `gorm:"type:uuid;not null"`
	Status          string          `gorm:"type:varchar(20);not null;default:'issued'"`
	PromoCode       string          `gorm:"type:varchar(50)"`
	TimeCost        decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	OrdersCost      decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	OriginalTotal   decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	FinalTotal      decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	Note            string          `gorm:"type:text"`
	DurationMinutes int64           `gorm:"not null"`
	IssuedAt        time.Time       `gorm:"type:timestamptz;not null"`
	VoidedAt        *time.Time      `gorm:"type:timestamptz"`
	VoidReason      string          `gorm:"type:text"`
	Version         int64           `gorm:"not null;default:1"`
	CreatedAt       time.Time       `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time       `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceRepositoryImpl is the GORM-based implementation of InvoiceRepository.
type InvoiceRepositoryImpl struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new GORM-based invoice repository.
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepositoryImpl {
	return &InvoiceRepositoryImpl{db: db}
}

// FindByID retrieves an invoice by its unique ID.
func (r *InvoiceRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*invoiceDomain.Invoice, error) {
	var model InvoiceModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err, "Invoice", id.String())
	}
	return toInvoiceDomain(&model), nil
}

// FindBySessionID retrieves the current invoice of a session, preferring an issued one.
func (r *InvoiceRepositoryImpl) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*invoiceDomain.Invoice, error) {
	var model InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order(clauseIssuedFirst).
		Order("issued_at DESC").
		First(&model).Error; err != nil {
		return nil, translate(err, "Invoice", sessionID.String())
	}
	return toInvoiceDomain(&model), nil
}

const clauseIssuedFirst = "CASE WHEN status = 'issued' THEN 0 ELSE 1 END"

// Save persists a new invoice aggregate.
func (r *InvoiceRepositoryImpl) Save(ctx context.Context, inv *invoiceDomain.Invoice) error {
	model := toInvoiceModel(inv)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translate(err, "Invoice", inv.ID().String())
	}
	return nil
}

// Update persists changes to an existing invoice with optimistic locking.
func (r *InvoiceRepositoryImpl) Update(ctx context.Context, inv *invoiceDomain.Invoice) error {
	model := toInvoiceModel(inv)
	previousVersion := inv.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&InvoiceModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("invoice was modified by another transaction")
	}

	return nil
}

// ListAll retrieves all invoices with pagination (admin).
func (r *InvoiceRepositoryImpl) ListAll(ctx context.Context, page, limit int) ([]*invoiceDomain.Invoice, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&InvoiceModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []InvoiceModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).Order("issued_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]*invoiceDomain.Invoice, len(models))
	for i := range models {
		invoices[i] = toInvoiceDomain(&models[i])
	}
	return invoices, total, nil
}

// GetStats returns revenue and discount totals over issued invoices plus counts per status.
func (r *InvoiceRepositoryImpl) GetStats(ctx context.Context) (invoiceDomain.Stats, error) {
	var totals struct {
		Revenue   decimal.Decimal
		Discounts decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Model(&InvoiceModel{}).
		Where("status = ?", string(invoiceDomain.StatusIssued)).
		Select("COALESCE(SUM(final_total), 0) AS revenue, COALESCE(SUM(discount_amount), 0) AS discounts").
		Scan(&totals).Error; err != nil {
		return invoiceDomain.Stats{}, err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&InvoiceModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return invoiceDomain.Stats{}, err
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return invoiceDomain.Stats{Revenue: totals.Revenue, Discounts: totals.Discounts, CountByStatus: counts}, nil
}

// toInvoiceDomain maps an InvoiceModel to the domain Invoice aggregate.
func toInvoiceDomain(model *InvoiceModel) *invoiceDomain.Invoice {
	return invoiceDomain.Reconstitute(
		model.ID,
		model.SessionID,
		model.SpaceID,
		invoiceDomain.Status(model.Status),
		model.PromoCode,
		model.TimeCost,
		model.OrdersCost,
		model.OriginalTotal,
		model.DiscountAmount,
		model.FinalTotal,
		model.Note,
		model.DurationMinutes,
		model.IssuedAt,
		model.VoidedAt,
		model.VoidReason,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

// toInvoiceModel maps a domain Invoice aggregate to an InvoiceModel for persistence.
func toInvoiceModel(inv *invoiceDomain.Invoice) *InvoiceModel {
	return &InvoiceModel{
		ID:              inv.ID(),
		SessionID:       inv.SessionID(),
		SpaceID:         inv.SpaceID(),
		Status:          string(inv.Status()),
		PromoCode:       inv.PromoCode(),
		TimeCost:        inv.TimeCost(),
		OrdersCost:      inv.OrdersCost(),
		OriginalTotal:   inv.OriginalTotal(),
		DiscountAmount:  inv.DiscountAmount(),
		FinalTotal:      inv.FinalTotal(),
		Note:            inv.Note(),
		DurationMinutes: inv.DurationMinutes(),
		IssuedAt:        inv.IssuedAt(),
		VoidedAt:        inv.VoidedAt(),
		VoidReason:      inv.VoidReason(),
		Version:         inv.Version(),
		CreatedAt:       inv.CreatedAt(),
		UpdatedAt:       inv.UpdatedAt(),
	}
}
