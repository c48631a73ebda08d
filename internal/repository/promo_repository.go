package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	promoDomain "github.com/venuedesk/service-billing/internal/domain/promo"
)

// PromoModel is the GORM model for the promos table. The discount union is
// stored as its kind plus a JSON payload.
type PromoModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Status       string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	DiscountKind string         `gorm:"type:varchar(20);not null" json:"discount_kind"`
	Discount     datatypes.JSON `gorm:"type:jsonb;not null" json:"discount"`
	MaxUses      int            `gorm:"default:0" json:"max_uses"`
	CurrentUses  int            `gorm:"default:0" json:"current_uses"`
	ValidFrom    time.Time      `gorm:"type:timestamptz;not null" json:"valid_from"`
	ValidUntil   time.Time      `gorm:"type:timestamptz;not null" json:"valid_until"`
	CreatedBy    uuid.UUID      `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt    time.Time      `gorm:"type:timestamptz;not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"type:timestamptz;not null" json:"updated_at"`
}

// TableName sets the table name.
func (PromoModel) TableName() string { return "promos" }

// PromoUsageModel is the GORM model for the promo_usages table.
type PromoUsageModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PromoID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	SessionID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	UsedAt         time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (PromoUsageModel) TableName() string { return "promo_usages" }

// GormPromoRepository implements PromoRepository using GORM.
type GormPromoRepository struct {
	db *gorm.DB
}

// NewGormPromoRepository creates a new GormPromoRepository.
func NewGormPromoRepository(db *gorm.DB) *GormPromoRepository {
	return &GormPromoRepository{db: db}
}

// Save persists a new promo code.
func (r *GormPromoRepository) Save(ctx context.Context, p *promoDomain.PromoCode) error {
	model, err := toPromoModel(p)
	if err != nil {
		return err
	}
	return translate(r.db.WithContext(ctx).Create(&model).Error, "PromoCode", p.Code())
}

// Update updates a promo code.
func (r *GormPromoRepository) Update(ctx context.Context, p *promoDomain.PromoCode) error {
	model, err := toPromoModel(p)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByCode returns a promo code by its code string, ignoring case.
func (r *GormPromoRepository) FindByCode(ctx context.Context, code string) (*promoDomain.PromoCode, error) {
	code = promoDomain.NormalizeCode(code)
	var model PromoModel
	if err := r.db.WithContext(ctx).Where("UPPER(code) = ?", code).First(&model).Error; err != nil {
		return nil, translate(err, "PromoCode", code)
	}
	return toPromoDomain(&model)
}

// FindByID returns a promo code by ID.
func (r *GormPromoRepository) FindByID(ctx context.Context, id uuid.UUID) (*promoDomain.PromoCode, error) {
	var model PromoModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err, "PromoCode", id.String())
	}
	return toPromoDomain(&model)
}

// FindActive returns all promo codes redeemable at now.
func (r *GormPromoRepository) FindActive(ctx context.Context, now time.Time) ([]*promoDomain.PromoCode, error) {
	var models []PromoModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(promoDomain.StatusActive)).
		Where("valid_from <= ? AND valid_until >= ?", now, now).
		Where("max_uses = 0 OR current_uses < max_uses").
		Order("valid_until ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	promos := make([]*promoDomain.PromoCode, 0, len(models))
	for i := range models {
		p, err := toPromoDomain(&models[i])
		if err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}
	return promos, nil
}

// SaveUsage persists a promo usage record.
func (r *GormPromoRepository) SaveUsage(ctx context.Context, usage *promoDomain.PromoUsage) error {
	model := PromoUsageModel{
		ID:             usage.ID,
		PromoID:        usage.PromoID,
		SessionID:      usage.SessionID,
		InvoiceID:      usage.InvoiceID,
		DiscountAmount: usage.DiscountAmount,
		UsedAt:         usage.UsedAt,
	}
	return translate(r.db.WithContext(ctx).Create(&model).Error, "PromoUsage", usage.SessionID.String())
}

// DeleteUsage removes a usage record written by a close that was rolled back.
func (r *GormPromoRepository) DeleteUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&PromoUsageModel{}).Error
}

func toPromoModel(p *promoDomain.PromoCode) (PromoModel, error) {
	payload, err := promoDomain.MarshalDiscount(p.Discount())
	if err != nil {
		return PromoModel{}, fmt.Errorf("encode discount of %s: %w", p.Code(), err)
	}
	return PromoModel{
		ID:           p.ID(),
		Code:         p.Code(),
		Status:       string(p.Status()),
		DiscountKind: string(p.Kind()),
		Discount:     datatypes.JSON(payload),
		MaxUses:      p.MaxUses(),
		CurrentUses:  p.CurrentUses(),
		ValidFrom:    p.ValidFrom(),
		ValidUntil:   p.ValidUntil(),
		CreatedBy:    p.CreatedBy(),
		CreatedAt:    p.CreatedAt(),
		UpdatedAt:    p.UpdatedAt(),
	}, nil
}

func toPromoDomain(m *PromoModel) (*promoDomain.PromoCode, error) {
	discount, err := promoDomain.UnmarshalDiscount(promoDomain.Kind(m.DiscountKind), m.Discount)
	if err != nil {
		return nil, fmt.Errorf("decode discount of %s: %w", m.Code, err)
	}
	return promoDomain.Reconstruct(
		m.ID, m.Code, promoDomain.Status(m.Status), discount,
		m.MaxUses, m.CurrentUses,
		m.ValidFrom, m.ValidUntil, m.CreatedBy,
		m.CreatedAt, m.UpdatedAt,
	), nil
}
