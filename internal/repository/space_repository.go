package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/domain/venue"
)

// SpaceModel is the GORM persistence model for the spaces table.
type SpaceModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Name          string              `gorm:"type:varchar(100);not null"`
	Kind          string              `gorm:"type:varchar(20);not null"`
	PricingMode   string              `gorm:"type:varchar(20);not null"`
	HourlyRate    decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	FirstHourRate decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	Active        bool                `gorm:"not null;default:true"`
	CreatedAt     time.Time           `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time           `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (SpaceModel) TableName() string { return "spaces" }

// GormSpaceRepository is the GORM-based implementation of venue.SpaceRepository.
type GormSpaceRepository struct {
	db *gorm.DB
}

// NewGormSpaceRepository creates a new GORM-based space repository.
func NewGormSpaceRepository(db *gorm.DB) *GormSpaceRepository {
	return &GormSpaceRepository{db: db}
}

func (r *GormSpaceRepository) FindByID(ctx context.Context, id uuid.UUID) (*venue.Space, error) {
	var model SpaceModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err, "Space", id.String())
	}
	return toSpaceDomain(&model), nil
}

func (r *GormSpaceRepository) List(ctx context.Context, activeOnly bool) ([]*venue.Space, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var models []SpaceModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	spaces := make([]*venue.Space, len(models))
	for i := range models {
		spaces[i] = toSpaceDomain(&models[i])
	}
	return spaces, nil
}

func (r *GormSpaceRepository) Save(ctx context.Context, s *venue.Space) error {
	model := toSpaceModel(s)
	return translate(r.db.WithContext(ctx).Create(&model).Error, "Space", s.ID().String())
}

func (r *GormSpaceRepository) Update(ctx context.Context, s *venue.Space) error {
	model := toSpaceModel(s)
	return r.db.WithContext(ctx).Save(&model).Error
}

func toSpaceModel(s *venue.Space) SpaceModel {
	return SpaceModel{
		ID:            s.ID(),
		Name:          s.Name(),
		Kind:          string(s.Kind()),
		PricingMode:   string(s.Mode()),
		HourlyRate:    s.HourlyRate(),
		FirstHourRate: nullDecimal(s.FirstHourRate()),
		Active:        s.IsActive(),
		CreatedAt:     s.CreatedAt(),
		UpdatedAt:     s.UpdatedAt(),
	}
}

func toSpaceDomain(m *SpaceModel) *venue.Space {
	return venue.Reconstitute(
		m.ID, m.Name, venue.Kind(m.Kind), session.PricingMode(m.PricingMode),
		m.HourlyRate, decimalPtr(m.FirstHourRate), m.Active,
		m.CreatedAt, m.UpdatedAt,
	)
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
