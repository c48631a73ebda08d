package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// SessionModel is the GORM persistence model for the sessions table.
type SessionModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	SpaceID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	PricingMode   string              `gorm:"type:varchar(20);not null"`
	Status        string              `gorm:"type:varchar(20);not null;default:'open';index"`
	StartedAt     time.Time           `gorm:"type:timestamptz;not null"`
	EndedAt       *time.Time          `gorm:"type:timestamptz"`
	HourlyRate    decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	FirstHourRate decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	PromoCode     string              `gorm:"type:varchar(50)"`
	OpenedBy      uuid.UUID           `gorm:"type:uuid;not null"`
	Version       int64               `gorm:"not null;default:1"`
	CreatedAt     time.Time           `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time           `gorm:"type:timestamptz;not null;default:now()"`

	Segments  []SegmentModel  `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	Members   []MemberModel   `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	LineItems []LineItemModel `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for GORM.
func (SessionModel) TableName() string { return "sessions" }

// SegmentModel is one row of session_segments.
type SegmentModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	SessionID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	SpaceID       uuid.UUID           `gorm:"type:uuid;not null"`
	StartedAt     time.Time           `gorm:"type:timestamptz;not null"`
	EndedAt       *time.Time          `gorm:"type:timestamptz"`
	HourlyRate    decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	FirstHourRate decimal.NullDecimal `gorm:"type:numeric(12,2)"`
}

func (SegmentModel) TableName() string { return "session_segments" }

// MemberModel is one row of session_members.
type MemberModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name      string     `gorm:"type:varchar(100)"`
	JoinedAt  time.Time  `gorm:"type:timestamptz;not null"`
	LeftAt    *time.Time `gorm:"type:timestamptz"`
}

func (MemberModel) TableName() string { return "session_members" }

// LineItemModel is one row of session_line_items.
type LineItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	MemberID  *uuid.UUID      `gorm:"type:uuid"`
	ItemID    string          `gorm:"type:varchar(100);not null"`
	Name      string          `gorm:"type:varchar(200)"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Quantity  int64           `gorm:"not null"`
	OrderedAt time.Time       `gorm:"type:timestamptz;not null"`
}

func (LineItemModel) TableName() string { return "session_line_items" }

// GormSessionRepository is the GORM-based implementation of session.SessionRepository.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GORM-based session repository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Segments", func(db *gorm.DB) *gorm.DB { return db.Order("started_at ASC") }).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("ordered_at ASC") })
}

// FindByID retrieves a session with its segments, members and orders.
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	var model SessionModel
	if err := r.preloaded(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err, "Session", id.String())
	}
	return toSessionDomain(&model), nil
}

// ListOpen returns every open session, oldest first.
func (r *GormSessionRepository) ListOpen(ctx context.Context) ([]*session.Session, error) {
	var models []SessionModel
	if err := r.preloaded(ctx).
		Where("status = ?", string(session.StatusOpen)).
		Order("started_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	sessions := make([]*session.Session, len(models))
	for i := range models {
		sessions[i] = toSessionDomain(&models[i])
	}
	return sessions, nil
}

// Save persists a new session together with its children.
func (r *GormSessionRepository) Save(ctx context.Context, s *session.Session) error {
	model := toSessionModel(s)
	return translate(r.db.WithContext(ctx).Create(model).Error, "Session", s.ID().String())
}

// Update persists changes with optimistic locking. Children are upserted;
// segments, members and line items are never removed from a session.
func (r *GormSessionRepository) Update(ctx context.Context, s *session.Session) error {
	model := toSessionModel(s)
	previousVersion := s.Version() - 1

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&SessionModel{}).
			Where("id = ? AND version = ?", model.ID, previousVersion).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewConflictError("session was modified by another transaction")
		}

		upsert := tx.Clauses(clause.OnConflict{UpdateAll: true})
		if len(model.Segments) > 0 {
			if err := upsert.Create(&model.Segments).Error; err != nil {
				return err
			}
		}
		if len(model.Members) > 0 {
			if err := upsert.Create(&model.Members).Error; err != nil {
				return err
			}
		}
		if len(model.LineItems) > 0 {
			if err := upsert.Create(&model.LineItems).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func toSessionModel(s *session.Session) *SessionModel {
	model := &SessionModel{
		ID:            s.ID(),
		SpaceID:       s.SpaceID(),
		PricingMode:   string(s.Mode()),
		Status:        string(s.Status()),
		StartedAt:     s.StartedAt(),
		EndedAt:       s.EndedAt(),
		HourlyRate:    s.HourlyRate(),
		FirstHourRate: nullDecimal(s.FirstHourRate()),
		PromoCode:     s.PromoCode(),
		OpenedBy:      s.OpenedBy(),
		Version:       s.Version(),
		CreatedAt:     s.CreatedAt(),
		UpdatedAt:     s.UpdatedAt(),
	}
	for _, seg := range s.Segments() {
		model.Segments = append(model.Segments, SegmentModel{
			ID:            seg.ID,
			SessionID:     s.ID(),
			SpaceID:       seg.SpaceID,
			StartedAt:     seg.StartedAt,
			EndedAt:       seg.EndedAt,
			HourlyRate:    seg.HourlyRate,
			FirstHourRate: nullDecimal(seg.FirstHourRate),
		})
	}
	for _, m := range s.Members() {
		model.Members = append(model.Members, MemberModel{
			ID:        m.ID,
			SessionID: s.ID(),
			Name:      m.Name,
			JoinedAt:  m.JoinedAt,
			LeftAt:    m.LeftAt,
		})
	}
	for _, li := range s.Items() {
		model.LineItems = append(model.LineItems, LineItemModel{
			ID:        li.ID,
			SessionID: s.ID(),
			MemberID:  li.MemberID,
			ItemID:    li.ItemID,
			Name:      li.Name,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			OrderedAt: li.OrderedAt,
		})
	}
	return model
}

func toSessionDomain(m *SessionModel) *session.Session {
	segments := make([]session.Segment, 0, len(m.Segments))
	for _, seg := range m.Segments {
		segments = append(segments, session.Segment{
			ID:            seg.ID,
			SpaceID:       seg.SpaceID,
			StartedAt:     seg.StartedAt,
			EndedAt:       seg.EndedAt,
			HourlyRate:    seg.HourlyRate,
			FirstHourRate: decimalPtr(seg.FirstHourRate),
		})
	}
	members := make([]session.Member, 0, len(m.Members))
	for _, mm := range m.Members {
		members = append(members, session.Member{
			ID:       mm.ID,
			Name:     mm.Name,
			JoinedAt: mm.JoinedAt,
			LeftAt:   mm.LeftAt,
		})
	}
	items := make([]session.LineItem, 0, len(m.LineItems))
	for _, li := range m.LineItems {
		items = append(items, session.LineItem{
			ID:        li.ID,
			MemberID:  li.MemberID,
			ItemID:    li.ItemID,
			Name:      li.Name,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			OrderedAt: li.OrderedAt,
		})
	}

	return session.Reconstitute(
		m.ID, m.SpaceID,
		session.PricingMode(m.PricingMode),
		session.Status(m.Status),
		m.StartedAt, m.EndedAt,
		m.HourlyRate, decimalPtr(m.FirstHourRate),
		segments, members, items,
		m.PromoCode, m.OpenedBy, m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}
