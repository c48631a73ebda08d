package venue

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// Kind distinguishes rentable spaces.
type Kind string

const (
	KindTable Kind = "table"
	KindHall  Kind = "hall"
)

// Space is a rentable table or hall and its rate card.
type Space struct {
	id            uuid.UUID
	name          string
	kind          Kind
	mode          session.PricingMode
	hourlyRate    decimal.Decimal
	firstHourRate *decimal.Decimal
	active        bool
	createdAt     time.Time
	updatedAt     time.Time
}

// NewSpace validates and creates an active space.
func NewSpace(name string, kind Kind, mode session.PricingMode, hourlyRate decimal.Decimal, firstHourRate *decimal.Decimal) (*Space, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("space name is required")
	}
	if kind != KindTable && kind != KindHall {
		return nil, domain.NewValidationError("invalid space kind: %s", kind)
	}
	if mode != session.PricingPerSpace && mode != session.PricingPerPerson {
		return nil, domain.NewValidationError("invalid pricing mode: %s", mode)
	}
	if hourlyRate.IsNegative() {
		return nil, domain.NewValidationError("hourly rate cannot be negative")
	}
	if firstHourRate != nil && firstHourRate.IsNegative() {
		return nil, domain.NewValidationError("first hour rate cannot be negative")
	}

	now := time.Now().UTC()
	return &Space{
		id:            uuid.New(),
		name:          name,
		kind:          kind,
		mode:          mode,
		hourlyRate:    hourlyRate,
		firstHourRate: firstHourRate,
		active:        true,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// Deactivate removes the space from service. Open sessions keep their rates.
func (s *Space) Deactivate() {
	s.active = false
	s.updatedAt = time.Now().UTC()
}

// Rate is the pricing a session copies when it starts on or moves to this space.
func (s *Space) Rate() session.Rate {
	return session.Rate{
		SpaceID:       s.id,
		Mode:          s.mode,
		HourlyRate:    s.hourlyRate,
		FirstHourRate: s.firstHourRate,
	}
}

func (s *Space) ID() uuid.UUID                   { return s.id }
func (s *Space) Name() string                    { return s.name }
func (s *Space) Kind() Kind                      { return s.kind }
func (s *Space) Mode() session.PricingMode       { return s.mode }
func (s *Space) HourlyRate() decimal.Decimal     { return s.hourlyRate }
func (s *Space) FirstHourRate() *decimal.Decimal { return s.firstHourRate }
func (s *Space) IsActive() bool                  { return s.active }
func (s *Space) CreatedAt() time.Time            { return s.createdAt }
func (s *Space) UpdatedAt() time.Time            { return s.updatedAt }

// Reconstitute rebuilds a Space from persisted data.
func Reconstitute(id uuid.UUID, name string, kind Kind, mode session.PricingMode, hourlyRate decimal.Decimal, firstHourRate *decimal.Decimal, active bool, createdAt, updatedAt time.Time) *Space {
	return &Space{
		id:            id,
		name:          name,
		kind:          kind,
		mode:          mode,
		hourlyRate:    hourlyRate,
		firstHourRate: firstHourRate,
		active:        active,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}
