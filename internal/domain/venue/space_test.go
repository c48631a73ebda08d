package venue

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

func TestNewSpace(t *testing.T) {
	first := decimal.NewFromInt(80)
	s, err := NewSpace(" Table 4 ", KindTable, session.PricingPerSpace, decimal.NewFromInt(60), &first)
	require.NoError(t, err)

	assert.Equal(t, "Table 4", s.Name())
	assert.True(t, s.IsActive())

	rate := s.Rate()
	assert.Equal(t, s.ID(), rate.SpaceID)
	assert.Equal(t, session.PricingPerSpace, rate.Mode)
	require.NotNil(t, rate.FirstHourRate)
	assert.True(t, first.Equal(*rate.FirstHourRate))

	s.Deactivate()
	assert.False(t, s.IsActive())
}

func TestNewSpace_Validation(t *testing.T) {
	neg := decimal.NewFromInt(-5)
	tests := []struct {
		name   string
		label  string
		kind   Kind
		mode   session.PricingMode
		hourly decimal.Decimal
		first  *decimal.Decimal
	}{
		{"empty name", "", KindTable, session.PricingPerSpace, decimal.NewFromInt(1), nil},
		{"bad kind", "x", "booth", session.PricingPerSpace, decimal.NewFromInt(1), nil},
		{"bad mode", "x", KindHall, "flat", decimal.NewFromInt(1), nil},
		{"negative hourly", "x", KindHall, session.PricingPerPerson, neg, nil},
		{"negative first hour", "x", KindHall, session.PricingPerPerson, decimal.NewFromInt(1), &neg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpace(tt.label, tt.kind, tt.mode, tt.hourly, tt.first)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
