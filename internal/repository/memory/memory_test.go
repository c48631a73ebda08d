package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuedesk/service-billing/internal/domain/billing"
	"github.com/venuedesk/service-billing/internal/domain/invoice"
	"github.com/venuedesk/service-billing/internal/domain/promo"
	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

var t0 = time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC)

func TestSessionRepository_OptimisticLocking(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	s, err := session.Start(session.Rate{SpaceID: uuid.New(), Mode: session.PricingPerSpace, HourlyRate: decimal.NewFromInt(10)}, uuid.New(), t0)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, s))
	assert.ErrorIs(t, repo.Save(ctx, s), domain.ErrConflict)

	a, _ := repo.FindByID(ctx, s.ID())
	b, _ := repo.FindByID(ctx, s.ID())

	_, err = a.AddMember("a", t0)
	require.NoError(t, err)
	a.IncrementVersion()
	require.NoError(t, repo.Update(ctx, a))

	_, err = b.AddMember("b", t0)
	require.NoError(t, err)
	b.IncrementVersion()
	assert.ErrorIs(t, repo.Update(ctx, b), domain.ErrConflict)

	stored, err := repo.FindByID(ctx, s.ID())
	require.NoError(t, err)
	require.Len(t, stored.Members(), 1)
	assert.Equal(t, "a", stored.Members()[0].Name)
}

func TestSessionRepository_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	s, _ := session.Start(session.Rate{SpaceID: uuid.New(), Mode: session.PricingPerSpace, HourlyRate: decimal.NewFromInt(10)}, uuid.New(), t0)
	require.NoError(t, repo.Save(ctx, s))

	_, _ = s.AddMember("unsaved", t0)

	stored, _ := repo.FindByID(ctx, s.ID())
	assert.Empty(t, stored.Members())

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}

func TestPromoRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPromoRepository()

	p, err := promo.NewPromoCode("happy", promo.Fixed{Value: decimal.NewFromInt(5), AppliesTo: []promo.Target{promo.TargetOrders}}, 1, t0, t0.Add(24*time.Hour), uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, p))

	dup, _ := promo.NewPromoCode("HAPPY", promo.Fixed{Value: decimal.NewFromInt(1), AppliesTo: []promo.Target{promo.TargetOrders}}, 0, t0, t0.Add(time.Hour), uuid.New())
	assert.ErrorIs(t, repo.Save(ctx, dup), domain.ErrConflict)

	found, err := repo.FindByCode(ctx, "Happy")
	require.NoError(t, err)
	assert.Equal(t, p.ID(), found.ID())

	active, err := repo.FindActive(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, active, 1)

	found.IncrementUses()
	require.NoError(t, repo.Update(ctx, found))
	active, _ = repo.FindActive(ctx, t0.Add(time.Hour))
	assert.Empty(t, active, "max uses reached")

	usage := &promo.PromoUsage{ID: uuid.New(), PromoID: p.ID(), SessionID: uuid.New(), InvoiceID: uuid.New(), DiscountAmount: decimal.NewFromInt(5), UsedAt: t0}
	require.NoError(t, repo.SaveUsage(ctx, usage))
	assert.ErrorIs(t, repo.SaveUsage(ctx, &promo.PromoUsage{ID: uuid.New(), SessionID: usage.SessionID}), domain.ErrConflict)
	assert.Len(t, repo.Usages(p.ID()), 1)

	require.NoError(t, repo.DeleteUsage(ctx, usage.ID))
	assert.Empty(t, repo.Usages(p.ID()))
}

func TestInvoiceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository()
	sessionID := uuid.New()

	bill := billing.Bill{
		TimeCost: decimal.NewFromInt(100), OrdersCost: decimal.NewFromInt(20),
		OriginalTotal: decimal.NewFromInt(120), DiscountAmount: decimal.NewFromInt(20),
		FinalTotal: decimal.NewFromInt(100),
	}
	first := invoice.NewInvoice(sessionID, uuid.New(), bill, "", 60, t0)
	require.NoError(t, repo.Save(ctx, first))

	require.NoError(t, first.Void("wrong table"))
	first.IncrementVersion()
	require.NoError(t, repo.Update(ctx, first))

	second := invoice.NewInvoice(sessionID, uuid.New(), bill, "", 60, t0.Add(-time.Hour))
	require.NoError(t, repo.Save(ctx, second))

	bySession, err := repo.FindBySessionID(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, second.ID(), bySession.ID(), "issued invoice wins over a newer void one")

	page, total, err := repo.ListAll(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID(), page[0].ID())

	page, _, _ = repo.ListAll(ctx, 5, 10)
	assert.Empty(t, page)

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(stats.Revenue))
	assert.True(t, decimal.NewFromInt(20).Equal(stats.Discounts))
	assert.Equal(t, map[string]int64{"issued": 1, "void": 1}, stats.CountByStatus)

	stale := invoice.Reconstitute(second.ID(), sessionID, uuid.New(), invoice.StatusIssued, "", bill.TimeCost, bill.OrdersCost,
		bill.OriginalTotal, bill.DiscountAmount, bill.FinalTotal, "", 60, t0, nil, "", 5, t0, t0)
	assert.ErrorIs(t, repo.Update(ctx, stale), domain.ErrConflict)
}
