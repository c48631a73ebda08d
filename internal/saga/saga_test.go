package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/venuedesk/service-billing/internal/domain/invoice"
	"github.com/venuedesk/service-billing/internal/domain/promo"
	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/messages"
	"github.com/venuedesk/service-billing/internal/platform/kafka"
	"github.com/venuedesk/service-billing/internal/repository/memory"
)

func TestSaga_CompensatesInReverseOrder(t *testing.T) {
	var trail []string
	step := func(name string, fail bool) SagaStep {
		return SagaStep{
			Name: name,
			Execute: func(context.Context) error {
				trail = append(trail, "do "+name)
				if fail {
					return errors.New("boom")
				}
				return nil
			},
			Compensate: func(context.Context) error {
				trail = append(trail, "undo "+name)
				return nil
			},
		}
	}

	s := NewSaga("test", zap.NewNop())
	s.AddStep(step("a", false))
	s.AddStep(step("b", false))
	s.AddStep(SagaStep{Name: "no-undo", Execute: func(context.Context) error { trail = append(trail, "do no-undo"); return nil }})
	s.AddStep(step("c", true))
	s.AddStep(step("d", false))

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed at step 'c'")
	assert.Equal(t, []string{"do a", "do b", "do no-undo", "do c", "undo b", "undo a"}, trail)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	failOn string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.Type == p.failOn {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type failingInvoices struct {
	*memory.InvoiceRepository
}

func (failingInvoices) Save(context.Context, *invoice.Invoice) error {
	return errors.New("disk full")
}

var t0 = time.Date(2026, 4, 3, 20, 0, 0, 0, time.UTC)

type fixture struct {
	sessions  *memory.SessionRepository
	invoices  *memory.InvoiceRepository
	promos    *memory.PromoRepository
	publisher *recordingPublisher
	session   *session.Session
	promo     *promo.PromoCode
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		sessions:  memory.NewSessionRepository(),
		invoices:  memory.NewInvoiceRepository(),
		promos:    memory.NewPromoRepository(),
		publisher: &recordingPublisher{},
	}

	s, err := session.Start(session.Rate{SpaceID: uuid.New(), Mode: session.PricingPerSpace, HourlyRate: decimal.NewFromInt(100)}, uuid.New(), t0)
	require.NoError(t, err)
	_, err = s.AddOrder(nil, "cola", "Cola", decimal.NewFromInt(5), 2, t0.Add(10*time.Minute))
	require.NoError(t, err)
	require.NoError(t, f.sessions.Save(ctx, s))
	f.session, _ = f.sessions.FindByID(ctx, s.ID())

	p, err := promo.NewPromoCode("TENOFF", promo.Percentage{Value: decimal.NewFromInt(10), AppliesTo: []promo.Target{promo.TargetTime, promo.TargetOrders}}, 5, t0.Add(-time.Hour), t0.Add(24*time.Hour), uuid.New())
	require.NoError(t, err)
	require.NoError(t, f.promos.Save(ctx, p))
	f.promo, _ = f.promos.FindByID(ctx, p.ID())
	return f
}

func TestCloseSessionSaga_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := NewCloseSessionSaga(f.sessions, f.invoices, f.promos, f.publisher, zap.NewNop())

	inv, err := c.Run(ctx, f.session, f.promo, t0.Add(2*time.Hour))
	require.NoError(t, err)

	// 2h at 100 + 10 orders, 10% off everything
	assert.True(t, decimal.NewFromInt(210).Equal(inv.OriginalTotal()), inv.OriginalTotal().String())
	assert.True(t, decimal.NewFromInt(21).Equal(inv.DiscountAmount()))
	assert.True(t, decimal.NewFromInt(189).Equal(inv.FinalTotal()))
	assert.Equal(t, int64(120), inv.DurationMinutes())
	assert.Equal(t, "TENOFF", inv.PromoCode())

	stored, err := f.sessions.FindByID(ctx, f.session.ID())
	require.NoError(t, err)
	assert.Equal(t, session.StatusClosed, stored.Status())

	p, _ := f.promos.FindByID(ctx, f.promo.ID())
	assert.Equal(t, 1, p.CurrentUses())
	require.Len(t, f.promos.Usages(p.ID()), 1)

	assert.Equal(t, []string{messages.BillingInvoiceIssued, messages.BillingSessionClosed}, f.publisher.types())
}

func TestCloseSessionSaga_WithoutPromo(t *testing.T) {
	f := newFixture(t)
	c := NewCloseSessionSaga(f.sessions, f.invoices, f.promos, f.publisher, zap.NewNop())

	inv, err := c.Run(context.Background(), f.session, nil, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(110).Equal(inv.FinalTotal()))
	assert.Empty(t, inv.PromoCode())
	assert.Empty(t, f.promos.Usages(f.promo.ID()))
}

func TestCloseSessionSaga_InvoiceFailureReopensSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := NewCloseSessionSaga(f.sessions, failingInvoices{f.invoices}, f.promos, f.publisher, zap.NewNop())

	_, err := c.Run(ctx, f.session, f.promo, t0.Add(time.Hour))
	require.Error(t, err)

	stored, err := f.sessions.FindByID(ctx, f.session.ID())
	require.NoError(t, err)
	assert.Equal(t, session.StatusOpen, stored.Status())
	assert.Nil(t, stored.Segments()[0].EndedAt)

	p, _ := f.promos.FindByID(ctx, f.promo.ID())
	assert.Equal(t, 0, p.CurrentUses())
	assert.Equal(t, []string{messages.BillingFailed}, f.publisher.types())
}

func TestCloseSessionSaga_PublishFailureCompensatesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.publisher.failOn = messages.BillingInvoiceIssued
	c := NewCloseSessionSaga(f.sessions, f.invoices, f.promos, f.publisher, zap.NewNop())

	_, err := c.Run(ctx, f.session, f.promo, t0.Add(time.Hour))
	require.Error(t, err)

	inv, err := f.invoices.FindBySessionID(ctx, f.session.ID())
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusVoid, inv.Status())

	p, _ := f.promos.FindByID(ctx, f.promo.ID())
	assert.Equal(t, 0, p.CurrentUses())
	assert.Empty(t, f.promos.Usages(p.ID()))

	stored, _ := f.sessions.FindByID(ctx, f.session.ID())
	assert.Equal(t, session.StatusOpen, stored.Status())

	// The session can be closed again once the broker is back.
	f.publisher.failOn = ""
	_, err = c.Run(ctx, stored, f.promo, t0.Add(2*time.Hour))
	require.NoError(t, err)
}

func TestCloseSessionSaga_AlreadyClosed(t *testing.T) {
	f := newFixture(t)
	c := NewCloseSessionSaga(f.sessions, f.invoices, f.promos, f.publisher, zap.NewNop())

	_, err := c.Run(context.Background(), f.session, nil, t0.Add(time.Hour))
	require.NoError(t, err)

	_, err = c.Run(context.Background(), f.session, nil, t0.Add(2*time.Hour))
	require.Error(t, err)
}
