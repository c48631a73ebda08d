package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/venuedesk/service-billing/internal/domain/billing"
	"github.com/venuedesk/service-billing/internal/domain/invoice"
	"github.com/venuedesk/service-billing/internal/domain/promo"
	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/messages"
	"github.com/venuedesk/service-billing/internal/platform/kafka"
)

// CloseSessionSaga closes a session, issues its invoice, redeems the promo
// code and announces the result, undoing earlier steps if a later one fails.
type CloseSessionSaga struct {
	sessions  session.SessionRepository
	invoices  invoice.InvoiceRepository
	promos    promo.PromoRepository
	publisher kafka.Publisher
	logger    *zap.Logger
}

// NewCloseSessionSaga creates a new CloseSessionSaga.
func NewCloseSessionSaga(
	sessions session.SessionRepository,
	invoices invoice.InvoiceRepository,
	promos promo.PromoRepository,
	publisher kafka.Publisher,
	logger *zap.Logger,
) *CloseSessionSaga {
	return &CloseSessionSaga{
		sessions:  sessions,
		invoices:  invoices,
		promos:    promos,
		publisher: publisher,
		logger:    logger,
	}
}

// Run closes s at now with the optional promo code p and returns the issued invoice.
// The caller has already checked that p is redeemable.
func (c *CloseSessionSaga) Run(ctx context.Context, s *session.Session, p *promo.PromoCode, now time.Time) (*invoice.Invoice, error) {
	var (
		inv   *invoice.Invoice
		usage *promo.PromoUsage
		code  string
	)
	if p != nil {
		code = p.Code()
	}

	saga := NewSaga("close_session", c.logger)

	// Step 1: Freeze the session
	saga.AddStep(SagaStep{
		Name: "close_session",
		Execute: func(ctx context.Context) error {
			if err := s.Close(code, now); err != nil {
				return err
			}
			s.IncrementVersion()
			return c.sessions.Update(ctx, s)
		},
		Compensate: func(ctx context.Context) error {
			if err := s.Reopen(now); err != nil {
				return err
			}
			s.IncrementVersion()
			return c.sessions.Update(ctx, s)
		},
	})

	// Step 2: Issue the invoice from the frozen session
	saga.AddStep(SagaStep{
		Name: "issue_invoice",
		Execute: func(ctx context.Context) error {
			snapshot := s.Snapshot()
			bill := billing.Quote(snapshot, now, p)
			inv = invoice.NewInvoice(s.ID(), s.SpaceID(), bill, code, snapshot.DurationMinutes(now), now)
			return c.invoices.Save(ctx, inv)
		},
		Compensate: func(ctx context.Context) error {
			if err := inv.Void("close session rolled back"); err != nil {
				return err
			}
			inv.IncrementVersion()
			return c.invoices.Update(ctx, inv)
		},
	})

	// Step 3: Redeem the promo code
	if p != nil {
		saga.AddStep(SagaStep{
			Name: "record_promo_usage",
			Execute: func(ctx context.Context) error {
				p.IncrementUses()
				if err := c.promos.Update(ctx, p); err != nil {
					p.ReleaseUse()
					return err
				}
				usage = &promo.PromoUsage{
					ID:             uuid.New(),
					PromoID:        p.ID(),
					SessionID:      s.ID(),
					InvoiceID:      inv.ID(),
					DiscountAmount: inv.DiscountAmount(),
					UsedAt:         now,
				}
				if err := c.promos.SaveUsage(ctx, usage); err != nil {
					usage = nil
					p.ReleaseUse()
					if updErr := c.promos.Update(ctx, p); updErr != nil {
						c.logger.Error("failed to release promo use", zap.String("code", code), zap.Error(updErr))
					}
					return err
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if usage != nil {
					if err := c.promos.DeleteUsage(ctx, usage.ID); err != nil {
						return err
					}
				}
				p.ReleaseUse()
				return c.promos.Update(ctx, p)
			},
		})
	}

	// Step 4: Publish InvoiceIssuedEvent and SessionClosedEvent
	saga.AddStep(SagaStep{
		Name: "publish_invoice_issued_event",
		Execute: func(ctx context.Context) error {
			issued := messages.InvoiceIssuedEvent{
				InvoiceID:      inv.ID(),
				SessionID:      s.ID(),
				SpaceID:        s.SpaceID(),
				PromoCode:      code,
				OriginalTotal:  inv.OriginalTotal(),
				DiscountAmount: inv.DiscountAmount(),
				FinalTotal:     inv.FinalTotal(),
				OccurredAt:     now,
			}
			if err := c.publish(ctx, messages.BillingInvoiceIssued, issued); err != nil {
				return err
			}

			closed := messages.SessionClosedEvent{
				SessionID:       s.ID(),
				SpaceID:         s.SpaceID(),
				DurationMinutes: inv.DurationMinutes(),
				ClosedAt:        now,
			}
			if err := c.publish(ctx, messages.BillingSessionClosed, closed); err != nil {
				// The invoice is out; occupancy consumers resync from the next close.
				c.logger.Warn("failed to publish session closed event", zap.Error(err))
			}
			return nil
		},
		Compensate: nil, // Event publishing has no compensating action
	})

	if err := saga.Execute(ctx); err != nil {
		c.publishFailedEvent(ctx, s.ID(), err.Error())
		return nil, err
	}

	return inv, nil
}

func (c *CloseSessionSaga) publish(ctx context.Context, eventType string, data interface{}) error {
	cloudEvent, err := kafka.NewCloudEvent(messages.Source, eventType, data)
	if err != nil {
		return fmt.Errorf("failed to create cloud event: %w", err)
	}
	return c.publisher.PublishEvent(ctx, messages.TopicBillingEvents, cloudEvent)
}

// publishFailedEvent publishes a BillingFailedEvent to Kafka.
func (c *CloseSessionSaga) publishFailedEvent(ctx context.Context, sessionID uuid.UUID, reason string) {
	event := messages.BillingFailedEvent{
		SessionID:  sessionID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	if err := c.publish(context.WithoutCancel(ctx), messages.BillingFailed, event); err != nil {
		c.logger.Error("failed to publish billing failed event", zap.Error(err))
	}
}
