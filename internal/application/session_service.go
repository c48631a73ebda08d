package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/venuedesk/service-billing/internal/domain/billing"
	"github.com/venuedesk/service-billing/internal/domain/promo"
	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/domain/venue"
	"github.com/venuedesk/service-billing/internal/messages"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// StartSessionRequest opens a session on a space.
type StartSessionRequest struct {
	SpaceID uuid.UUID `json:"space_id" binding:"required"`
}

// SwitchSpaceRequest moves a session to another table.
type SwitchSpaceRequest struct {
	SpaceID uuid.UUID `json:"space_id" binding:"required"`
}

// AddMemberRequest registers a guest.
type AddMemberRequest struct {
	Name string `json:"name" binding:"max=100"`
}

// AddOrderRequest records an ordered product. MemberID is omitted for table orders.
type AddOrderRequest struct {
	MemberID  *uuid.UUID      `json:"member_id"`
	ItemID    string          `json:"item_id" binding:"required"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity" binding:"required,gt=0"`
}

// MemberLeaveDTO is the result of a guest leaving. Bill is set for
// per-person sessions, where a leaving guest settles their own share.
type MemberLeaveDTO struct {
	Member MemberDTO `json:"member"`
	Bill   *BillDTO  `json:"bill,omitempty"`
}

// QuoteDTO is a live bill for an open session.
type QuoteDTO struct {
	SessionID       uuid.UUID `json:"session_id"`
	Bill            BillDTO   `json:"bill"`
	DurationMinutes int64     `json:"duration_minutes"`
	PromoCode       string    `json:"promo_code,omitempty"`
	PromoApplied    bool      `json:"promo_applied"`
	Message         string    `json:"message,omitempty"`
}

// SessionService handles the lifecycle of open sessions.
type SessionService struct {
	sessions session.SessionRepository
	spaces   venue.SpaceRepository
	promos   promo.PromoRepository
	now      Clock
	logger   *zap.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessions session.SessionRepository,
	spaces venue.SpaceRepository,
	promos promo.PromoRepository,
	now Clock,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		spaces:   spaces,
		promos:   promos,
		now:      now,
		logger:   logger,
	}
}

func (s *SessionService) activeSpace(ctx context.Context, id uuid.UUID) (*venue.Space, error) {
	space, err := s.spaces.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !space.IsActive() {
		return nil, domain.NewValidationError("space %s is not in service", space.Name())
	}
	return space, nil
}

// StartSession opens a session on an active space.
func (s *SessionService) StartSession(ctx context.Context, openedBy uuid.UUID, req StartSessionRequest) (*SessionDTO, error) {
	space, err := s.activeSpace(ctx, req.SpaceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess, err := session.Start(space.Rate(), openedBy, now)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("session started",
		zap.String("session_id", sess.ID().String()),
		zap.String("space_id", space.ID().String()),
		zap.String("pricing_mode", string(sess.Mode())),
	)
	dto := toSessionDTO(sess, now)
	return &dto, nil
}

// GetSession returns a session with its totals as of now.
func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*SessionDTO, error) {
	sess, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toSessionDTO(sess, s.now())
	return &dto, nil
}

// ListOpenSessions returns every session still running.
func (s *SessionService) ListOpenSessions(ctx context.Context) ([]SessionDTO, error) {
	sessions, err := s.sessions.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	dtos := make([]SessionDTO, len(sessions))
	for i, sess := range sessions {
		dtos[i] = toSessionDTO(sess, now)
	}
	return dtos, nil
}

// mutate loads a session, applies fn and persists it with the next version.
func (s *SessionService) mutate(ctx context.Context, id uuid.UUID, fn func(sess *session.Session) error) (*session.Session, error) {
	sess, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SwitchSpace moves a per-space session to another table.
func (s *SessionService) SwitchSpace(ctx context.Context, id uuid.UUID, req SwitchSpaceRequest) (*SessionDTO, error) {
	space, err := s.activeSpace(ctx, req.SpaceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess, err := s.mutate(ctx, id, func(sess *session.Session) error {
		return sess.SwitchSpace(space.Rate(), now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session switched space",
		zap.String("session_id", id.String()),
		zap.String("space_id", space.ID().String()),
	)
	dto := toSessionDTO(sess, now)
	return &dto, nil
}

// AddMember registers a guest.
func (s *SessionService) AddMember(ctx context.Context, id uuid.UUID, req AddMemberRequest) (*MemberDTO, error) {
	var member session.Member
	_, err := s.mutate(ctx, id, func(sess *session.Session) error {
		var err error
		member, err = sess.AddMember(req.Name, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := toMemberDTO(member)
	return &dto, nil
}

// RemoveMember records a guest leaving. In per-person sessions the guest's
// own share is billed at the moment they leave.
func (s *SessionService) RemoveMember(ctx context.Context, id, memberID uuid.UUID) (*MemberLeaveDTO, error) {
	now := s.now()
	var member session.Member
	sess, err := s.mutate(ctx, id, func(sess *session.Session) error {
		var err error
		member, err = sess.RemoveMember(memberID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &MemberLeaveDTO{Member: toMemberDTO(member)}
	if sess.Mode() == session.PricingPerPerson {
		bm, err := sess.MemberSnapshot(memberID)
		if err != nil {
			return nil, err
		}
		totals := billing.MemberTotal(bm, sess.HourlyRate(), sess.FirstHourRate(), now)
		bill := toBillDTO(billing.ApplyPromo(totals.TimeCost, totals.OrdersCost, decimal.Zero, nil))
		result.Bill = &bill
	}
	return result, nil
}

// AddOrder records an ordered product on the session.
func (s *SessionService) AddOrder(ctx context.Context, id uuid.UUID, req AddOrderRequest) (*LineItemDTO, error) {
	var item session.LineItem
	_, err := s.mutate(ctx, id, func(sess *session.Session) error {
		var err error
		item, err = sess.AddOrder(req.MemberID, req.ItemID, req.Name, req.UnitPrice, req.Quantity, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := toLineItemDTO(item)
	return &dto, nil
}

// Quote computes what the session would owe if closed now. Nothing is persisted.
// An unusable promo code is reported in the message and the bill is quoted without it.
func (s *SessionService) Quote(ctx context.Context, id uuid.UUID, promoCode string) (*QuoteDTO, error) {
	sess, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()

	result := &QuoteDTO{SessionID: sess.ID()}
	var p *promo.PromoCode
	if promoCode != "" {
		p, err = redeemable(ctx, s.promos, promoCode, now)
		switch {
		case err == nil:
			result.PromoCode = p.Code()
			result.PromoApplied = true
		case errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound):
			result.Message = err.Error()
		default:
			return nil, err
		}
	}

	snapshot := sess.Snapshot()
	result.Bill = toBillDTO(billing.Quote(snapshot, now, p))
	result.DurationMinutes = snapshot.DurationMinutes(now)
	return result, nil
}

// orderConflictAttempts bounds how often a POS order is re-applied to a
// freshly loaded session after losing a concurrent update.
const orderConflictAttempts = 3

// HandleOrderPlaced handles an OrderPlacedEvent from the point of sale.
func (s *SessionService) HandleOrderPlaced(ctx context.Context, event messages.OrderPlacedEvent) error {
	s.logger.Info("handling order placed event",
		zap.String("session_id", event.SessionID.String()),
		zap.String("item_id", event.ItemID),
		zap.Int64("quantity", event.Quantity),
	)

	req := AddOrderRequest{
		MemberID:  event.MemberID,
		ItemID:    event.ItemID,
		Name:      event.Name,
		UnitPrice: event.UnitPrice,
		Quantity:  event.Quantity,
	}
	var err error
	for attempt := 1; attempt <= orderConflictAttempts; attempt++ {
		if _, err = s.AddOrder(ctx, event.SessionID, req); !errors.Is(err, domain.ErrConflict) {
			break
		}
		s.logger.Debug("session changed while recording order, reloading",
			zap.String("session_id", event.SessionID.String()),
			zap.Int("attempt", attempt),
		)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrValidation):
		// Retrying cannot succeed; drop the order and let staff reconcile.
		s.logger.Warn("dropping order for session",
			zap.String("session_id", event.SessionID.String()),
			zap.Error(err),
		)
		return nil
	default:
		return err
	}
}

// redeemable loads a code and checks it can be used at now.
func redeemable(ctx context.Context, repo promo.PromoRepository, code string, now time.Time) (*promo.PromoCode, error) {
	p, err := repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !p.IsRedeemable(now) {
		return nil, domain.NewValidationError("promo code %s is inactive, expired or fully used", p.Code())
	}
	return p, nil
}
