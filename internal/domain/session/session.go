package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/venuedesk/service-billing/internal/domain/billing"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// PricingMode decides how occupancy is billed.
type PricingMode string

const (
	// PricingPerSpace bills each table/hall segment at its own rate.
	PricingPerSpace PricingMode = "per_space"
	// PricingPerPerson bills one implicit segment per present member.
	PricingPerPerson PricingMode = "per_person"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Rate is the pricing of the space a session occupies.
type Rate struct {
	SpaceID       uuid.UUID
	Mode          PricingMode
	HourlyRate    decimal.Decimal
	FirstHourRate *decimal.Decimal
}

// Segment is occupancy of one space. EndedAt is set once and never changed.
type Segment struct {
	ID            uuid.UUID
	SpaceID       uuid.UUID
	StartedAt     time.Time
	EndedAt       *time.Time
	HourlyRate    decimal.Decimal
	FirstHourRate *decimal.Decimal
}

// Member is a guest attending the session.
type Member struct {
	ID       uuid.UUID
	Name     string
	JoinedAt time.Time
	LeftAt   *time.Time
}

// LineItem is an order; MemberID is nil for orders on the table itself.
type LineItem struct {
	ID        uuid.UUID
	MemberID  *uuid.UUID
	ItemID    string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int64
	OrderedAt time.Time
}

// Session is the aggregate root for one occupancy of the venue.
type Session struct {
	id            uuid.UUID
	spaceID       uuid.UUID
	mode          PricingMode
	status        Status
	startedAt     time.Time
	endedAt       *time.Time
	hourlyRate    decimal.Decimal
	firstHourRate *decimal.Decimal
	segments      []Segment
	members       []Member
	items         []LineItem
	promoCode     string
	openedBy      uuid.UUID
	version       int64
	createdAt     time.Time
	updatedAt     time.Time
}

// Start opens a session on a space at now.
func Start(rate Rate, openedBy uuid.UUID, now time.Time) (*Session, error) {
	if rate.Mode != PricingPerSpace && rate.Mode != PricingPerPerson {
		return nil, domain.NewValidationError("invalid pricing mode: %s", rate.Mode)
	}
	if rate.HourlyRate.IsNegative() || (rate.FirstHourRate != nil && rate.FirstHourRate.IsNegative()) {
		return nil, domain.NewValidationError("rates cannot be negative")
	}

	s := &Session{
		id:            uuid.New(),
		spaceID:       rate.SpaceID,
		mode:          rate.Mode,
		status:        StatusOpen,
		startedAt:     now,
		hourlyRate:    rate.HourlyRate,
		firstHourRate: rate.FirstHourRate,
		openedBy:      openedBy,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}
	if rate.Mode == PricingPerSpace {
		s.segments = append(s.segments, newSegment(rate, now))
	}
	return s, nil
}

func newSegment(rate Rate, now time.Time) Segment {
	return Segment{
		ID:            uuid.New(),
		SpaceID:       rate.SpaceID,
		StartedAt:     now,
		HourlyRate:    rate.HourlyRate,
		FirstHourRate: rate.FirstHourRate,
	}
}

func (s *Session) requireOpen(action string) error {
	if s.status != StatusOpen {
		return domain.NewInvalidStateError(string(s.status), action)
	}
	return nil
}

// SwitchSpace closes the running segment and opens one on another space.
func (s *Session) SwitchSpace(rate Rate, now time.Time) error {
	if err := s.requireOpen("switch_space"); err != nil {
		return err
	}
	if s.mode != PricingPerSpace || rate.Mode != PricingPerSpace {
		return domain.NewValidationError("only per-space sessions can switch to a per-space table")
	}
	if rate.SpaceID == s.spaceID {
		return domain.NewValidationError("session already occupies space %s", rate.SpaceID)
	}

	s.closeOpenSegment(now)
	s.segments = append(s.segments, newSegment(rate, now))
	s.spaceID = rate.SpaceID
	s.hourlyRate = rate.HourlyRate
	s.firstHourRate = rate.FirstHourRate
	s.updatedAt = now
	return nil
}

func (s *Session) closeOpenSegment(now time.Time) {
	for i := range s.segments {
		if s.segments[i].EndedAt == nil {
			end := now
			s.segments[i].EndedAt = &end
		}
	}
}

// AddMember registers a guest joining at now.
func (s *Session) AddMember(name string, now time.Time) (Member, error) {
	if err := s.requireOpen("add_member"); err != nil {
		return Member{}, err
	}
	m := Member{ID: uuid.New(), Name: name, JoinedAt: now}
	s.members = append(s.members, m)
	s.updatedAt = now
	return m, nil
}

// RemoveMember records a guest leaving at now.
func (s *Session) RemoveMember(memberID uuid.UUID, now time.Time) (Member, error) {
	if err := s.requireOpen("remove_member"); err != nil {
		return Member{}, err
	}
	i := s.memberIndex(memberID)
	if i < 0 {
		return Member{}, domain.NewNotFoundError("Member", memberID.String())
	}
	if s.members[i].LeftAt != nil {
		return Member{}, domain.NewValidationError("member %s already left", memberID)
	}
	left := now
	s.members[i].LeftAt = &left
	s.updatedAt = now
	return s.members[i], nil
}

// AddOrder records an ordered product, for a member or for the table.
func (s *Session) AddOrder(memberID *uuid.UUID, itemID, name string, unitPrice decimal.Decimal, quantity int64, now time.Time) (LineItem, error) {
	if err := s.requireOpen("add_order"); err != nil {
		return LineItem{}, err
	}
	if itemID == "" {
		return LineItem{}, domain.NewValidationError("item id is required")
	}
	if quantity <= 0 {
		return LineItem{}, domain.NewValidationError("quantity must be positive, got %d", quantity)
	}
	if unitPrice.IsNegative() {
		return LineItem{}, domain.NewValidationError("unit price cannot be negative")
	}
	if memberID != nil {
		i := s.memberIndex(*memberID)
		if i < 0 {
			return LineItem{}, domain.NewNotFoundError("Member", memberID.String())
		}
		if s.members[i].LeftAt != nil {
			return LineItem{}, domain.NewValidationError("member %s already left", memberID)
		}
	}

	li := LineItem{
		ID:        uuid.New(),
		MemberID:  memberID,
		ItemID:    itemID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		OrderedAt: now,
	}
	s.items = append(s.items, li)
	s.updatedAt = now
	return li, nil
}

// Close freezes the session at now. Closed sessions are immutable.
func (s *Session) Close(promoCode string, now time.Time) error {
	if err := s.requireOpen(string(StatusClosed)); err != nil {
		return err
	}
	s.closeOpenSegment(now)
	end := now
	s.endedAt = &end
	s.status = StatusClosed
	s.promoCode = promoCode
	s.updatedAt = now
	return nil
}

// Reopen undoes Close at now. It exists for saga compensation only.
// Only the segment Close ended is reopened; earlier segments may share its
// end instant after a switch at the same moment.
func (s *Session) Reopen(now time.Time) error {
	if s.status != StatusClosed || s.endedAt == nil {
		return domain.NewInvalidStateError(string(s.status), string(StatusOpen))
	}
	if n := len(s.segments); n > 0 {
		last := &s.segments[n-1]
		if last.EndedAt != nil && last.EndedAt.Equal(*s.endedAt) {
			last.EndedAt = nil
		}
	}
	s.endedAt = nil
	s.status = StatusOpen
	s.promoCode = ""
	s.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (s *Session) IncrementVersion() {
	s.version++
}

func (s *Session) memberIndex(id uuid.UUID) int {
	for i := range s.members {
		if s.members[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot is the billing view of the session.
func (s *Session) Snapshot() billing.Session {
	bs := billing.Session{
		StartedAt:     s.startedAt,
		EndedAt:       s.endedAt,
		HourlyRate:    s.hourlyRate,
		FirstHourRate: s.firstHourRate,
	}
	if s.mode == PricingPerSpace {
		for _, seg := range s.segments {
			bs.Segments = append(bs.Segments, billing.Segment{
				Start:         seg.StartedAt,
				End:           seg.EndedAt,
				HourlyRate:    seg.HourlyRate,
				FirstHourRate: seg.FirstHourRate,
			})
		}
	}

	byMember := make(map[uuid.UUID][]billing.LineItem, len(s.members))
	for _, li := range s.items {
		item := billing.LineItem{ItemID: li.ItemID, Name: li.Name, UnitPrice: li.UnitPrice, Quantity: li.Quantity}
		if li.MemberID == nil {
			bs.Items = append(bs.Items, item)
			continue
		}
		byMember[*li.MemberID] = append(byMember[*li.MemberID], item)
	}
	for _, m := range s.members {
		bs.Members = append(bs.Members, billing.Member{
			JoinedAt: m.JoinedAt,
			LeftAt:   m.LeftAt,
			Items:    byMember[m.ID],
		})
	}
	return bs
}

// MemberSnapshot is the billing view of one member and their own orders.
func (s *Session) MemberSnapshot(memberID uuid.UUID) (billing.Member, error) {
	i := s.memberIndex(memberID)
	if i < 0 {
		return billing.Member{}, domain.NewNotFoundError("Member", memberID.String())
	}
	m := s.members[i]
	bm := billing.Member{JoinedAt: m.JoinedAt, LeftAt: m.LeftAt}
	for _, li := range s.items {
		if li.MemberID != nil && *li.MemberID == memberID {
			bm.Items = append(bm.Items, billing.LineItem{ItemID: li.ItemID, Name: li.Name, UnitPrice: li.UnitPrice, Quantity: li.Quantity})
		}
	}
	return bm, nil
}

// Getters.
func (s *Session) ID() uuid.UUID                   { return s.id }
func (s *Session) SpaceID() uuid.UUID              { return s.spaceID }
func (s *Session) Mode() PricingMode               { return s.mode }
func (s *Session) Status() Status                  { return s.status }
func (s *Session) StartedAt() time.Time            { return s.startedAt }
func (s *Session) EndedAt() *time.Time             { return s.endedAt }
func (s *Session) HourlyRate() decimal.Decimal     { return s.hourlyRate }
func (s *Session) FirstHourRate() *decimal.Decimal { return s.firstHourRate }
func (s *Session) PromoCode() string               { return s.promoCode }
func (s *Session) OpenedBy() uuid.UUID             { return s.openedBy }
func (s *Session) Version() int64                  { return s.version }
func (s *Session) CreatedAt() time.Time            { return s.createdAt }
func (s *Session) UpdatedAt() time.Time            { return s.updatedAt }

// Segments returns a copy of the occupancy segments.
func (s *Session) Segments() []Segment { return append([]Segment(nil), s.segments...) }

// Members returns a copy of the members.
func (s *Session) Members() []Member { return append([]Member(nil), s.members...) }

// Items returns a copy of the line items.
func (s *Session) Items() []LineItem { return append([]LineItem(nil), s.items...) }

// Reconstitute rebuilds a Session from persisted data.
func Reconstitute(
	id, spaceID uuid.UUID,
	mode PricingMode,
	status Status,
	startedAt time.Time,
	endedAt *time.Time,
	hourlyRate decimal.Decimal,
	firstHourRate *decimal.Decimal,
	segments []Segment,
	members []Member,
	items []LineItem,
	promoCode string,
	openedBy uuid.UUID,
	version int64,
	createdAt, updatedAt time.Time,
) *Session {
	return &Session{
		id:            id,
		spaceID:       spaceID,
		mode:          mode,
		status:        status,
		startedAt:     startedAt,
		endedAt:       endedAt,
		hourlyRate:    hourlyRate,
		firstHourRate: firstHourRate,
		segments:      segments,
		members:       members,
		items:         items,
		promoCode:     promoCode,
		openedBy:      openedBy,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}
