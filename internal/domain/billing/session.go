package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Segment is continuous occupancy of one table or hall at one rate.
// A nil End means the segment is still running.
type Segment struct {
	Start         time.Time
	End           *time.Time
	HourlyRate    decimal.Decimal
	FirstHourRate *decimal.Decimal
}

// DurationMinutes measures the segment up to its end, or up to now while open.
func (s Segment) DurationMinutes(now time.Time) int64 {
	end := now
	if s.End != nil {
		end = *s.End
	}
	return ElapsedMinutes(s.Start, end)
}

// Cost is the time cost of this segment alone.
func (s Segment) Cost(now time.Time) decimal.Decimal {
	return TimeCost(s.DurationMinutes(now), s.HourlyRate, s.FirstHourRate)
}

// LineItem is one ordered product.
type LineItem struct {
	ItemID    string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int64
}

// Total is unitPrice × quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity))
}

// Member is one guest's attendance window and personal consumption.
type Member struct {
	JoinedAt time.Time
	LeftAt   *time.Time
	Items    []LineItem
}

// Present reports whether the member has not left yet.
func (m Member) Present() bool {
	return m.LeftAt == nil
}

// Session is the read-only billing view of a venue session.
//
// When Segments is non-empty each segment is billed on its own. Otherwise
// the session is a single implicit segment (StartedAt..EndedAt at HourlyRate /
// FirstHourRate) billed per person for every member still present.
type Session struct {
	Segments []Segment

	StartedAt     time.Time
	EndedAt       *time.Time
	HourlyRate    decimal.Decimal
	FirstHourRate *decimal.Decimal

	Members []Member
	// Items ordered for the table rather than for a specific member.
	Items []LineItem
}

// Totals is the undiscounted cost of a session.
type Totals struct {
	TimeCost   decimal.Decimal
	OrdersCost decimal.Decimal
	Total      decimal.Decimal
}

func (s Session) implicitSegment() Segment {
	return Segment{
		Start:         s.StartedAt,
		End:           s.EndedAt,
		HourlyRate:    s.HourlyRate,
		FirstHourRate: s.FirstHourRate,
	}
}

// ActiveMembers counts members without a leave timestamp.
func (s Session) ActiveMembers() int64 {
	var n int64
	for _, m := range s.Members {
		if m.Present() {
			n++
		}
	}
	return n
}

// TimeCost sums segment costs, or the per-person implicit cost × members present.
//
// The first-hour rate is applied per segment, so a table switch starts a new
// first hour.
func (s Session) TimeCost(now time.Time) decimal.Decimal {
	if len(s.Segments) > 0 {
		total := decimal.Zero
		for _, seg := range s.Segments {
			total = total.Add(seg.Cost(now))
		}
		return total
	}

	perPerson := s.implicitSegment().Cost(now)
	return perPerson.Mul(decimal.NewFromInt(s.ActiveMembers()))
}

// LineItems returns every line item on the session and its members.
func (s Session) LineItems() []LineItem {
	items := make([]LineItem, 0, len(s.Items))
	items = append(items, s.Items...)
	for _, m := range s.Members {
		items = append(items, m.Items...)
	}
	return items
}

// OrdersCost is the flat sum of every line item, regardless of segment.
func (s Session) OrdersCost() decimal.Decimal {
	return sumItems(s.LineItems())
}

// DurationMinutes is the billed occupancy: summed segment minutes, or the
// implicit segment's length.
func (s Session) DurationMinutes(now time.Time) int64 {
	if len(s.Segments) == 0 {
		return s.implicitSegment().DurationMinutes(now)
	}
	var total int64
	for _, seg := range s.Segments {
		total += seg.DurationMinutes(now)
	}
	return total
}

// DurationHours is DurationMinutes in fractional hours.
func (s Session) DurationHours(now time.Time) decimal.Decimal {
	return MinutesToHours(s.DurationMinutes(now))
}

// SessionTotal computes time cost, orders cost and their sum.
func SessionTotal(s Session, now time.Time) Totals {
	timeCost := s.TimeCost(now)
	ordersCost := s.OrdersCost()
	return Totals{
		TimeCost:   timeCost,
		OrdersCost: ordersCost,
		Total:      timeCost.Add(ordersCost),
	}
}

// MemberTotal bills one guest for their own window and consumption. Used for
// per-person sessions when a member leaves before the table closes.
func MemberTotal(m Member, hourlyRate decimal.Decimal, firstHourRate *decimal.Decimal, now time.Time) Totals {
	seg := Segment{Start: m.JoinedAt, End: m.LeftAt, HourlyRate: hourlyRate, FirstHourRate: firstHourRate}
	timeCost := seg.Cost(now)
	ordersCost := sumItems(m.Items)
	return Totals{
		TimeCost:   timeCost,
		OrdersCost: ordersCost,
		Total:      timeCost.Add(ordersCost),
	}
}

func sumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Total())
	}
	return total
}
