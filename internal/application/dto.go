package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/venuedesk/service-billing/internal/domain/billing"
	"github.com/venuedesk/service-billing/internal/domain/invoice"
	"github.com/venuedesk/service-billing/internal/domain/promo"
	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/domain/venue"
)

// Clock reads the current time. Services read it once per operation.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// BillDTO is the API representation of a computed bill.
type BillDTO struct {
	TimeCost       decimal.Decimal `json:"time_cost"`
	OrdersCost     decimal.Decimal `json:"orders_cost"`
	OriginalTotal  decimal.Decimal `json:"original_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalTotal     decimal.Decimal `json:"final_total"`
	Note           string          `json:"note,omitempty"`
}

func toBillDTO(b billing.Bill) BillDTO {
	return BillDTO{
		TimeCost:       b.TimeCost,
		OrdersCost:     b.OrdersCost,
		OriginalTotal:  b.OriginalTotal,
		DiscountAmount: b.DiscountAmount,
		FinalTotal:     b.FinalTotal,
		Note:           b.Note,
	}
}

// SpaceDTO is the API representation of a table or hall.
type SpaceDTO struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Kind          string           `json:"kind"`
	PricingMode   string           `json:"pricing_mode"`
	HourlyRate    decimal.Decimal  `json:"hourly_rate"`
	FirstHourRate *decimal.Decimal `json:"first_hour_rate,omitempty"`
	Active        bool             `json:"active"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toSpaceDTO(s *venue.Space) SpaceDTO {
	return SpaceDTO{
		ID:            s.ID(),
		Name:          s.Name(),
		Kind:          string(s.Kind()),
		PricingMode:   string(s.Mode()),
		HourlyRate:    s.HourlyRate(),
		FirstHourRate: s.FirstHourRate(),
		Active:        s.IsActive(),
		CreatedAt:     s.CreatedAt(),
	}
}

// SegmentDTO is one occupancy segment.
type SegmentDTO struct {
	ID            uuid.UUID        `json:"id"`
	SpaceID       uuid.UUID        `json:"space_id"`
	StartedAt     time.Time        `json:"started_at"`
	EndedAt       *time.Time       `json:"ended_at,omitempty"`
	HourlyRate    decimal.Decimal  `json:"hourly_rate"`
	FirstHourRate *decimal.Decimal `json:"first_hour_rate,omitempty"`
}

// MemberDTO is one guest of a session.
type MemberDTO struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

func toMemberDTO(m session.Member) MemberDTO {
	return MemberDTO{ID: m.ID, Name: m.Name, JoinedAt: m.JoinedAt, LeftAt: m.LeftAt}
}

// LineItemDTO is one order on a session.
type LineItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	MemberID  *uuid.UUID      `json:"member_id,omitempty"`
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	OrderedAt time.Time       `json:"ordered_at"`
}

func toLineItemDTO(li session.LineItem) LineItemDTO {
	return LineItemDTO{
		ID:        li.ID,
		MemberID:  li.MemberID,
		ItemID:    li.ItemID,
		Name:      li.Name,
		UnitPrice: li.UnitPrice,
		Quantity:  li.Quantity,
		OrderedAt: li.OrderedAt,
	}
}

// TotalsDTO is the undiscounted running cost of a session.
type TotalsDTO struct {
	TimeCost        decimal.Decimal `json:"time_cost"`
	OrdersCost      decimal.Decimal `json:"orders_cost"`
	Total           decimal.Decimal `json:"total"`
	DurationMinutes int64           `json:"duration_minutes"`
}

// SessionDTO is the API representation of a session and its running totals.
type SessionDTO struct {
	ID          uuid.UUID     `json:"id"`
	SpaceID     uuid.UUID     `json:"space_id"`
	PricingMode string        `json:"pricing_mode"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	PromoCode   string        `json:"promo_code,omitempty"`
	Segments    []SegmentDTO  `json:"segments"`
	Members     []MemberDTO   `json:"members"`
	Items       []LineItemDTO `json:"items"`
	Totals      TotalsDTO     `json:"totals"`
	Version     int64         `json:"version"`
}

func toSessionDTO(s *session.Session, now time.Time) SessionDTO {
	snapshot := s.Snapshot()
	totals := billing.SessionTotal(snapshot, now)

	dto := SessionDTO{
		ID:          s.ID(),
		SpaceID:     s.SpaceID(),
		PricingMode: string(s.Mode()),
		Status:      string(s.Status()),
		StartedAt:   s.StartedAt(),
		EndedAt:     s.EndedAt(),
		PromoCode:   s.PromoCode(),
		Segments:    make([]SegmentDTO, 0, len(s.Segments())),
		Members:     make([]MemberDTO, 0, len(s.Members())),
		Items:       make([]LineItemDTO, 0, len(s.Items())),
		Totals: TotalsDTO{
			TimeCost:        totals.TimeCost,
			OrdersCost:      totals.OrdersCost,
			Total:           totals.Total,
			DurationMinutes: snapshot.DurationMinutes(now),
		},
		Version: s.Version(),
	}
	for _, seg := range s.Segments() {
		dto.Segments = append(dto.Segments, SegmentDTO{
			ID:            seg.ID,
			SpaceID:       seg.SpaceID,
			StartedAt:     seg.StartedAt,
			EndedAt:       seg.EndedAt,
			HourlyRate:    seg.HourlyRate,
			FirstHourRate: seg.FirstHourRate,
		})
	}
	for _, m := range s.Members() {
		dto.Members = append(dto.Members, toMemberDTO(m))
	}
	for _, li := range s.Items() {
		dto.Items = append(dto.Items, toLineItemDTO(li))
	}
	return dto
}

// PromoDTO is the API response representation of a promo code.
type PromoDTO struct {
	ID          uuid.UUID      `json:"id"`
	Code        string         `json:"code"`
	Status      string         `json:"status"`
	Kind        string         `json:"kind"`
	Discount    promo.Discount `json:"discount"`
	MaxUses     int            `json:"max_uses"`
	CurrentUses int            `json:"current_uses"`
	ValidFrom   time.Time      `json:"valid_from"`
	ValidUntil  time.Time      `json:"valid_until"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toPromoDTO(p *promo.PromoCode) *PromoDTO {
	return &PromoDTO{
		ID:          p.ID(),
		Code:        p.Code(),
		Status:      string(p.Status()),
		Kind:        string(p.Kind()),
		Discount:    p.Discount(),
		MaxUses:     p.MaxUses(),
		CurrentUses: p.CurrentUses(),
		ValidFrom:   p.ValidFrom(),
		ValidUntil:  p.ValidUntil(),
		CreatedAt:   p.CreatedAt(),
	}
}

// InvoiceDTO is the API response DTO for invoice data.
type InvoiceDTO struct {
	ID              uuid.UUID  `json:"id"`
	SessionID       uuid.UUID  `json:"session_id"`
	SpaceID         uuid.UUID  `json:"space_id"`
	Status          string     `json:"status"`
	PromoCode       string     `json:"promo_code,omitempty"`
	Bill            BillDTO    `json:"bill"`
	DurationMinutes int64      `json:"duration_minutes"`
	IssuedAt        time.Time  `json:"issued_at"`
	VoidedAt        *time.Time `json:"voided_at,omitempty"`
	VoidReason      string     `json:"void_reason,omitempty"`
	Version         int64      `json:"version"`
}

func toInvoiceDTO(inv *invoice.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:              inv.ID(),
		SessionID:       inv.SessionID(),
		SpaceID:         inv.SpaceID(),
		Status:          string(inv.Status()),
		PromoCode:       inv.PromoCode(),
		Bill:            toBillDTO(inv.Bill()),
		DurationMinutes: inv.DurationMinutes(),
		IssuedAt:        inv.IssuedAt(),
		VoidedAt:        inv.VoidedAt(),
		VoidReason:      inv.VoidReason(),
		Version:         inv.Version(),
	}
}
