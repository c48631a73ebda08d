// Package memory provides in-process repositories for demo deployments and
// tests. Aggregates are copied on the way in and out so callers observe the
// same isolation and version checks as with PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/venuedesk/service-billing/internal/domain/invoice"
	"github.com/venuedesk/service-billing/internal/domain/promo"
	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/domain/venue"
	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// SpaceRepository is an in-memory venue.SpaceRepository.
type SpaceRepository struct {
	mu     sync.RWMutex
	spaces map[uuid.UUID]*venue.Space
}

func NewSpaceRepository() *SpaceRepository {
	return &SpaceRepository{spaces: make(map[uuid.UUID]*venue.Space)}
}

func cloneSpace(s *venue.Space) *venue.Space {
	return venue.Reconstitute(s.ID(), s.Name(), s.Kind(), s.Mode(), s.HourlyRate(), s.FirstHourRate(), s.IsActive(), s.CreatedAt(), s.UpdatedAt())
}

func (r *SpaceRepository) FindByID(_ context.Context, id uuid.UUID) (*venue.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.spaces[id]
	if !ok {
		return nil, domain.NewNotFoundError("Space", id.String())
	}
	return cloneSpace(s), nil
}

func (r *SpaceRepository) List(_ context.Context, activeOnly bool) ([]*venue.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*venue.Space, 0, len(r.spaces))
	for _, s := range r.spaces {
		if activeOnly && !s.IsActive() {
			continue
		}
		out = append(out, cloneSpace(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (r *SpaceRepository) Save(_ context.Context, s *venue.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spaces[s.ID()]; ok {
		return domain.NewConflictError("Space " + s.ID().String() + " already exists")
	}
	r.spaces[s.ID()] = cloneSpace(s)
	return nil
}

func (r *SpaceRepository) Update(_ context.Context, s *venue.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spaces[s.ID()]; !ok {
		return domain.NewNotFoundError("Space", s.ID().String())
	}
	r.spaces[s.ID()] = cloneSpace(s)
	return nil
}

// SessionRepository is an in-memory session.SessionRepository.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[uuid.UUID]*session.Session)}
}

func cloneSession(s *session.Session) *session.Session {
	return session.Reconstitute(
		s.ID(), s.SpaceID(), s.Mode(), s.Status(),
		s.StartedAt(), s.EndedAt(), s.HourlyRate(), s.FirstHourRate(),
		s.Segments(), s.Members(), s.Items(),
		s.PromoCode(), s.OpenedBy(), s.Version(),
		s.CreatedAt(), s.UpdatedAt(),
	)
}

func (r *SessionRepository) FindByID(_ context.Context, id uuid.UUID) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("Session", id.String())
	}
	return cloneSession(s), nil
}

func (r *SessionRepository) ListOpen(_ context.Context) ([]*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*session.Session
	for _, s := range r.sessions {
		if s.Status() == session.StatusOpen {
			out = append(out, cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt().Before(out[j].StartedAt()) })
	return out, nil
}

func (r *SessionRepository) Save(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID()]; ok {
		return domain.NewConflictError("Session " + s.ID().String() + " already exists")
	}
	r.sessions[s.ID()] = cloneSession(s)
	return nil
}

func (r *SessionRepository) Update(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[s.ID()]
	if !ok || current.Version() != s.Version()-1 {
		return domain.NewConflictError("session was modified by another transaction")
	}
	r.sessions[s.ID()] = cloneSession(s)
	return nil
}

// PromoRepository is an in-memory promo.PromoRepository.
type PromoRepository struct {
	mu     sync.RWMutex
	promos map[uuid.UUID]*promo.PromoCode
	usages map[uuid.UUID]promo.PromoUsage
}

func NewPromoRepository() *PromoRepository {
	return &PromoRepository{
		promos: make(map[uuid.UUID]*promo.PromoCode),
		usages: make(map[uuid.UUID]promo.PromoUsage),
	}
}

func clonePromo(p *promo.PromoCode) *promo.PromoCode {
	return promo.Reconstruct(p.ID(), p.Code(), p.Status(), p.Discount(), p.MaxUses(), p.CurrentUses(),
		p.ValidFrom(), p.ValidUntil(), p.CreatedBy(), p.CreatedAt(), p.UpdatedAt())
}

func (r *PromoRepository) Save(_ context.Context, p *promo.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.promos {
		if existing.Code() == p.Code() {
			return domain.NewConflictError("PromoCode " + p.Code() + " already exists")
		}
	}
	r.promos[p.ID()] = clonePromo(p)
	return nil
}

func (r *PromoRepository) Update(_ context.Context, p *promo.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.promos[p.ID()]; !ok {
		return domain.NewNotFoundError("PromoCode", p.ID().String())
	}
	r.promos[p.ID()] = clonePromo(p)
	return nil
}

func (r *PromoRepository) FindByCode(_ context.Context, code string) (*promo.PromoCode, error) {
	code = promo.NormalizeCode(code)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.promos {
		if p.Code() == code {
			return clonePromo(p), nil
		}
	}
	return nil, domain.NewNotFoundError("PromoCode", code)
}

func (r *PromoRepository) FindByID(_ context.Context, id uuid.UUID) (*promo.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.promos[id]
	if !ok {
		return nil, domain.NewNotFoundError("PromoCode", id.String())
	}
	return clonePromo(p), nil
}

func (r *PromoRepository) FindActive(_ context.Context, now time.Time) ([]*promo.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*promo.PromoCode
	for _, p := range r.promos {
		if p.IsRedeemable(now) {
			out = append(out, clonePromo(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidUntil().Before(out[j].ValidUntil()) })
	return out, nil
}

func (r *PromoRepository) SaveUsage(_ context.Context, usage *promo.PromoUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usages {
		if u.SessionID == usage.SessionID {
			return domain.NewConflictError("PromoUsage " + usage.SessionID.String() + " already exists")
		}
	}
	r.usages[usage.ID] = *usage
	return nil
}

func (r *PromoRepository) DeleteUsage(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.usages, id)
	return nil
}

// Usages returns every recorded usage of a promo.
func (r *PromoRepository) Usages(promoID uuid.UUID) []promo.PromoUsage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []promo.PromoUsage
	for _, u := range r.usages {
		if u.PromoID == promoID {
			out = append(out, u)
		}
	}
	return out
}

// InvoiceRepository is an in-memory invoice.InvoiceRepository.
type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID]*invoice.Invoice
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{invoices: make(map[uuid.UUID]*invoice.Invoice)}
}

func cloneInvoice(i *invoice.Invoice) *invoice.Invoice {
	return invoice.Reconstitute(
		i.ID(), i.SessionID(), i.SpaceID(), i.Status(), i.PromoCode(),
		i.TimeCost(), i.OrdersCost(), i.OriginalTotal(), i.DiscountAmount(), i.FinalTotal(),
		i.Note(), i.DurationMinutes(), i.IssuedAt(), i.VoidedAt(), i.VoidReason(),
		i.Version(), i.CreatedAt(), i.UpdatedAt(),
	)
}

func (r *InvoiceRepository) FindByID(_ context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, domain.NewNotFoundError("Invoice", id.String())
	}
	return cloneInvoice(inv), nil
}

func (r *InvoiceRepository) FindBySessionID(_ context.Context, sessionID uuid.UUID) (*invoice.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *invoice.Invoice
	for _, inv := range r.invoices {
		if inv.SessionID() != sessionID {
			continue
		}
		if found == nil || betterInvoice(inv, found) {
			found = inv
		}
	}
	if found == nil {
		return nil, domain.NewNotFoundError("Invoice", sessionID.String())
	}
	return cloneInvoice(found), nil
}

// betterInvoice prefers issued over void, then the most recent.
func betterInvoice(a, b *invoice.Invoice) bool {
	aIssued, bIssued := a.Status() == invoice.StatusIssued, b.Status() == invoice.StatusIssued
	if aIssued != bIssued {
		return aIssued
	}
	return a.IssuedAt().After(b.IssuedAt())
}

func (r *InvoiceRepository) ListAll(_ context.Context, page, limit int) ([]*invoice.Invoice, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*invoice.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		all = append(all, inv)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].IssuedAt().After(all[j].IssuedAt()) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]*invoice.Invoice, 0, end-start)
	for _, inv := range all[start:end] {
		out = append(out, cloneInvoice(inv))
	}
	return out, total, nil
}

func (r *InvoiceRepository) GetStats(_ context.Context) (invoice.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := invoice.Stats{Revenue: decimal.Zero, Discounts: decimal.Zero, CountByStatus: make(map[string]int64)}
	for _, inv := range r.invoices {
		stats.CountByStatus[string(inv.Status())]++
		if inv.Status() == invoice.StatusIssued {
			stats.Revenue = stats.Revenue.Add(inv.FinalTotal())
			stats.Discounts = stats.Discounts.Add(inv.DiscountAmount())
		}
	}
	return stats, nil
}

func (r *InvoiceRepository) Save(_ context.Context, inv *invoice.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[inv.ID()]; ok {
		return domain.NewConflictError("Invoice " + inv.ID().String() + " already exists")
	}
	r.invoices[inv.ID()] = cloneInvoice(inv)
	return nil
}

func (r *InvoiceRepository) Update(_ context.Context, inv *invoice.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.invoices[inv.ID()]
	if !ok || current.Version() != inv.Version()-1 {
		return domain.NewConflictError("invoice was modified by another transaction")
	}
	r.invoices[inv.ID()] = cloneInvoice(inv)
	return nil
}
