package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/venuedesk/service-billing/internal/domain/promo"
)

var hundred = decimal.NewFromInt(100)

// Bill is the derived amount owed for a session.
type Bill struct {
	TimeCost       decimal.Decimal
	OrdersCost     decimal.Decimal
	OriginalTotal  decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalTotal     decimal.Decimal
	Note           string
}

func newBill(timeCost, ordersCost, discount decimal.Decimal, note string) Bill {
	original := timeCost.Add(ordersCost)
	return Bill{
		TimeCost:       timeCost,
		OrdersCost:     ordersCost,
		OriginalTotal:  original,
		DiscountAmount: discount,
		FinalTotal:     original.Sub(discount),
		Note:           note,
	}
}

// ApplyPromo applies at most one promo code to the aggregate totals.
//
// A nil or non-active code leaves the total unchanged; the validity window is
// the caller's concern. Item discounts are not applied here because they need
// the individual line items (see ApplyItemDiscount). Only the fixed variant is
// clamped to the eligible amount; the others trust their configuration.
func ApplyPromo(timeCost, ordersCost, durationHours decimal.Decimal, p *promo.PromoCode) Bill {
	if p == nil || !p.IsActive() {
		return newBill(timeCost, ordersCost, decimal.Zero, "")
	}

	switch d := p.Discount().(type) {
	case promo.Percentage:
		applicable := applicableAmount(d.AppliesTo, timeCost, ordersCost)
		discount := applicable.Mul(d.Value).Div(hundred)
		return newBill(timeCost, ordersCost, discount, fmt.Sprintf("discount of %s%%", d.Value))

	case promo.Fixed:
		maxDiscountable := applicableAmount(d.AppliesTo, timeCost, ordersCost)
		discount := decimal.Min(d.Value, maxDiscountable)
		return newBill(timeCost, ordersCost, discount, fmt.Sprintf("discount of %s currency units", d.Value))

	case promo.RecurringOffer:
		discount := recurringOfferDiscount(timeCost, durationHours, d)
		return newBill(timeCost, ordersCost, discount, fmt.Sprintf("offer: pay %s get %s", d.PayHours, d.FreeHours))

	default:
		return newBill(timeCost, ordersCost, decimal.Zero, "")
	}
}

func applicableAmount(appliesTo []promo.Target, timeCost, ordersCost decimal.Decimal) decimal.Decimal {
	amount := decimal.Zero
	if promo.Covers(appliesTo, promo.TargetTime) {
		amount = amount.Add(timeCost)
	}
	if promo.Covers(appliesTo, promo.TargetOrders) {
		amount = amount.Add(ordersCost)
	}
	return amount
}

// recurringOfferDiscount grants FreeHours for every PayHours across the
// duration. A trailing partial cycle bills up to PayHours and gives the rest
// free. The time cost is assumed to be spread evenly over the duration.
func recurringOfferDiscount(timeCost, durationHours decimal.Decimal, offer promo.RecurringOffer) decimal.Decimal {
	cycle := offer.PayHours.Add(offer.FreeHours)
	if durationHours.IsZero() || !cycle.IsPositive() {
		return decimal.Zero
	}

	fullCycles := durationHours.Div(cycle).Floor()
	remainderHours := durationHours.Mod(cycle)
	billableHours := fullCycles.Mul(offer.PayHours).Add(decimal.Min(remainderHours, offer.PayHours))

	// timeCost * billable / duration == billable * hourlyRate, without the
	// intermediate rounding of hourlyRate.
	numerator := timeCost.Mul(billableHours)
	billableCost := numerator.Div(durationHours)
	if !billableCost.Mul(durationHours).Equal(numerator) {
		// Div stopped at DivisionPrecision; settle on whole cents instead.
		return floorCents(timeCost.Sub(billableCost))
	}
	return timeCost.Sub(billableCost)
}

// ApplyItemDiscount applies an item discount by walking the line items and
// matching each against the configured target items. Any other kind, or a
// non-active code, yields no discount.
func ApplyItemDiscount(timeCost, ordersCost decimal.Decimal, items []LineItem, p *promo.PromoCode) Bill {
	if p == nil || !p.IsActive() {
		return newBill(timeCost, ordersCost, decimal.Zero, "")
	}
	d, ok := p.Discount().(promo.ItemDiscount)
	if !ok {
		return newBill(timeCost, ordersCost, decimal.Zero, "")
	}

	discount := decimal.Zero
	matched := 0
	for _, li := range items {
		if !d.Targets(li.ItemID) {
			continue
		}
		matched++
		discount = discount.Add(itemLineDiscount(li, d))
	}

	note := ""
	if matched > 0 {
		note = fmt.Sprintf("item discount on %d line(s)", matched)
	}
	return newBill(timeCost, ordersCost, floorCents(discount), note)
}

func itemLineDiscount(li LineItem, d promo.ItemDiscount) decimal.Decimal {
	qty := decimal.NewFromInt(li.Quantity)
	switch d.Mode {
	case promo.ItemModeFree:
		return li.Total()
	case promo.ItemModeAmount:
		return decimal.Min(d.Value, li.UnitPrice).Mul(qty)
	case promo.ItemModePercentage:
		return li.Total().Mul(d.Value).Div(hundred)
	default:
		return decimal.Zero
	}
}

// Quote bills a session at now with an optional promo code, routing item
// discounts through the line-item path.
func Quote(s Session, now time.Time, p *promo.PromoCode) Bill {
	totals := SessionTotal(s, now)
	if p != nil && p.Kind() == promo.KindItemDiscount {
		return ApplyItemDiscount(totals.TimeCost, totals.OrdersCost, s.LineItems(), p)
	}
	return ApplyPromo(totals.TimeCost, totals.OrdersCost, s.DurationHours(now), p)
}

// floorCents truncates a discount to whole cents, towards the venue.
func floorCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(2)
}
