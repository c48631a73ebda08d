package promo

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Kind names a discount variant.
type Kind string

const (
	KindPercentage     Kind = "percentage"
	KindFixed          Kind = "fixed"
	KindRecurringOffer Kind = "recurring_offer"
	KindItemDiscount   Kind = "item_discount"
)

// Target is a bill component a percentage or fixed discount may cover.
type Target string

const (
	TargetTime   Target = "time"
	TargetOrders Target = "orders"
)

// ItemMode selects how an item discount reduces a matched line.
type ItemMode string

const (
	ItemModeFree       ItemMode = "free"
	ItemModeAmount     ItemMode = "amount"
	ItemModePercentage ItemMode = "percentage"
)

// Discount is the configuration payload of a promo code. Exactly one
// variant exists per code; the set of variants is closed.
type Discount interface {
	Kind() Kind
	validate() error
}

// Percentage takes Value percent off the covered components.
type Percentage struct {
	Value     decimal.Decimal `json:"value"`
	AppliesTo []Target        `json:"applies_to"`
}

// Fixed takes Value currency units off the covered components.
type Fixed struct {
	Value     decimal.Decimal `json:"value"`
	AppliesTo []Target        `json:"applies_to"`
}

// RecurringOffer is "pay PayHours, get FreeHours free", repeated over the session.
type RecurringOffer struct {
	PayHours  decimal.Decimal `json:"pay_hours"`
	FreeHours decimal.Decimal `json:"free_hours"`
}

// ItemDiscount reduces specific catalogue items.
type ItemDiscount struct {
	TargetItems []string        `json:"target_items"`
	Mode        ItemMode        `json:"mode"`
	Value       decimal.Decimal `json:"value"`
}

func (Percentage) Kind() Kind     { return KindPercentage }
func (Fixed) Kind() Kind          { return KindFixed }
func (RecurringOffer) Kind() Kind { return KindRecurringOffer }
func (ItemDiscount) Kind() Kind   { return KindItemDiscount }

// Covers reports whether target is in the configured set.
func Covers(appliesTo []Target, target Target) bool {
	return slices.Contains(appliesTo, target)
}

// Targets reports whether the item discount applies to itemID.
func (d ItemDiscount) Targets(itemID string) bool {
	return slices.Contains(d.TargetItems, itemID)
}

var hundred = decimal.NewFromInt(100)

func validateTargets(appliesTo []Target) error {
	if len(appliesTo) == 0 {
		return fmt.Errorf("applies_to must name at least one of time, orders")
	}
	for _, t := range appliesTo {
		if t != TargetTime && t != TargetOrders {
			return fmt.Errorf("unknown applies_to target: %s", t)
		}
	}
	return nil
}

func (d Percentage) validate() error {
	if !d.Value.IsPositive() || d.Value.GreaterThan(hundred) {
		return fmt.Errorf("percentage must be in (0, 100], got %s", d.Value)
	}
	return validateTargets(d.AppliesTo)
}

func (d Fixed) validate() error {
	if !d.Value.IsPositive() {
		return fmt.Errorf("fixed discount must be positive, got %s", d.Value)
	}
	return validateTargets(d.AppliesTo)
}

func (d RecurringOffer) validate() error {
	if !d.PayHours.IsPositive() || !d.FreeHours.IsPositive() {
		return fmt.Errorf("pay_hours and free_hours must be positive")
	}
	return nil
}

func (d ItemDiscount) validate() error {
	if len(d.TargetItems) == 0 {
		return fmt.Errorf("target_items is required")
	}
	switch d.Mode {
	case ItemModeFree:
		return nil
	case ItemModeAmount:
		if !d.Value.IsPositive() {
			return fmt.Errorf("amount must be positive")
		}
	case ItemModePercentage:
		if !d.Value.IsPositive() || d.Value.GreaterThan(hundred) {
			return fmt.Errorf("percentage must be in (0, 100], got %s", d.Value)
		}
	default:
		return fmt.Errorf("invalid item discount mode: %s", d.Mode)
	}
	return nil
}

// MarshalDiscount encodes the payload of d.
func MarshalDiscount(d Discount) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("discount is required")
	}
	return json.Marshal(d)
}

// UnmarshalDiscount decodes a payload for the given kind.
func UnmarshalDiscount(kind Kind, raw []byte) (Discount, error) {
	var (
		d   Discount
		err error
	)
	switch kind {
	case KindPercentage:
		var v Percentage
		err = json.Unmarshal(raw, &v)
		d = v
	case KindFixed:
		var v Fixed
		err = json.Unmarshal(raw, &v)
		d = v
	case KindRecurringOffer:
		var v RecurringOffer
		err = json.Unmarshal(raw, &v)
		d = v
	case KindItemDiscount:
		var v ItemDiscount
		err = json.Unmarshal(raw, &v)
		d = v
	default:
		return nil, fmt.Errorf("invalid discount kind: %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return d, nil
}
