package cart

import (
	"github.com/shopspring/decimal"
)

// PricingPolicy configures order totals. When FlatDiscountPercent is
// positive the discount is that percentage of the original total instead
// of the per-line markdowns.
type PricingPolicy struct {
	PlatformFee         decimal.Decimal
	FlatDiscountPercent decimal.Decimal
}

// Totals is the pricing breakdown over the selected lines of a cart.
type Totals struct {
	TotalOriginal   decimal.Decimal  `json:"totalOriginal"`
	TotalDiscounted decimal.Decimal  `json:"totalDiscounted"`
	Discount        decimal.Decimal  `json:"discount"`
	PlatformFee     decimal.Decimal  `json:"platformFee"`
	GrandTotal      decimal.Decimal  `json:"grandTotal"`
	ServerTotal     *decimal.Decimal `json:"serverTotal,omitempty"`
	SelectedCount   int              `json:"selectedCount"`
}

// ComputeTotals prices the selected lines. Deselected lines contribute
// nothing. A server-computed total, when present and at least one line is
// selected, is preferred over the locally recomputed discounted total as
// the grand-total base.
func ComputeTotals(lines []Line, serverTotal *decimal.Decimal, policy PricingPolicy) Totals {
	var t Totals
	for _, line := range lines {
		if !line.Selected {
			continue
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		t.TotalOriginal = t.TotalOriginal.Add(line.Price.Mul(qty))
		t.TotalDiscounted = t.TotalDiscounted.Add(line.EffectivePrice().Mul(qty))
		t.SelectedCount++
	}

	if policy.FlatDiscountPercent.IsPositive() {
		t.Discount = t.TotalOriginal.Mul(policy.FlatDiscountPercent).Div(decimal.NewFromInt(100))
	} else {
		t.Discount = t.TotalOriginal.Sub(t.TotalDiscounted)
	}

	if t.SelectedCount > 0 {
		t.PlatformFee = policy.PlatformFee
	}

	base := t.TotalDiscounted
	if serverTotal != nil && t.SelectedCount > 0 {
		base = *serverTotal
		t.ServerTotal = serverTotal
	}
	t.GrandTotal = base.Sub(t.Discount).Add(t.PlatformFee)
	return t
}
