// Package pricing holds the storefront money rules shared by the cart engine
// and order finalization.
package pricing

import "github.com/shopspring/decimal"

var (
	TaxRate               = decimal.RequireFromString("0.10")
	FreeShippingThreshold = decimal.NewFromInt(100)
	FlatShippingFee       = decimal.NewFromInt(10)
)

// Line is one priced quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the derived breakdown of a set of lines.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Tax is 10% of subtotal rounded half away from zero to cents.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(2)
}

// Shipping is free strictly above the threshold, flat otherwise.
// An empty cart is charged the flat fee too.
func Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShippingFee
}

func Compute(lines []Line) Totals {
	sub := Subtotal(lines)
	tax := Tax(sub)
	ship := Shipping(sub)
	return Totals{
		Subtotal: sub,
		Tax:      tax,
		Shipping: ship,
		Total:    sub.Add(tax).Add(ship),
	}
}

// Matches reports whether client-supplied totals equal the computed ones.
// Zero-valued client figures are treated as absent.
func (t Totals) Matches(client Totals) bool {
	pairs := [][2]decimal.Decimal{
		{t.Subtotal, client.Subtotal},
		{t.Tax, client.Tax},
		{t.Shipping, client.Shipping},
		{t.Total, client.Total},
	}
	for _, p := range pairs {
		if p[1].IsZero() {
			continue
		}
		if !p[0].Equal(p[1]) {
			return false
		}
	}
	return true
}
