// Package cart holds the ephemeral cart snapshot the adjustment engine
// operates on. A cart is caller-owned value data: the engine copies and
// recomputes it, it never persists one.
package cart

import (
	"github.com/shopspring/decimal"
)

// LineItem is one cart line. Subtotal is the pre-adjustment line amount
// (unit price times quantity); Tax and Total are derived on recompute.
type LineItem struct {
	ProductID  string
	CategoryID string
	Name       string
	Quantity   int
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal

	Adjustments ItemAdjustments
}

// ItemAdjustments accumulates the discounts and surcharges applied to a
// single line item.
type ItemAdjustments struct {
	Discounts  AdjustmentSet
	Surcharges AdjustmentSet
}

// AdjustmentSet is an ordered list of applied adjustments with a running sum.
type AdjustmentSet struct {
	Items []Applied
	Total decimal.Decimal
}

// Applied is one adjustment amount attributed to a discount rule.
type Applied struct {
	DiscountID string
	Name       string
	Amount     decimal.Decimal
}

// Add appends an applied adjustment and updates the running total.
func (s *AdjustmentSet) Add(a Applied) {
	s.Items = append(s.Items, a)
	s.Total = s.Total.Add(a.Amount)
}

// Credits records store credit applied at cart level.
type Credits struct {
	CustomerID string
	Amount     decimal.Decimal
}

// Adjustments aggregates all cart-level adjustment totals.
type Adjustments struct {
	Discounts  AdjustmentSet
	Surcharges AdjustmentSet
	Credits    Credits
}

// Cart is the full cart snapshot. Subtotal, Tax and Total always reflect the
// state after adjustments; call Recalculate after mutating adjustments.
type Cart struct {
	Items    []LineItem
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal

	Adjustments Adjustments
}

// ItemNet returns the line item's subtotal remaining after the discounts
// accumulated on it so far, floored at zero. Surcharges do not restore
// discountable headroom.
func (li *LineItem) ItemNet() decimal.Decimal {
	net := li.Subtotal.Sub(li.Adjustments.Discounts.Total)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// GrossSubtotal returns the sum of line subtotals before any adjustments.
func (c *Cart) GrossSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range c.Items {
		sum = sum.Add(c.Items[i].Subtotal)
	}
	return sum
}

// Recalculate rederives per-item and cart-level subtotal, tax and total from
// the accumulated adjustments. taxRate is a fraction (0.10 for 10% GST).
// Tax is always computed on the post-adjustment subtotal, so a cart fully
// paid by credit carries exactly zero tax. Amounts are rounded to cents at
// this boundary only.
func (c *Cart) Recalculate(taxRate decimal.Decimal) {
	for i := range c.Items {
		li := &c.Items[i]
		net := li.ItemNet().Add(li.Adjustments.Surcharges.Total)
		if net.IsNegative() {
			net = decimal.Zero
		}
		li.Tax = net.Mul(taxRate).Round(2)
		li.Total = net.Add(li.Tax).Round(2)
	}

	subtotal := c.GrossSubtotal().
		Sub(c.Adjustments.Discounts.Total).
		Add(c.Adjustments.Surcharges.Total).
		Sub(c.Adjustments.Credits.Amount)
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}

	c.Subtotal = subtotal.Round(2)
	c.Tax = subtotal.Mul(taxRate).Round(2)
	c.Total = c.Subtotal.Add(c.Tax)
}
