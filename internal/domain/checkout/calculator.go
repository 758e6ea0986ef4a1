package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/mbathie/pos-sub001/internal/domain/cart"
	"github.com/mbathie/pos-sub001/internal/domain/discount"
)

var hundred = decimal.NewFromInt(100)

// ApplyAdjustments applies an eligible rule's adjustment entries to the cart
// in list order and recomputes totals. The cart is modified in place; the
// ledger is untouched. Discounts from rules applied earlier reduce the base
// later percentages are computed on, so stacking is sequential rather than
// simultaneous.
func ApplyAdjustments(c *cart.Cart, d *discount.Discount, taxRate decimal.Decimal) {
	items := matcherItems(c)
	total := decimal.Zero

	for _, adj := range d.Adjustments {
		for _, idx := range discount.MatchScope(adj.Scope, items) {
			li := &c.Items[idx]

			amount := rawAmount(adj, li)
			if adj.MaxAmount.IsPositive() && amount.GreaterThan(adj.MaxAmount) {
				amount = adj.MaxAmount
			}
			if d.Mode == discount.ModeDiscount {
				// A discount can never drive the item below zero.
				if net := li.ItemNet(); amount.GreaterThan(net) {
					amount = net
				}
			}
			if !amount.IsPositive() {
				continue
			}
			amount = amount.Round(2)

			applied := cart.Applied{DiscountID: d.ID, Name: d.Name, Amount: amount}
			if d.Mode == discount.ModeSurcharge {
				li.Adjustments.Surcharges.Add(applied)
			} else {
				li.Adjustments.Discounts.Add(applied)
			}
			total = total.Add(amount)
		}
	}

	if total.IsPositive() {
		applied := cart.Applied{DiscountID: d.ID, Name: d.Name, Amount: total}
		if d.Mode == discount.ModeSurcharge {
			c.Adjustments.Surcharges.Add(applied)
		} else {
			c.Adjustments.Discounts.Add(applied)
		}
	}

	c.Recalculate(taxRate)
}

// rawAmount computes the unclamped adjustment for one line item. Percentages
// apply to the item's remaining subtotal so stacked rules compound
// sequentially; fixed amounts apply per matched item.
func rawAmount(adj discount.Adjustment, li *cart.LineItem) decimal.Decimal {
	if adj.Type == discount.AdjustPercent {
		return li.ItemNet().Mul(adj.Value).Div(hundred)
	}
	return adj.Value
}

// matcherItems projects cart lines onto the matcher's scope keys.
func matcherItems(c *cart.Cart) []discount.Item {
	items := make([]discount.Item, len(c.Items))
	for i, li := range c.Items {
		items[i] = discount.Item{ProductID: li.ProductID, CategoryID: li.CategoryID}
	}
	return items
}
