package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/mbathie/pos-sub001/internal/domain/cart"
	"github.com/mbathie/pos-sub001/internal/domain/customer"
)

// ApplyCredit applies store credit against the post-discount subtotal and
// recomputes totals. The effective amount is bounded by the requested
// amount, the customer's balance, and the amount still owing, so a fully
// credited cart lands on exactly zero. The stored balance is not touched
// here; the debit happens at commit.
func ApplyCredit(c *cart.Cart, cust *customer.Customer, requested, taxRate decimal.Decimal) decimal.Decimal {
	owing := c.GrossSubtotal().
		Sub(c.Adjustments.Discounts.Total).
		Add(c.Adjustments.Surcharges.Total)
	if owing.IsNegative() {
		owing = decimal.Zero
	}

	effective := decimal.Min(requested, cust.Credits.Balance, owing)
	if effective.IsNegative() {
		effective = decimal.Zero
	}
	effective = effective.Round(2)

	c.Adjustments.Credits = cart.Credits{CustomerID: cust.ID, Amount: effective}
	c.Recalculate(taxRate)
	return effective
}
