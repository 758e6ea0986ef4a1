//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbathie/pos-sub001/internal/domain/cart"
	"github.com/mbathie/pos-sub001/internal/domain/checkout"
	"github.com/mbathie/pos-sub001/internal/domain/discount"
	storage "github.com/mbathie/pos-sub001/internal/storage/postgres"
)

func newCheckoutService() *checkout.Service {
	ledgerRepo := storage.NewLedgerRepository(pool)
	return checkout.NewService(
		storage.NewDiscountRepository(pool),
		storage.NewCustomerRepository(pool),
		ledgerRepo,
		ledgerRepo,
		dec("0.1"),
	)
}

func entryCart() cart.Cart {
	return cart.Cart{Items: []cart.LineItem{{
		ProductID:  "prod-entry",
		CategoryID: "cat-entries",
		Name:       "Casual Entry",
		Quantity:   1,
		Subtotal:   dec("15.00"),
	}}}
}

// Wednesday noon, chosen so every-day rules are always in window.
var quoteTime = time.Date(2025, time.June, 18, 12, 0, 0, 0, time.UTC)

func TestCheckout_QuoteThenCommit(t *testing.T) {
	ctx := context.Background()
	svc := newCheckoutService()

	d := percentDiscount("20")
	d.Code = "E2E" + txID()[3:11]
	d = createDiscount(t, d)
	cust := createCustomer(t, "Quoter", "50.00")

	res, err := svc.Quote(ctx, checkout.QuoteRequest{
		Cart:         entryCart(),
		CustomerID:   cust,
		DiscountCode: d.Code,
		CreditAmount: dec("5.00"),
		Now:          quoteTime,
	})
	require.NoError(t, err)
	require.Empty(t, res.DiscountError)

	// 15 - 20% = 12, minus 5 credit = 7; tax 0.70.
	assert.True(t, dec("7.00").Equal(res.Cart.Subtotal))
	assert.True(t, dec("0.70").Equal(res.Cart.Tax))
	assert.True(t, dec("7.70").Equal(res.Cart.Total))

	tx := txID()
	require.NoError(t, svc.Commit(ctx, checkout.CommitRequest{
		TransactionID: tx,
		Cart:          res.Cart,
		CustomerID:    cust,
	}))

	// Usage recorded, credit debited, debit visible in the history.
	ledgerRepo := storage.NewLedgerRepository(pool)
	uses, err := ledgerRepo.TotalUses(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, uses)

	got, err := storage.NewCustomerRepository(pool).GetByID(ctx, cust)
	require.NoError(t, err)
	assert.True(t, dec("45.00").Equal(got.Credits.Balance))
	require.Len(t, got.Credits.Debits, 1)
	assert.Equal(t, tx, got.Credits.Debits[0].TransactionID)
	assert.True(t, dec("5.00").Equal(got.Credits.Debits[0].Amount))
}

// After a committed use exhausts the per-customer limit, the next quote for
// the same customer degrades with the fixed reason string.
func TestCheckout_QuoteReflectsCommittedUsage(t *testing.T) {
	ctx := context.Background()
	svc := newCheckoutService()

	d := percentDiscount("10")
	d.Limits.PerCustomer = 1
	d = createDiscount(t, d)
	cust := createCustomer(t, "Repeat", "0")

	res, err := svc.Quote(ctx, checkout.QuoteRequest{
		Cart:       entryCart(),
		CustomerID: cust,
		DiscountID: d.ID,
		Now:        quoteTime,
	})
	require.NoError(t, err)
	require.Empty(t, res.DiscountError)

	require.NoError(t, svc.Commit(ctx, checkout.CommitRequest{
		TransactionID: txID(),
		Cart:          res.Cart,
		CustomerID:    cust,
	}))

	res, err = svc.Quote(ctx, checkout.QuoteRequest{
		Cart:       entryCart(),
		CustomerID: cust,
		DiscountID: d.ID,
		Now:        quoteTime,
	})
	require.NoError(t, err)
	assert.Equal(t, discount.ReasonAlreadyUsed, res.DiscountError)
	assert.True(t, dec("15.00").Equal(res.Cart.Subtotal))
}

func TestDiscountRepository_Roundtrip(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewDiscountRepository(pool)

	start := quoteTime.Add(-time.Hour).Truncate(time.Second)
	d := percentDiscount("25")
	d.Code = "RT" + txID()[3:11]
	d.Description = "Roundtrip rule"
	d.Musts = discount.Scope{Categories: []string{"cat-entries"}}
	d.Adjustments[0].Scope = discount.Scope{Categories: []string{"cat-entries"}}
	d.Adjustments[0].MaxAmount = dec("10.00")
	d.Limits = discount.Limits{
		UsageLimit:  50,
		PerCustomer: 2,
		Frequency:   &discount.Frequency{Count: 1, Period: discount.PeriodWeek},
	}
	d.DaysOfWeek = [7]bool{true, true, true, true, true, false, false}
	d.StartsAt = &start
	d.RequireCustomer = true
	d = createDiscount(t, d)

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)

	assert.Equal(t, d.Name, got.Name)
	assert.Equal(t, d.Code, got.Code)
	assert.Equal(t, d.Musts, got.Musts)
	require.Len(t, got.Adjustments, 1)
	assert.True(t, d.Adjustments[0].Value.Equal(got.Adjustments[0].Value))
	assert.True(t, d.Adjustments[0].MaxAmount.Equal(got.Adjustments[0].MaxAmount))
	assert.Equal(t, d.Limits.UsageLimit, got.Limits.UsageLimit)
	require.NotNil(t, got.Limits.Frequency)
	assert.Equal(t, discount.PeriodWeek, got.Limits.Frequency.Period)
	assert.Equal(t, d.DaysOfWeek, got.DaysOfWeek)
	assert.True(t, got.RequireCustomer)
	require.NotNil(t, got.StartsAt)
	assert.True(t, start.Equal(*got.StartsAt))
}

func TestDiscountRepository_FindByCodeCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewDiscountRepository(pool)

	d := percentDiscount("5")
	d.Code = "CaSe" + txID()[3:9]
	d = createDiscount(t, d)

	got, err := repo.FindByCode(ctx, d.Code)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	got, err = repo.FindByCode(ctx, strings.ToUpper(d.Code))
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	_, err = repo.FindByCode(ctx, "NO-SUCH-CODE")
	require.ErrorIs(t, err, discount.ErrNotFound)
}

func TestDiscountRepository_Archive(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewDiscountRepository(pool)
	svc := newCheckoutService()

	d := createDiscount(t, percentDiscount("10"))
	require.NoError(t, repo.Archive(ctx, d.ID, time.Now().UTC()))

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived())

	// Archived rules quote as ineligible, not as lookup failures.
	res, err := svc.Quote(ctx, checkout.QuoteRequest{
		Cart:       entryCart(),
		DiscountID: d.ID,
		Now:        quoteTime,
	})
	require.NoError(t, err)
	assert.Equal(t, discount.ReasonArchived, res.DiscountError)
}
