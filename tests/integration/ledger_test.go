//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbathie/pos-sub001/internal/domain/discount"
	"github.com/mbathie/pos-sub001/internal/domain/ledger"
	storage "github.com/mbathie/pos-sub001/internal/storage/postgres"
)

func percentDiscount(percent string) *discount.Discount {
	return &discount.Discount{
		Name: "Test discount",
		Mode: discount.ModeDiscount,
		Adjustments: []discount.Adjustment{{
			Type:  discount.AdjustPercent,
			Value: dec(percent),
		}},
	}
}

func TestRecord_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewLedgerRepository(pool)
	d := createDiscount(t, percentDiscount("10"))
	cust := createCustomer(t, "Idempotent", "20.00")

	commit := ledger.Commit{
		TransactionID: txID(),
		CustomerID:    cust,
		DiscountIDs:   []string{d.ID},
		Credit:        dec("5.00"),
		UsedAt:        time.Now().UTC(),
	}

	require.NoError(t, repo.Record(ctx, commit))
	// Same transaction again: no new rows, no second debit.
	require.NoError(t, repo.Record(ctx, commit))

	uses, err := repo.TotalUses(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, uses)

	var balance string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT credit_balance::text FROM customers WHERE id = $1`, cust).Scan(&balance))
	assert.Equal(t, "15.00", balance)
}

func TestRecord_UsageLimitConflict(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewLedgerRepository(pool)

	d := percentDiscount("10")
	d.Limits.UsageLimit = 1
	d = createDiscount(t, d)

	first := ledger.Commit{TransactionID: txID(), DiscountIDs: []string{d.ID}, UsedAt: time.Now().UTC()}
	require.NoError(t, repo.Record(ctx, first))

	second := ledger.Commit{TransactionID: txID(), DiscountIDs: []string{d.ID}, UsedAt: time.Now().UTC()}
	err := repo.Record(ctx, second)
	require.ErrorIs(t, err, ledger.ErrConflict)

	uses, err := repo.TotalUses(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, uses)
}

func TestRecord_PerCustomerLimit(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewLedgerRepository(pool)

	d := percentDiscount("10")
	d.Limits.PerCustomer = 1
	d = createDiscount(t, d)

	alice := createCustomer(t, "Alice", "0")
	bob := createCustomer(t, "Bob", "0")

	require.NoError(t, repo.Record(ctx, ledger.Commit{
		TransactionID: txID(), CustomerID: alice, DiscountIDs: []string{d.ID}, UsedAt: time.Now().UTC(),
	}))

	// Alice again: blocked. Bob: fine.
	err := repo.Record(ctx, ledger.Commit{
		TransactionID: txID(), CustomerID: alice, DiscountIDs: []string{d.ID}, UsedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, ledger.ErrConflict)

	require.NoError(t, repo.Record(ctx, ledger.Commit{
		TransactionID: txID(), CustomerID: bob, DiscountIDs: []string{d.ID}, UsedAt: time.Now().UTC(),
	}))
}

func TestRecord_FrequencyWindow(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewLedgerRepository(pool)

	d := percentDiscount("10")
	d.Limits.Frequency = &discount.Frequency{Count: 1, Period: discount.PeriodDay}
	d = createDiscount(t, d)

	noon := time.Date(2025, time.June, 18, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, ledger.Commit{
		TransactionID: txID(), DiscountIDs: []string{d.ID}, UsedAt: noon,
	}))

	// Same calendar day: exhausted.
	err := repo.Record(ctx, ledger.Commit{
		TransactionID: txID(), DiscountIDs: []string{d.ID}, UsedAt: noon.Add(2 * time.Hour),
	})
	require.ErrorIs(t, err, ledger.ErrConflict)

	// Next day: the window reset at midnight.
	require.NoError(t, repo.Record(ctx, ledger.Commit{
		TransactionID: txID(), DiscountIDs: []string{d.ID}, UsedAt: noon.AddDate(0, 0, 1),
	}))
}

func TestRecord_UnknownDiscount(t *testing.T) {
	repo := storage.NewLedgerRepository(pool)

	err := repo.Record(context.Background(), ledger.Commit{
		TransactionID: txID(), DiscountIDs: []string{"disc-missing"}, UsedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, discount.ErrNotFound)
}

func TestRecord_InsufficientCredit(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewLedgerRepository(pool)
	cust := createCustomer(t, "Broke", "3.00")

	err := repo.Record(ctx, ledger.Commit{
		TransactionID: txID(),
		CustomerID:    cust,
		Credit:        dec("5.00"),
		UsedAt:        time.Now().UTC(),
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientCredit)

	// Balance untouched.
	var balance string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT credit_balance::text FROM customers WHERE id = $1`, cust).Scan(&balance))
	assert.Equal(t, "3.00", balance)
}

// Two commits racing for the last slot of a limited discount: exactly one
// wins, the loser sees ErrConflict.
func TestRecord_ConcurrentLastSlot(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewLedgerRepository(pool)

	d := percentDiscount("10")
	d.Limits.UsageLimit = 1
	d = createDiscount(t, d)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = repo.Record(ctx, ledger.Commit{
				TransactionID: txID(), DiscountIDs: []string{d.ID}, UsedAt: time.Now().UTC(),
			})
		}()
	}
	wg.Wait()

	var conflicts, oks int
	for _, err := range errs {
		switch {
		case err == nil:
			oks++
		case errors.Is(err, ledger.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, oks)
	assert.Equal(t, 1, conflicts)

	uses, err := repo.TotalUses(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, uses)
}

// Concurrent debits against one balance never push it negative.
func TestRecord_ConcurrentCreditDebits(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewLedgerRepository(pool)
	cust := createCustomer(t, "Racer", "10.00")

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = repo.Record(ctx, ledger.Commit{
				TransactionID: txID(),
				CustomerID:    cust,
				Credit:        dec("6.00"),
				UsedAt:        time.Now().UTC(),
			})
		}()
	}
	wg.Wait()

	var oks int
	for _, err := range errs {
		if err == nil {
			oks++
		} else {
			require.ErrorIs(t, err, ledger.ErrInsufficientCredit)
		}
	}
	assert.Equal(t, 1, oks)

	var balance string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT credit_balance::text FROM customers WHERE id = $1`, cust).Scan(&balance))
	assert.Equal(t, "4.00", balance)
}
