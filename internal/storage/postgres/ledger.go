package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbathie/pos-sub001/internal/domain/discount"
	"github.com/mbathie/pos-sub001/internal/domain/ledger"
)

const (
	totalUsesSQL    = `SELECT COUNT(*) FROM usage_records WHERE discount_id = $1`
	customerUsesSQL = `SELECT COUNT(*) FROM usage_records WHERE discount_id = $1 AND customer_id = $2`
	usesSinceSQL    = `SELECT COUNT(*) FROM usage_records WHERE discount_id = $1 AND used_at >= $2`

	lockDiscountSQL = `SELECT usage_limit, per_customer_limit, frequency_count, frequency_period
		FROM discounts WHERE id = $1 FOR UPDATE`

	usageExistsSQL = `SELECT EXISTS (
		SELECT 1 FROM usage_records WHERE discount_id = $1 AND transaction_id = $2)`

	insertUsageSQL = `INSERT INTO usage_records (discount_id, customer_id, transaction_id, used_at)
		VALUES ($1, $2, $3, $4)`

	debitExistsSQL = `SELECT EXISTS (
		SELECT 1 FROM credit_debits WHERE customer_id = $1 AND transaction_id = $2)`

	debitBalanceSQL = `UPDATE customers SET credit_balance = credit_balance - $2
		WHERE id = $1 AND credit_balance >= $2`

	insertDebitSQL = `INSERT INTO credit_debits (customer_id, transaction_id, amount, created_at)
		VALUES ($1, $2, $3, $4)`
)

var (
	_ ledger.View     = (*LedgerRepository)(nil)
	_ ledger.Recorder = (*LedgerRepository)(nil)
)

// LedgerRepository implements the usage ledger's read view and its atomic
// commit against PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a LedgerRepository that uses the given pool.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// TotalUses counts committed usage records for the discount.
func (r *LedgerRepository) TotalUses(ctx context.Context, discountID string) (int, error) {
	return r.count(ctx, totalUsesSQL, discountID)
}

// CustomerUses counts committed usage records for (discount, customer).
func (r *LedgerRepository) CustomerUses(ctx context.Context, discountID, customerID string) (int, error) {
	return r.count(ctx, customerUsesSQL, discountID, customerID)
}

// UsesSince counts committed usage records at or after since.
func (r *LedgerRepository) UsesSince(ctx context.Context, discountID string, since time.Time) (int, error) {
	return r.count(ctx, usesSinceSQL, discountID, since)
}

func (r *LedgerRepository) count(ctx context.Context, sql string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting usage records: %w", err)
	}
	return n, nil
}

// Record applies the commit in a single transaction. For every discount it
// locks the rule row, re-validates the usage limits against committed rows,
// and inserts the usage record; the store-credit debit is a conditional
// decrement guarded by the balance floor. Rows already present for the
// transaction ID are skipped, which makes retries of the same transaction
// no-ops.
//
// The quote-time eligibility check is advisory only; this re-check is the
// authoritative gate that closes the race between concurrent checkouts.
func (r *LedgerRepository) Record(ctx context.Context, c ledger.Commit) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning commit transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, discountID := range c.DiscountIDs {
		if err := r.recordUsage(ctx, tx, discountID, c); err != nil {
			return err
		}
	}

	if c.Credit.IsPositive() && c.CustomerID != "" {
		if err := r.debitCredit(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction %q: %w", c.TransactionID, err)
	}
	return nil
}

func (r *LedgerRepository) recordUsage(ctx context.Context, tx pgx.Tx, discountID string, c ledger.Commit) error {
	// Lock the rule row so concurrent commits for the same discount
	// serialize on the limit re-check.
	var (
		usageLimit  int
		perCustomer int
		freqCount   *int
		freqPeriod  *string
	)
	err := tx.QueryRow(ctx, lockDiscountSQL, discountID).
		Scan(&usageLimit, &perCustomer, &freqCount, &freqPeriod)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return discount.ErrNotFound
		}
		return fmt.Errorf("locking discount %q: %w", discountID, err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, usageExistsSQL, discountID, c.TransactionID).Scan(&exists); err != nil {
		return fmt.Errorf("checking usage for %q: %w", c.TransactionID, err)
	}
	if exists {
		return nil
	}

	if usageLimit > 0 {
		n, err := txCount(ctx, tx, totalUsesSQL, discountID)
		if err != nil {
			return err
		}
		if n >= usageLimit {
			return ledger.ErrConflict
		}
	}
	if perCustomer > 0 && c.CustomerID != "" {
		n, err := txCount(ctx, tx, customerUsesSQL, discountID, c.CustomerID)
		if err != nil {
			return err
		}
		if n >= perCustomer {
			return ledger.ErrConflict
		}
	}
	if freqCount != nil && freqPeriod != nil {
		since := discount.WindowStart(discount.Period(*freqPeriod), c.UsedAt)
		n, err := txCount(ctx, tx, usesSinceSQL, discountID, since)
		if err != nil {
			return err
		}
		if n >= *freqCount {
			return ledger.ErrConflict
		}
	}

	var customerID *string
	if c.CustomerID != "" {
		customerID = &c.CustomerID
	}
	if _, err := tx.Exec(ctx, insertUsageSQL, discountID, customerID, c.TransactionID, c.UsedAt); err != nil {
		return fmt.Errorf("inserting usage record for %q: %w", discountID, err)
	}
	return nil
}

func (r *LedgerRepository) debitCredit(ctx context.Context, tx pgx.Tx, c ledger.Commit) error {
	var exists bool
	if err := tx.QueryRow(ctx, debitExistsSQL, c.CustomerID, c.TransactionID).Scan(&exists); err != nil {
		return fmt.Errorf("checking credit debit for %q: %w", c.TransactionID, err)
	}
	if exists {
		return nil
	}

	tag, err := tx.Exec(ctx, debitBalanceSQL, c.CustomerID, c.Credit)
	if err != nil {
		return fmt.Errorf("debiting credit for customer %q: %w", c.CustomerID, err)
	}
	if tag.RowsAffected() == 0 {
		// Balance moved under us since the quote, or the customer vanished.
		return ledger.ErrInsufficientCredit
	}

	if _, err := tx.Exec(ctx, insertDebitSQL, c.CustomerID, c.TransactionID, c.Credit, c.UsedAt); err != nil {
		return fmt.Errorf("inserting credit debit for %q: %w", c.TransactionID, err)
	}
	return nil
}

func txCount(ctx context.Context, tx pgx.Tx, sql string, args ...any) (int, error) {
	var n int
	if err := tx.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting usage records: %w", err)
	}
	return n, nil
}
