// Package ledger defines the durable usage ledger: committed discount usage
// records and store-credit debits, plus the read and write contracts the
// adjustment engine depends on.
package ledger

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrConflict is returned when a commit-time re-check of a usage limit
	// fails. The quote computed earlier is stale and must be recomputed.
	ErrConflict = errors.New("discount no longer available")
	// ErrInsufficientCredit is returned when a credit debit would drive the
	// customer's balance below zero at commit time.
	ErrInsufficientCredit = errors.New("insufficient credit balance")
)

// UsageRecord is one committed use of a discount. CustomerID is empty for
// usage not bound to a customer.
type UsageRecord struct {
	DiscountID    string
	CustomerID    string
	TransactionID string
	UsedAt        time.Time
}

// CreditDebit is one committed deduction from a customer's credit balance.
type CreditDebit struct {
	CustomerID    string
	TransactionID string
	Amount        decimal.Decimal
	CreatedAt     time.Time
}

// View reads committed usage counts. Eligibility checks run against these
// counts only; in-flight checkouts are invisible until committed.
type View interface {
	// TotalUses counts committed usage records for the discount across all
	// customers.
	TotalUses(ctx context.Context, discountID string) (int, error)
	// CustomerUses counts committed usage records for (discount, customer).
	CustomerUses(ctx context.Context, discountID, customerID string) (int, error)
	// UsesSince counts committed usage records for the discount with
	// UsedAt >= since.
	UsesSince(ctx context.Context, discountID string, since time.Time) (int, error)
}

// Commit describes the ledger side effects of one successful payment.
type Commit struct {
	TransactionID string
	// CustomerID may be empty when the sale had no customer attached.
	CustomerID string
	// DiscountIDs lists every discount and surcharge applied to the cart,
	// one usage record each.
	DiscountIDs []string
	// Credit is the store-credit amount to debit; zero means no debit.
	Credit decimal.Decimal
	UsedAt time.Time
}

// Recorder applies a Commit atomically. Implementations must re-validate
// usage limits at write time and must be idempotent per TransactionID:
// committing the same transaction twice records usage and debits credit
// exactly once.
type Recorder interface {
	Record(ctx context.Context, c Commit) error
}
