// Package customer holds the customer record and its store-credit sub-object
// as consumed by the adjustment engine.
package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Debit is one append-only entry in the credit audit trail.
type Debit struct {
	Amount        decimal.Decimal
	TransactionID string
	CreatedAt     time.Time
}

// Credit is a customer's spendable prepaid balance plus its debit history.
// Balance is maintained as a running value; the invariant is seed balance
// minus the sum of debits.
type Credit struct {
	Balance decimal.Decimal
	Debits  []Debit
}

// Customer is the engine's view of a customer record.
type Customer struct {
	ID      string
	Name    string
	Email   string
	Credits Credit
}

// Repository provides customer lookup. Credit mutation happens only through
// the ledger recorder at commit time, never here.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
}
