// Package product is the engine's read-only view of the catalog. Product and
// category identifiers are opaque scope-matching keys; the catalog itself is
// owned elsewhere.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a sellable catalog item: a retail good, a class pass, or a
// membership plan.
type Product struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	CategoryID string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
