package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbathie/pos-sub001/internal/domain/customer"
)

const (
	getCustomerSQL = `SELECT id, name, email, credit_balance FROM customers WHERE id = $1`

	listDebitsSQL = `SELECT amount, transaction_id, created_at FROM credit_debits
		WHERE customer_id = $1 ORDER BY created_at, id`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns a customer with their credit balance and debit history.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	var c customer.Customer
	err := r.pool.QueryRow(ctx, getCustomerSQL, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Credits.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, listDebitsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("listing credit debits for %q: %w", id, err)
	}
	debits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (customer.Debit, error) {
		var d customer.Debit
		err := row.Scan(&d.Amount, &d.TransactionID, &d.CreatedAt)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing credit debits for %q: %w", id, err)
	}
	c.Credits.Debits = debits

	return &c, nil
}
