package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mbathie/pos-sub001/internal/domain/discount"
)

const (
	discountColumns = `id, name, code, description, mode, musts, adjustments,
		usage_limit, per_customer_limit, frequency_count, frequency_period,
		days_of_week, starts_at, expires_at, require_customer, archived_at, created_at`

	createDiscountSQL = `INSERT INTO discounts (id, name, code, description, mode, musts, adjustments,
		usage_limit, per_customer_limit, frequency_count, frequency_period,
		days_of_week, starts_at, expires_at, require_customer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getDiscountByIDSQL = `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`

	findDiscountByCodeSQL = `SELECT ` + discountColumns + ` FROM discounts
		WHERE code IS NOT NULL AND UPPER(code) = UPPER($1)`

	listDiscountsSQL = `SELECT ` + discountColumns + ` FROM discounts
		WHERE archived_at IS NULL OR $1 ORDER BY created_at, id`

	archiveDiscountSQL = `UPDATE discounts SET archived_at = $2
		WHERE id = $1 AND archived_at IS NULL`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
// Rule scopes and adjustment lists are stored as JSONB.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// scopeJSON is the JSONB shape of a discount.Scope.
type scopeJSON struct {
	Products   []string `json:"products,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// adjustmentJSON is the JSONB shape of one adjustment entry.
type adjustmentJSON struct {
	Products   []string        `json:"products,omitempty"`
	Categories []string        `json:"categories,omitempty"`
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	MaxAmount  decimal.Decimal `json:"maxAmount,omitempty"`
}

// Create inserts a new rule. The caller is expected to have validated it.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	musts, adjustments, days, err := marshalRule(d)
	if err != nil {
		return err
	}

	var code *string
	if d.Code != "" {
		code = &d.Code
	}
	var freqCount *int
	var freqPeriod *string
	if f := d.Limits.Frequency; f != nil {
		freqCount = &f.Count
		p := string(f.Period)
		freqPeriod = &p
	}

	_, err = r.pool.Exec(ctx, createDiscountSQL,
		d.ID, d.Name, code, d.Description, string(d.Mode), musts, adjustments,
		d.Limits.UsageLimit, d.Limits.PerCustomer, freqCount, freqPeriod,
		days, d.StartsAt, d.ExpiresAt, d.RequireCustomer,
	)
	if err != nil {
		return fmt.Errorf("creating discount %q: %w", d.ID, err)
	}
	return nil
}

// GetByID returns a rule by its identifier.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*discount.Discount, error) {
	return r.queryOne(ctx, getDiscountByIDSQL, id)
}

// FindByCode resolves a public code case-insensitively.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	return r.queryOne(ctx, findDiscountByCodeSQL, code)
}

func (r *DiscountRepository) queryOne(ctx context.Context, sql string, arg any) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("querying discount: %w", err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("querying discount: %w", err)
	}
	return &d, nil
}

// List returns rules ordered by creation, excluding archived ones unless asked.
func (r *DiscountRepository) List(ctx context.Context, includeArchived bool) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listDiscountsSQL, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// Archive soft-deletes a rule. Archiving twice is a no-op.
func (r *DiscountRepository) Archive(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, archiveDiscountSQL, id, at)
	if err != nil {
		return fmt.Errorf("archiving discount %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or already archived; distinguish for the caller.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func marshalRule(d *discount.Discount) (musts, adjustments, days []byte, err error) {
	musts, err = json.Marshal(scopeJSON{Products: d.Musts.Products, Categories: d.Musts.Categories})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling musts: %w", err)
	}

	adjs := make([]adjustmentJSON, len(d.Adjustments))
	for i, a := range d.Adjustments {
		adjs[i] = adjustmentJSON{
			Products:   a.Scope.Products,
			Categories: a.Scope.Categories,
			Type:       string(a.Type),
			Value:      a.Value,
			MaxAmount:  a.MaxAmount,
		}
	}
	adjustments, err = json.Marshal(adjs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling adjustments: %w", err)
	}

	days, err = json.Marshal(d.DaysOfWeek)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling days of week: %w", err)
	}
	return musts, adjustments, days, nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d          discount.Discount
		code       *string
		mode       string
		musts      []byte
		adjsRaw    []byte
		daysRaw    []byte
		freqCount  *int
		freqPeriod *string
	)
	err := row.Scan(
		&d.ID, &d.Name, &code, &d.Description, &mode, &musts, &adjsRaw,
		&d.Limits.UsageLimit, &d.Limits.PerCustomer, &freqCount, &freqPeriod,
		&daysRaw, &d.StartsAt, &d.ExpiresAt, &d.RequireCustomer, &d.ArchivedAt, &d.CreatedAt,
	)
	if err != nil {
		return discount.Discount{}, err
	}

	if code != nil {
		d.Code = *code
	}
	d.Mode = discount.Mode(mode)
	if freqCount != nil && freqPeriod != nil {
		d.Limits.Frequency = &discount.Frequency{Count: *freqCount, Period: discount.Period(*freqPeriod)}
	}

	var ms scopeJSON
	if err := json.Unmarshal(musts, &ms); err != nil {
		return discount.Discount{}, fmt.Errorf("unmarshaling musts: %w", err)
	}
	d.Musts = discount.Scope{Products: ms.Products, Categories: ms.Categories}

	var adjs []adjustmentJSON
	if err := json.Unmarshal(adjsRaw, &adjs); err != nil {
		return discount.Discount{}, fmt.Errorf("unmarshaling adjustments: %w", err)
	}
	d.Adjustments = make([]discount.Adjustment, len(adjs))
	for i, a := range adjs {
		d.Adjustments[i] = discount.Adjustment{
			Scope:     discount.Scope{Products: a.Products, Categories: a.Categories},
			Type:      discount.AdjustType(a.Type),
			Value:     a.Value,
			MaxAmount: a.MaxAmount,
		}
	}

	if err := json.Unmarshal(daysRaw, &d.DaysOfWeek); err != nil {
		return discount.Discount{}, fmt.Errorf("unmarshaling days of week: %w", err)
	}

	return d, nil
}
