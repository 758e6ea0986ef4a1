// Command seed-db loads a demo catalogue, demo customers, and a handful of
// example discount rules for local development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mbathie/pos-sub001/internal/domain/discount"
	"github.com/mbathie/pos-sub001/internal/storage/postgres"
)

type productJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"categoryId"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCustomers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed customers")
	}

	if err := seedDiscounts(ctx, postgres.NewDiscountRepository(pool)); err != nil {
		return errors.Wrap(err, "seed discounts")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	const upsertSQL = `
		INSERT INTO products (id, name, price, category_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, category_id = EXCLUDED.category_id`

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertSQL, p.ID, p.Name, p.Price, p.CategoryID); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo customers")

	customers := []struct {
		id      string
		name    string
		email   string
		balance decimal.Decimal
	}{
		{"cust-alex", "Alex Chen", "alex@example.com", decimal.NewFromInt(50)},
		{"cust-sam", "Sam Rivera", "sam@example.com", decimal.NewFromInt(5)},
		{"cust-jo", "Jo Novak", "jo@example.com", decimal.Zero},
	}

	const upsertSQL = `
		INSERT INTO customers (id, name, email, credit_balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email`

	for _, c := range customers {
		if _, err := pool.Exec(ctx, upsertSQL, c.id, c.name, c.email, c.balance); err != nil {
			return errors.Wrapf(err, "upsert customer %s", c.id)
		}

		slog.Info("upserted customer", slog.String("id", c.id), slog.String("name", c.name))
	}

	return nil
}

func seedDiscounts(ctx context.Context, repo *postgres.DiscountRepository) error {
	slog.Info("seeding demo discounts")

	now := time.Now().UTC()
	weekdays := [7]bool{true, true, true, true, true, false, false}

	rules := []*discount.Discount{
		{
			ID:          "disc-member-10",
			Name:        "Member 10% off",
			Code:        "MEMBER10",
			Description: "10% off the whole cart for members",
			Mode:        discount.ModeDiscount,
			Adjustments: []discount.Adjustment{{
				Type:  discount.AdjustPercent,
				Value: decimal.NewFromInt(10),
			}},
			DaysOfWeek:      discount.EveryDay(),
			RequireCustomer: true,
			CreatedAt:       now,
		},
		{
			ID:          "disc-weekday-entry",
			Name:        "Weekday entry special",
			Code:        "WEEKDAY5",
			Description: "$5 off casual entries, weekdays only",
			Mode:        discount.ModeDiscount,
			Musts:       discount.Scope{Categories: []string{"cat-entries"}},
			Adjustments: []discount.Adjustment{{
				Scope: discount.Scope{Categories: []string{"cat-entries"}},
				Type:  discount.AdjustAmount,
				Value: decimal.NewFromInt(5),
			}},
			Limits: discount.Limits{
				Frequency: &discount.Frequency{Count: 1, Period: discount.PeriodWeek},
			},
			DaysOfWeek:      weekdays,
			RequireCustomer: true,
			CreatedAt:       now,
		},
		{
			ID:          "disc-grand-opening",
			Name:        "Grand opening",
			Code:        "OPENING20",
			Description: "20% off everything, first 100 sales",
			Mode:        discount.ModeDiscount,
			Adjustments: []discount.Adjustment{{
				Type:      discount.AdjustPercent,
				Value:     decimal.NewFromInt(20),
				MaxAmount: decimal.NewFromInt(30),
			}},
			Limits:     discount.Limits{UsageLimit: 100, PerCustomer: 1},
			DaysOfWeek: discount.EveryDay(),
			CreatedAt:  now,
		},
		{
			ID:          "disc-card-surcharge",
			Name:        "Public holiday surcharge",
			Description: "15% public holiday surcharge on cafe items",
			Mode:        discount.ModeSurcharge,
			Adjustments: []discount.Adjustment{{
				Scope: discount.Scope{Categories: []string{"cat-cafe"}},
				Type:  discount.AdjustPercent,
				Value: decimal.NewFromInt(15),
			}},
			DaysOfWeek: discount.EveryDay(),
			CreatedAt:  now,
		},
	}

	for _, d := range rules {
		if err := d.Validate(); err != nil {
			return errors.Wrapf(err, "validate rule %s", d.ID)
		}
		if _, err := repo.GetByID(ctx, d.ID); err == nil {
			slog.Info("discount already present", slog.String("id", d.ID))
			continue
		} else if !errors.Is(err, discount.ErrNotFound) {
			return errors.Wrapf(err, "look up discount %s", d.ID)
		}
		if err := repo.Create(ctx, d); err != nil {
			return errors.Wrapf(err, "create discount %s", d.ID)
		}

		slog.Info("created discount", slog.String("id", d.ID), slog.String("name", d.Name))
	}

	return nil
}
