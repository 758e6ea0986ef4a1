//go:build integration

// Package integration exercises the storage layer and checkout pipeline
// against a real PostgreSQL instance. The commit-time limit checks and
// idempotency guarantees live in SQL, so they are only meaningfully tested
// here.
package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mbathie/pos-sub001/internal/domain/discount"
	storage "github.com/mbathie/pos-sub001/internal/storage/postgres"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pos"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	pool, err = storage.NewPool(ctx, connStr)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

// --- Fixture helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createProduct(t *testing.T, id, name, price, categoryID string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, name, price, category_id) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		id, name, dec(price), categoryID)
	require.NoError(t, err)
}

func createCustomer(t *testing.T, name, balance string) string {
	t.Helper()

	id := "cust-" + uuid.NewString()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO customers (id, name, email, credit_balance) VALUES ($1, $2, $3, $4)`,
		id, name, name+"@example.com", dec(balance))
	require.NoError(t, err)
	return id
}

// createDiscount persists d with a fresh ID and returns it.
func createDiscount(t *testing.T, d *discount.Discount) *discount.Discount {
	t.Helper()

	if d.ID == "" {
		d.ID = "disc-" + uuid.NewString()
	}
	if d.DaysOfWeek == ([7]bool{}) {
		d.DaysOfWeek = discount.EveryDay()
	}
	d.CreatedAt = time.Now().UTC()

	require.NoError(t, d.Validate())
	require.NoError(t, storage.NewDiscountRepository(pool).Create(context.Background(), d))
	return d
}

func txID() string {
	return "tx-" + uuid.NewString()
}
