// Command seed-db prepares a database for local development: it runs
// migrations, creates the admin account, and loads a small demo catalog with
// stocked batches.
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

	"github.com/quickshelf/pos/internal/domain/user"
	"github.com/quickshelf/pos/internal/storage/postgres"
)

type batchJSON struct {
	Number       string          `json:"batch_number"`
	Quantity     int             `json:"quantity"`
	ExpiryDate   string          `json:"expiry_date"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

type productJSON struct {
	Name         string      `json:"name"`
	Category     string      `json:"category"`
	ReorderLevel int         `json:"reorder_level"`
	Batches      []batchJSON `json:"batches"`
}

func main() {
	var (
		databaseURL   string
		catalogFile   string
		adminUser     string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to demo catalog JSON file")
	flag.StringVar(&adminUser, "admin-user", "admin", "username of the admin account to create")
	flag.StringVar(&adminPassword, "admin-password", "", "admin password (or POS_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("POS_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or POS_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, adminUser, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, adminUser, adminPassword string) error {
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

	if err := seedAdmin(ctx, pool, adminUser, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin user")
	}

	if err := seedCatalog(ctx, pool, catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	return nil
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, username, password string) error {
	hash, err := user.HashPassword(password)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO users (username, password_hash, role, is_active)
		VALUES ($1, $2, 'Admin', TRUE)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, is_active = TRUE`
	if _, err := pool.Exec(ctx, q, username, hash); err != nil {
		return errors.Wrap(err, "upsert admin")
	}

	slog.Info("upserted admin user", slog.String("username", username))
	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	const productQ = `
		INSERT INTO products (name, category, reorder_level)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET category = EXCLUDED.category, reorder_level = EXCLUDED.reorder_level
		RETURNING product_id`
	const batchQ = `
		INSERT INTO batches (product_id, batch_number, quantity, expiry_date, cost_price, selling_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, batch_number) DO NOTHING`

	for _, p := range products {
		var productID int64
		if err := pool.QueryRow(ctx, productQ, p.Name, p.Category, p.ReorderLevel).Scan(&productID); err != nil {
			return errors.Wrapf(err, "upsert product %q", p.Name)
		}

		for _, b := range p.Batches {
			expiry, err := time.Parse("2006-01-02", b.ExpiryDate)
			if err != nil {
				return errors.Wrapf(err, "batch %q of product %q: bad expiry date", b.Number, p.Name)
			}
			if _, err := pool.Exec(ctx, batchQ,
				productID, b.Number, b.Quantity, expiry, b.CostPrice, b.SellingPrice,
			); err != nil {
				return errors.Wrapf(err, "insert batch %q of product %q", b.Number, p.Name)
			}
		}

		slog.Info("upserted product",
			slog.String("name", p.Name),
			slog.Int("batches", len(p.Batches)),
		)
	}

	return nil
}
