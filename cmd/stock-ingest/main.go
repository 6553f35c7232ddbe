// Command stock-ingest imports supplier delivery manifests in bulk. A
// manifest is a gzipped NDJSON file where each line describes one delivered
// batch, keyed by product name. Files are parsed concurrently; duplicate
// lines within and across manifests are dropped.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/quickshelf/pos/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
	progressEvery = 100_000
)

// manifestLine is one delivered batch as it appears in a manifest file.
type manifestLine struct {
	Product         string
	BatchNumber     string
	Quantity        int
	ManufactureDate string
	ExpiryDate      string
	CostPrice       decimal.Decimal
	SellingPrice    decimal.Decimal
}

func (l *manifestLine) key() string {
	return l.Product + "\x00" + l.BatchNumber
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing manifest-*.ndjson.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("stock ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("stock ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "manifest-*.ndjson.gz"))
	if err != nil {
		return errors.Wrap(err, "glob manifests")
	}
	if len(files) == 0 {
		return errors.Errorf("no manifest files in %s", dataDir)
	}

	slog.Info("parsing manifests", slog.Int("files", len(files)))

	parsed, err := parseManifests(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse manifests")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeBatches(ctx, pool, parsed)
}

// parseManifests decodes every file concurrently, one goroutine per file.
func parseManifests(ctx context.Context, files []string) ([][]manifestLine, error) {
	results := make([][]manifestLine, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFile(ctx, i, f, results))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func parseFile(ctx context.Context, idx int, path string, results [][]manifestLine) func() error {
	return func() error {
		var lines []manifestLine
		var count uint64

		if err := streamGzLines(ctx, path, func(raw []byte) error {
			line, err := decodeLine(raw)
			if err != nil {
				return errors.Wrapf(err, "line %d", count+1)
			}
			lines = append(lines, line)
			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress", slog.String("file", path), slog.Uint64("lines", count))
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}

		slog.Info("parsed manifest", slog.String("file", path), slog.Uint64("lines", count))
		results[idx] = lines
		return nil
	}
}

// decodeLine parses one NDJSON manifest line.
func decodeLine(raw []byte) (manifestLine, error) {
	var line manifestLine
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product":
			line.Product, err = d.Str()
		case "batch_number":
			line.BatchNumber, err = d.Str()
		case "quantity":
			line.Quantity, err = d.Int()
		case "manufacture_date":
			line.ManufactureDate, err = d.Str()
		case "expiry_date":
			line.ExpiryDate, err = d.Str()
		case "cost_price":
			var s string
			if s, err = d.Str(); err == nil {
				line.CostPrice, err = decimal.NewFromString(s)
			}
		case "selling_price":
			var s string
			if s, err = d.Str(); err == nil {
				line.SellingPrice, err = decimal.NewFromString(s)
			}
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return line, err
	}

	switch {
	case line.Product == "":
		return line, errors.New("product is required")
	case line.BatchNumber == "":
		return line, errors.New("batch_number is required")
	case line.Quantity < 0:
		return line, errors.New("quantity must not be negative")
	case line.ExpiryDate == "":
		return line, errors.New("expiry_date is required")
	}
	return line, nil
}

// streamGzLines reads a gzipped file line by line.
func streamGzLines(ctx context.Context, path string, fn func(raw []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

// writeBatches inserts the parsed lines. A bloom filter drops repeated
// (product, batch) pairs cheaply; the unique index on batches is the exact
// backstop for the filter's false negatives.
func writeBatches(ctx context.Context, pool *pgxpool.Pool, parsed [][]manifestLine) error {
	productIDs, err := loadProductIDs(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "load product ids")
	}

	const insertQ = `
		INSERT INTO batches (product_id, batch_number, quantity, manufacture_date, expiry_date, cost_price, selling_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (product_id, batch_number) DO NOTHING`

	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var inserted, skipped, unknown int

	for _, lines := range parsed {
		for i := range lines {
			line := &lines[i]
			if seen.TestString(line.key()) {
				skipped++
				continue
			}
			seen.AddString(line.key())

			productID, ok := productIDs[line.Product]
			if !ok {
				slog.Warn("unknown product, line skipped",
					slog.String("product", line.Product),
					slog.String("batch", line.BatchNumber),
				)
				unknown++
				continue
			}

			expiry, err := time.Parse("2006-01-02", line.ExpiryDate)
			if err != nil {
				return errors.Wrapf(err, "batch %q: bad expiry date", line.BatchNumber)
			}
			var manufacture *time.Time
			if line.ManufactureDate != "" {
				m, err := time.Parse("2006-01-02", line.ManufactureDate)
				if err != nil {
					return errors.Wrapf(err, "batch %q: bad manufacture date", line.BatchNumber)
				}
				manufacture = &m
			}

			tag, err := pool.Exec(ctx, insertQ,
				productID, line.BatchNumber, line.Quantity,
				manufacture, expiry, line.CostPrice, line.SellingPrice,
			)
			if err != nil {
				return errors.Wrapf(err, "insert batch %q", line.BatchNumber)
			}
			if tag.RowsAffected() == 0 {
				skipped++
				continue
			}
			inserted++
		}
	}

	slog.Info("batches written",
		slog.Int("inserted", inserted),
		slog.Int("skipped_duplicates", skipped),
		slog.Int("unknown_products", unknown),
	)
	if unknown > 0 {
		return fmt.Errorf("%d manifest lines referenced unknown products", unknown)
	}
	return nil
}

func loadProductIDs(ctx context.Context, pool *pgxpool.Pool) (map[string]int64, error) {
	rows, err := pool.Query(ctx, `SELECT product_id, name FROM products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, rows.Err()
}
