package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickshelf/pos/internal/domain/inventory"
	"github.com/quickshelf/pos/internal/domain/sale"
)

const (
	// FOR UPDATE locks every batch row of the product for the transaction, so
	// two concurrent sales cannot both read the same available quantity.
	lockBatchesForProductSQL = `SELECT batch_id, product_id, batch_number, quantity,
		manufacture_date, expiry_date, cost_price, selling_price
		FROM batches WHERE product_id = $1
		ORDER BY expiry_date, batch_id
		FOR UPDATE`

	insertSaleSQL = `INSERT INTO sales (user_id, customer_id, total_amount, discount_applied)
		VALUES ($1, $2, $3, $4) RETURNING sale_id, sale_date`

	insertSaleItemSQL = `INSERT INTO sale_items (sale_id, batch_id, quantity_sold, price_per_unit)
		VALUES ($1, $2, $3, $4)`

	updateBatchQuantitySQL = `UPDATE batches SET quantity = $2 WHERE batch_id = $1`

	getSaleSQL = `SELECT sale_id, user_id, customer_id, sale_date, total_amount, discount_applied
		FROM sales WHERE sale_id = $1`

	getSaleItemsSQL = `SELECT sale_item_id, sale_id, batch_id, quantity_sold, price_per_unit
		FROM sale_items WHERE sale_id = $1 ORDER BY sale_item_id`
)

var (
	_ sale.Store  = (*SaleStore)(nil)
	_ sale.Reader = (*SaleStore)(nil)
)

// SaleStore implements the sale transaction boundary on PostgreSQL.
type SaleStore struct {
	pool *pgxpool.Pool
}

// NewSaleStore returns a SaleStore that uses the given pool.
func NewSaleStore(pool *pgxpool.Pool) *SaleStore {
	return &SaleStore{pool: pool}
}

// InTx runs fn inside one serializable transaction. A serialization failure
// or deadlock surfaces as sale.ErrConflict, which callers may retry from
// scratch; any error from fn rolls everything back.
func (s *SaleStore) InTx(ctx context.Context, fn func(ctx context.Context, tx sale.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("beginning sale transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(ctx, &saleTx{tx: tx}); err != nil {
		return mapConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapConflict(fmt.Errorf("committing sale: %w", err))
	}
	return nil
}

// GetByID returns a persisted sale with its items.
func (s *SaleStore) GetByID(ctx context.Context, saleID int64) (*sale.Sale, []sale.Item, error) {
	rows, err := s.pool.Query(ctx, getSaleSQL, saleID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting sale %d: %w", saleID, err)
	}
	header, err := pgx.CollectExactlyOneRow(rows, scanSale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("sale %d not found: %w", saleID, err)
		}
		return nil, nil, fmt.Errorf("getting sale %d: %w", saleID, err)
	}

	itemRows, err := s.pool.Query(ctx, getSaleItemsSQL, saleID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting items for sale %d: %w", saleID, err)
	}
	items, err := pgx.CollectRows(itemRows, scanSaleItem)
	if err != nil {
		return nil, nil, fmt.Errorf("getting items for sale %d: %w", saleID, err)
	}
	return &header, items, nil
}

// saleTx adapts a pgx transaction to the sale.Tx contract.
type saleTx struct {
	tx pgx.Tx
}

func (t *saleTx) BatchesForProduct(ctx context.Context, productID int64) ([]inventory.Batch, error) {
	rows, err := t.tx.Query(ctx, lockBatchesForProductSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("locking batches for product %d: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanBatch)
}

func (t *saleTx) InsertSale(ctx context.Context, s *sale.Sale) (int64, error) {
	err := t.tx.QueryRow(ctx, insertSaleSQL, s.UserID, s.CustomerID, s.Total, s.Discount).
		Scan(&s.ID, &s.Date)
	if err != nil {
		return 0, fmt.Errorf("inserting sale: %w", err)
	}
	return s.ID, nil
}

func (t *saleTx) InsertItem(ctx context.Context, item sale.Item) error {
	_, err := t.tx.Exec(ctx, insertSaleItemSQL,
		item.SaleID, item.BatchID, item.Quantity, item.PricePerUnit)
	if err != nil {
		return fmt.Errorf("inserting sale item: %w", err)
	}
	return nil
}

func (t *saleTx) UpdateBatchQuantity(ctx context.Context, batchID int64, quantity int) error {
	_, err := t.tx.Exec(ctx, updateBatchQuantitySQL, batchID, quantity)
	if err != nil {
		return fmt.Errorf("updating quantity of batch %d: %w", batchID, err)
	}
	return nil
}

// mapConflict folds Postgres serialization failures (40001) and deadlocks
// (40P01) into sale.ErrConflict. The quantity CHECK constraint (23514) also
// maps there: it means a concurrent writer got to the row first.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23514":
			return fmt.Errorf("%w: %s", sale.ErrConflict, pgErr.Message)
		}
	}
	return err
}

func scanSale(row pgx.CollectableRow) (sale.Sale, error) {
	var s sale.Sale
	err := row.Scan(&s.ID, &s.UserID, &s.CustomerID, &s.Date, &s.Total, &s.Discount)
	return s, err
}

func scanSaleItem(row pgx.CollectableRow) (sale.Item, error) {
	var it sale.Item
	err := row.Scan(&it.ID, &it.SaleID, &it.BatchID, &it.Quantity, &it.PricePerUnit)
	return it, err
}
