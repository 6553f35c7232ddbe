package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickshelf/pos/internal/domain/inventory"
)

const (
	batchesForProductSQL = `SELECT batch_id, product_id, batch_number, quantity,
		manufacture_date, expiry_date, cost_price, selling_price
		FROM batches WHERE product_id = $1
		ORDER BY expiry_date, batch_id`

	insertBatchSQL = `INSERT INTO batches
		(product_id, batch_number, quantity, manufacture_date, expiry_date, cost_price, selling_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING batch_id`

	deleteBatchSQL = `DELETE FROM batches WHERE batch_id = $1`
)

var _ inventory.Repository = (*BatchRepository)(nil)

// BatchRepository implements inventory.Repository backed by PostgreSQL.
// These are the out-of-transaction reads and admin writes; sales lock and
// mutate batches through SaleStore instead.
type BatchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository returns a BatchRepository that uses the given pool.
func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

// BatchesForProduct returns all batches of a product, zero-quantity ones
// included, in FEFO order.
func (r *BatchRepository) BatchesForProduct(ctx context.Context, productID int64) ([]inventory.Batch, error) {
	rows, err := r.pool.Query(ctx, batchesForProductSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing batches for product %d: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanBatch)
}

// Insert stores a received batch and returns its new ID. A missing product
// surfaces as inventory.ErrUnknownProduct.
func (r *BatchRepository) Insert(ctx context.Context, b inventory.NewBatch) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertBatchSQL,
		b.ProductID, b.Number, b.Quantity, b.ManufactureDate, b.ExpiryDate,
		b.CostPrice, b.SellingPrice,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, inventory.ErrUnknownProduct
		}
		return 0, fmt.Errorf("inserting batch %q: %w", b.Number, err)
	}
	return id, nil
}

// Delete removes a batch. Batches referenced by sale items cannot be
// deleted; they hold the per-batch prices of past sales.
func (r *BatchRepository) Delete(ctx context.Context, batchID int64) error {
	_, err := r.pool.Exec(ctx, deleteBatchSQL, batchID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return inventory.ErrBatchInUse
		}
		return fmt.Errorf("deleting batch %d: %w", batchID, err)
	}
	return nil
}

func scanBatch(row pgx.CollectableRow) (inventory.Batch, error) {
	var b inventory.Batch
	err := row.Scan(
		&b.ID, &b.ProductID, &b.Number, &b.Quantity,
		&b.ManufactureDate, &b.ExpiryDate, &b.CostPrice, &b.SellingPrice,
	)
	return b, err
}
