package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickshelf/pos/internal/domain/product"
)

const (
	listProductsSQL = `SELECT product_id, name, category, reorder_level
		FROM products ORDER BY name`

	getProductByIDSQL = `SELECT product_id, name, category, reorder_level
		FROM products WHERE product_id = $1`

	createProductSQL = `INSERT INTO products (name, category, reorder_level)
		VALUES ($1, $2, $3) RETURNING product_id`

	updateProductSQL = `UPDATE products SET name = $2, category = $3, reorder_level = $4
		WHERE product_id = $1`

	deleteProductSQL = `DELETE FROM products WHERE product_id = $1`

	// One row per product with stock: current total and the selling price of
	// the earliest-expiring stocked batch (FEFO front).
	listForSaleSQL = `SELECT p.product_id, p.name, p.category,
			(SELECT b.selling_price FROM batches b
				WHERE b.product_id = p.product_id AND b.quantity > 0
				ORDER BY b.expiry_date, b.batch_id LIMIT 1) AS selling_price,
			(SELECT COALESCE(SUM(b.quantity), 0) FROM batches b
				WHERE b.product_id = p.product_id) AS in_stock
		FROM products p
		WHERE EXISTS (SELECT 1 FROM batches b WHERE b.product_id = p.product_id AND b.quantity > 0)
		ORDER BY p.name`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// Create stores a new product. A duplicate name surfaces as
// product.ErrNameTaken.
func (r *ProductRepository) Create(ctx context.Context, p product.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, createProductSQL, p.Name, string(p.Category), p.ReorderLevel).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, product.ErrNameTaken
		}
		return 0, fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return id, nil
}

// Update rewrites a product's mutable fields.
func (r *ProductRepository) Update(ctx context.Context, p product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL, p.ID, p.Name, string(p.Category), p.ReorderLevel)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrNameTaken
		}
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product; its batches go with it (ON DELETE CASCADE).
// Products whose batches are referenced by sale items cannot be deleted.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return product.ErrInUse
		}
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	return nil
}

// ListForSale returns in-stock products with their FEFO-front price.
func (r *ProductRepository) ListForSale(ctx context.Context) ([]product.ListingRow, error) {
	rows, err := r.pool.Query(ctx, listForSaleSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products for sale: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.ListingRow, error) {
		var (
			lr       product.ListingRow
			category string
		)
		err := row.Scan(&lr.ProductID, &lr.Name, &category, &lr.SellingPrice, &lr.InStock)
		lr.Category = product.Category(category)
		return lr, err
	})
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		category string
	)
	err := row.Scan(&p.ID, &p.Name, &category, &p.ReorderLevel)
	p.Category = product.Category(category)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
