package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickshelf/pos/internal/domain/order"
)

const (
	listOrdersSQL = `SELECT order_id, customer_id, order_date, status
		FROM orders ORDER BY order_date DESC, order_id DESC`

	getOrderByIDSQL = `SELECT order_id, customer_id, order_date, status
		FROM orders WHERE order_id = $1`

	getOrderItemsSQL = `SELECT product_id, quantity_ordered
		FROM order_items WHERE order_id = $1 ORDER BY order_item_id`

	insertOrderSQL = `INSERT INTO orders (customer_id, order_date, status)
		VALUES ($1, $2, $3) RETURNING order_id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity_ordered)
		VALUES ($1, $2, $3)`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE order_id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List returns all orders, newest first, without their items.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// GetByID returns one order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ProductID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", id, err)
	}
	return &o, nil
}

// Create stores an order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o order.Order) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var id int64
	err = tx.QueryRow(ctx, insertOrderSQL, o.CustomerID, o.Date, string(o.Status)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, insertOrderItemSQL, id, it.ProductID, it.Quantity); err != nil {
			return 0, fmt.Errorf("inserting order item for product %d: %w", it.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing order: %w", err)
	}
	return id, nil
}

// UpdateStatus sets an order's status. Transition rules live in the domain
// service; this just writes.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status of order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.Date, &status)
	o.Status = order.Status(status)
	return o, err
}
