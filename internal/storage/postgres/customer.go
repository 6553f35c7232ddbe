package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickshelf/pos/internal/domain/customer"
)

const (
	listCustomersSQL = `SELECT customer_id, name, contact_info FROM customers ORDER BY name`

	getCustomerByIDSQL = `SELECT customer_id, name, contact_info FROM customers WHERE customer_id = $1`

	createCustomerSQL = `INSERT INTO customers (name, contact_info) VALUES ($1, $2) RETURNING customer_id`

	updateCustomerSQL = `UPDATE customers SET name = $2, contact_info = $3 WHERE customer_id = $1`

	deleteCustomerSQL = `DELETE FROM customers WHERE customer_id = $1`
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

func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c customer.Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, createCustomerSQL, c.Name, c.ContactInfo).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating customer %q: %w", c.Name, err)
	}
	return id, nil
}

func (r *CustomerRepository) Update(ctx context.Context, c customer.Customer) error {
	tag, err := r.pool.Exec(ctx, updateCustomerSQL, c.ID, c.Name, c.ContactInfo)
	if err != nil {
		return fmt.Errorf("updating customer %d: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, deleteCustomerSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return customer.ErrInUse
		}
		return fmt.Errorf("deleting customer %d: %w", id, err)
	}
	return nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Name, &c.ContactInfo)
	return c, err
}
