// Package customer defines the customer directory used by sales and orders.
package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// ErrInUse is returned when deleting a customer referenced by sales or
// orders.
var ErrInUse = errors.New("customer has recorded sales or orders")

// Customer is a known buyer. Sales without a customer are walk-ins.
type Customer struct {
	ID          int64
	Name        string
	ContactInfo string
}

// Repository defines persistence operations for customers.
type Repository interface {
	List(ctx context.Context) ([]Customer, error)
	GetByID(ctx context.Context, id int64) (*Customer, error)
	Create(ctx context.Context, c Customer) (int64, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, id int64) error
}
