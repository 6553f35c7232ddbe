// Package sale turns a shopping cart into persisted sale records while
// atomically deducting stock from expiry-dated batches.
package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/quickshelf/pos/internal/domain/inventory"
)

// Sentinel errors for sale creation.
var (
	// ErrEmptyCart is returned when the cart has no lines; nothing is attempted.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrConflict is returned when the store detected a conflicting concurrent
	// sale on the same batches. The whole call is safe to retry from scratch.
	ErrConflict = errors.New("concurrent stock update, retry the sale")
)

// InvalidQuantityError indicates a cart line with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// CartLine is one (product, quantity) request within a sale.
type CartLine struct {
	ProductID int64
	Quantity  int
}

// Sale is the header record of a completed sale. Immutable once created.
type Sale struct {
	ID         int64
	UserID     int64
	CustomerID *int64 // nil = walk-in
	Date       time.Time
	Total      decimal.Decimal
	Discount   decimal.Decimal
}

// Item is one sale line persisted against the specific batch it was drawn
// from. PricePerUnit is that batch's selling price at the moment of sale and
// is never recomputed.
type Item struct {
	ID           int64
	SaleID       int64
	BatchID      int64
	Quantity     int
	PricePerUnit decimal.Decimal
}

// Tx is the transactional view the coordinator works against. All reads and
// writes of one CreateSale call go through a single Tx, so validation and
// deduction observe the same snapshot.
type Tx interface {
	// BatchesForProduct returns every batch of the product in FEFO order,
	// locked against conflicting concurrent writers for the duration of the
	// transaction.
	BatchesForProduct(ctx context.Context, productID int64) ([]inventory.Batch, error)
	InsertSale(ctx context.Context, s *Sale) (int64, error)
	InsertItem(ctx context.Context, item Item) error
	// UpdateBatchQuantity sets the batch's quantity to the given absolute value.
	UpdateBatchQuantity(ctx context.Context, batchID int64, quantity int) error
}

// Store opens the atomic unit of work. If fn returns an error, every write it
// performed is rolled back.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Reader is the read side used by reporting and admin screens.
type Reader interface {
	GetByID(ctx context.Context, saleID int64) (*Sale, []Item, error)
}
