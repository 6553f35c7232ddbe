// Package inventory holds the stock ledger: expiry-dated batches per product,
// the FEFO pricing rule, and the pure allocation algorithm that plans stock
// deductions for a sale.
package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Batch is one dated lot of a product. Several batches of the same product
// may coexist with different expiry dates and prices.
type Batch struct {
	ID              int64
	ProductID       int64
	Number          string
	Quantity        int
	ManufactureDate *time.Time
	ExpiryDate      time.Time
	CostPrice       decimal.Decimal
	SellingPrice    decimal.Decimal
}

// NewBatch is the input for receiving a batch into stock.
type NewBatch struct {
	ProductID       int64
	Number          string
	Quantity        int
	ManufactureDate *time.Time
	ExpiryDate      time.Time
	CostPrice       decimal.Decimal
	SellingPrice    decimal.Decimal
}

// Repository defines persistence operations for batches outside the sale
// transaction. BatchesForProduct returns all batches, including depleted
// ones, in FEFO order; callers decide whether zero-quantity batches matter.
type Repository interface {
	BatchesForProduct(ctx context.Context, productID int64) ([]Batch, error)
	Insert(ctx context.Context, b NewBatch) (int64, error)
	Delete(ctx context.Context, batchID int64) error
}

// SortFEFO orders batches in place by expiry date ascending, ties broken by
// batch ID so repeated reads yield an identical order.
func SortFEFO(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].ExpiryDate.Equal(batches[j].ExpiryDate) {
			return batches[i].ID < batches[j].ID
		}
		return batches[i].ExpiryDate.Before(batches[j].ExpiryDate)
	})
}
