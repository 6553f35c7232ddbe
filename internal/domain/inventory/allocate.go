package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Allocation is one planned deduction: take Quantity units from the batch
// with BatchID, sold at that batch's own selling price.
type Allocation struct {
	BatchID   int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// InsufficientStockError reports that a product cannot cover a requested
// quantity. Available is the total stock scanned across all of its batches.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Allocate plans how to satisfy a request for `requested` units of a product
// from the given batches, depleting earliest-expiring batches first. It never
// mutates anything: the plan either exactly covers the request or the whole
// call fails with *InsufficientStockError.
func Allocate(productID int64, batches []Batch, requested int) ([]Allocation, error) {
	ordered := make([]Batch, len(batches))
	copy(ordered, batches)
	SortFEFO(ordered)

	available := 0
	for _, b := range ordered {
		available += b.Quantity
	}
	if available < requested {
		return nil, &InsufficientStockError{
			ProductID: productID,
			Requested: requested,
			Available: available,
		}
	}

	plan := make([]Allocation, 0, 1)
	remaining := requested
	for _, b := range ordered {
		if remaining == 0 {
			break
		}
		if b.Quantity == 0 {
			continue
		}
		take := min(remaining, b.Quantity)
		plan = append(plan, Allocation{
			BatchID:   b.ID,
			Quantity:  take,
			UnitPrice: b.SellingPrice,
		})
		remaining -= take
	}
	return plan, nil
}
