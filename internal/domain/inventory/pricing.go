package inventory

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrOutOfStock is returned when a product has no batch with stock left.
var ErrOutOfStock = errors.New("product is out of stock")

// UnitPrice returns the selling price of the earliest-expiring batch that
// still has stock. This is the price quoted for a whole cart line, regardless
// of how many batches the line is later drawn from.
func UnitPrice(batches []Batch) (decimal.Decimal, error) {
	ordered := make([]Batch, len(batches))
	copy(ordered, batches)
	SortFEFO(ordered)

	for _, b := range ordered {
		if b.Quantity > 0 {
			return b.SellingPrice, nil
		}
	}
	return decimal.Zero, ErrOutOfStock
}
