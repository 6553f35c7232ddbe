// Package product defines the catalog entities sold by the shop.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrNameTaken is returned when creating or renaming a product would
// duplicate an existing product name.
var ErrNameTaken = errors.New("product name already in use")

// ErrInUse is returned when deleting a product whose batches appear in
// recorded sales.
var ErrInUse = errors.New("product has recorded sales")

// Category classifies a product. The set is fixed by the shop's assortment.
type Category string

const (
	CategoryWater     Category = "Water"
	CategorySoftDrink Category = "Soft Drink"
	CategoryJuice     Category = "Juice"
	CategorySnack     Category = "Snack"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWater, CategorySoftDrink, CategoryJuice, CategorySnack:
		return true
	}
	return false
}

// Product represents a catalog item. Stock lives in batches, not here.
type Product struct {
	ID           int64
	Name         string
	Category     Category
	ReorderLevel int
}

// ListingRow is a product as shown on the sales screen: only products with
// stock on hand, priced at their earliest-expiring batch.
type ListingRow struct {
	ProductID    int64
	Name         string
	Category     Category
	SellingPrice decimal.Decimal
	InStock      int
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
	// ListForSale returns products with at least one stocked batch, priced
	// FEFO-front.
	ListForSale(ctx context.Context) ([]ListingRow, error)
}
