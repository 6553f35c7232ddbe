// Package report defines the read-only reporting views: sales over a period,
// per-product performance, and current inventory health. The numbers are
// computed in SQL by the storage layer; nothing here mutates state.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SaleRow is one sale as shown in the sales report.
type SaleRow struct {
	SaleID   int64
	Date     time.Time
	Cashier  string
	Customer string // empty = walk-in
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// SalesSummary aggregates a period. COGS is the cost price of every unit
// sold, taken from the batch each unit was drawn from.
type SalesSummary struct {
	Revenue     decimal.Decimal
	COGS        decimal.Decimal
	GrossProfit decimal.Decimal
	SaleCount   int
}

// ProductPerformanceRow reports one product's sales over a period.
type ProductPerformanceRow struct {
	ProductID int64
	Name      string
	UnitsSold int
	Revenue   decimal.Decimal
}

// InventoryRow reports one product's current stock position.
type InventoryRow struct {
	ProductID    int64
	Name         string
	StockOnHand  int
	ReorderLevel int
	NeedsReorder bool
	NextExpiry   *time.Time // nil when no stocked batch exists
}

// Repository provides the reporting queries.
type Repository interface {
	Sales(ctx context.Context, from, to time.Time) ([]SaleRow, error)
	SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error)
	ProductPerformance(ctx context.Context, from, to time.Time) ([]ProductPerformanceRow, error)
	Inventory(ctx context.Context) ([]InventoryRow, error)
}
