package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickshelf/pos/internal/domain/report"
)

const (
	salesReportSQL = `SELECT s.sale_id, s.sale_date, u.username,
			COALESCE(c.name, ''), s.discount_applied, s.total_amount
		FROM sales s
		JOIN users u ON u.user_id = s.user_id
		LEFT JOIN customers c ON c.customer_id = s.customer_id
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		ORDER BY s.sale_date, s.sale_id`

	// Revenue comes from headers; COGS prices every unit sold at the cost of
	// the batch it was drawn from.
	salesSummarySQL = `SELECT
			COALESCE((SELECT SUM(total_amount) FROM sales
				WHERE sale_date >= $1 AND sale_date < $2), 0) AS revenue,
			COALESCE((SELECT SUM(si.quantity_sold * b.cost_price)
				FROM sale_items si
				JOIN batches b ON b.batch_id = si.batch_id
				JOIN sales s ON s.sale_id = si.sale_id
				WHERE s.sale_date >= $1 AND s.sale_date < $2), 0) AS cogs,
			(SELECT COUNT(*) FROM sales
				WHERE sale_date >= $1 AND sale_date < $2) AS sale_count`

	productPerformanceSQL = `SELECT p.product_id, p.name,
			COALESCE(SUM(si.quantity_sold), 0) AS units_sold,
			COALESCE(SUM(si.quantity_sold * si.price_per_unit), 0) AS revenue
		FROM products p
		JOIN batches b ON b.product_id = p.product_id
		JOIN sale_items si ON si.batch_id = b.batch_id
		JOIN sales s ON s.sale_id = si.sale_id
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		GROUP BY p.product_id, p.name
		ORDER BY revenue DESC`

	inventoryReportSQL = `SELECT p.product_id, p.name,
			COALESCE(SUM(b.quantity), 0) AS stock_on_hand,
			p.reorder_level,
			MIN(b.expiry_date) FILTER (WHERE b.quantity > 0) AS next_expiry
		FROM products p
		LEFT JOIN batches b ON b.product_id = p.product_id
		GROUP BY p.product_id, p.name, p.reorder_level
		ORDER BY p.name`
)

var _ report.Repository = (*ReportRepository)(nil)

// ReportRepository implements report.Repository backed by PostgreSQL.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository returns a ReportRepository that uses the given pool.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) Sales(ctx context.Context, from, to time.Time) ([]report.SaleRow, error) {
	rows, err := r.pool.Query(ctx, salesReportSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales report: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.SaleRow, error) {
		var sr report.SaleRow
		err := row.Scan(&sr.SaleID, &sr.Date, &sr.Cashier, &sr.Customer, &sr.Discount, &sr.Total)
		return sr, err
	})
}

func (r *ReportRepository) SalesSummary(ctx context.Context, from, to time.Time) (*report.SalesSummary, error) {
	var s report.SalesSummary
	err := r.pool.QueryRow(ctx, salesSummarySQL, from, to).Scan(&s.Revenue, &s.COGS, &s.SaleCount)
	if err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}
	s.GrossProfit = s.Revenue.Sub(s.COGS)
	return &s, nil
}

func (r *ReportRepository) ProductPerformance(ctx context.Context, from, to time.Time) ([]report.ProductPerformanceRow, error) {
	rows, err := r.pool.Query(ctx, productPerformanceSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("product performance report: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.ProductPerformanceRow, error) {
		var pr report.ProductPerformanceRow
		err := row.Scan(&pr.ProductID, &pr.Name, &pr.UnitsSold, &pr.Revenue)
		return pr, err
	})
}

func (r *ReportRepository) Inventory(ctx context.Context) ([]report.InventoryRow, error) {
	rows, err := r.pool.Query(ctx, inventoryReportSQL)
	if err != nil {
		return nil, fmt.Errorf("inventory report: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.InventoryRow, error) {
		var ir report.InventoryRow
		err := row.Scan(&ir.ProductID, &ir.Name, &ir.StockOnHand, &ir.ReorderLevel, &ir.NextExpiry)
		ir.NeedsReorder = ir.StockOnHand <= ir.ReorderLevel
		return ir, err
	})
}
