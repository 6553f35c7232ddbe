package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type salesReportResponse struct {
	Sales   []saleReportRow    `json:"sales"`
	Summary salesReportSummary `json:"summary"`
}

type saleReportRow struct {
	SaleID   int64           `json:"sale_id"`
	Date     string          `json:"date"`
	Cashier  string          `json:"cashier"`
	Customer string          `json:"customer,omitempty"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

type salesReportSummary struct {
	Revenue     decimal.Decimal `json:"revenue"`
	COGS        decimal.Decimal `json:"cogs"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	SaleCount   int             `json:"sale_count"`
}

type productPerformanceRow struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type inventoryReportRow struct {
	ProductID    int64   `json:"product_id"`
	Name         string  `json:"name"`
	StockOnHand  int     `json:"stock_on_hand"`
	ReorderLevel int     `json:"reorder_level"`
	NeedsReorder bool    `json:"needs_reorder"`
	NextExpiry   *string `json:"next_expiry,omitempty"`
}

type activityRow struct {
	UserID int64  `json:"user_id"`
	At     string `json:"at"`
	Action string `json:"action"`
}

// reportRange parses ?from=YYYY-MM-DD&to=YYYY-MM-DD. The `to` day is
// inclusive: it is extended to the following midnight.
func reportRange(r *http.Request) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, to.AddDate(0, 0, 1), true
}

func (h *Handler) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := reportRange(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "from and to query parameters must be YYYY-MM-DD")
		return
	}

	rows, err := h.reports.Sales(r.Context(), from, to)
	if err != nil {
		internalError(w, r, err)
		return
	}
	summary, err := h.reports.SalesSummary(r.Context(), from, to)
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := salesReportResponse{
		Sales: make([]saleReportRow, len(rows)),
		Summary: salesReportSummary{
			Revenue:     summary.Revenue,
			COGS:        summary.COGS,
			GrossProfit: summary.GrossProfit,
			SaleCount:   summary.SaleCount,
		},
	}
	for i, row := range rows {
		resp.Sales[i] = saleReportRow{
			SaleID:   row.SaleID,
			Date:     row.Date.Format(time.RFC3339),
			Cashier:  row.Cashier,
			Customer: row.Customer,
			Discount: row.Discount,
			Total:    row.Total,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleProductPerformance(w http.ResponseWriter, r *http.Request) {
	from, to, ok := reportRange(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "from and to query parameters must be YYYY-MM-DD")
		return
	}

	rows, err := h.reports.ProductPerformance(r.Context(), from, to)
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]productPerformanceRow, len(rows))
	for i, row := range rows {
		resp[i] = productPerformanceRow{
			ProductID: row.ProductID,
			Name:      row.Name,
			UnitsSold: row.UnitsSold,
			Revenue:   row.Revenue,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleInventoryReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.Inventory(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]inventoryReportRow, len(rows))
	for i, row := range rows {
		resp[i] = inventoryReportRow{
			ProductID:    row.ProductID,
			Name:         row.Name,
			StockOnHand:  row.StockOnHand,
			ReorderLevel: row.ReorderLevel,
			NeedsReorder: row.NeedsReorder,
		}
		if row.NextExpiry != nil {
			d := row.NextExpiry.Format("2006-01-02")
			resp[i].NextExpiry = &d
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	entries, err := h.activity.List(r.Context(), limit)
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]activityRow, len(entries))
	for i, e := range entries {
		resp[i] = activityRow{
			UserID: e.UserID,
			At:     e.At.Format(time.RFC3339),
			Action: e.Action,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}
