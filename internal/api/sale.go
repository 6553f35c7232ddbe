package api

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/quickshelf/pos/internal/domain/inventory"
	"github.com/quickshelf/pos/internal/domain/sale"
)

type cartLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type createSaleRequest struct {
	UserID     int64             `json:"user_id"`
	CustomerID *int64            `json:"customer_id,omitempty"`
	Discount   decimal.Decimal   `json:"discount"`
	Cart       []cartLineRequest `json:"cart"`
}

type createSaleResponse struct {
	SaleID int64 `json:"sale_id"`
}

type saleResponse struct {
	SaleID     int64              `json:"sale_id"`
	UserID     int64              `json:"user_id"`
	CustomerID *int64             `json:"customer_id,omitempty"`
	Date       string             `json:"date"`
	Total      decimal.Decimal    `json:"total"`
	Discount   decimal.Decimal    `json:"discount"`
	Items      []saleItemResponse `json:"items"`
}

type saleItemResponse struct {
	BatchID      int64           `json:"batch_id"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

func (h *Handler) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	cart := make([]sale.CartLine, len(req.Cart))
	for i, line := range req.Cart {
		cart[i] = sale.CartLine{ProductID: line.ProductID, Quantity: line.Quantity}
	}

	saleID, err := h.sales.CreateSale(r.Context(), sale.CreateSaleRequest{
		UserID:     req.UserID,
		CustomerID: req.CustomerID,
		Discount:   req.Discount,
		Cart:       cart,
	})
	if err != nil {
		h.writeSaleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, createSaleResponse{SaleID: saleID})
}

// writeSaleError maps sale domain errors onto HTTP statuses. A conflict gets
// 409 plus Retry-After so clients know the whole call is retryable.
func (h *Handler) writeSaleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sale.ErrEmptyCart):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, sale.ErrConflict):
		w.Header().Set("Retry-After", "1")
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		var invalidQty *sale.InvalidQuantityError
		if errors.As(err, &invalidQty) {
			writeError(w, r, http.StatusUnprocessableEntity, invalidQty.Error())
			return
		}
		var insufficient *inventory.InsufficientStockError
		if errors.As(err, &insufficient) {
			writeError(w, r, http.StatusUnprocessableEntity, insufficient.Error())
			return
		}
		internalError(w, r, err)
	}
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid sale id")
		return
	}

	header, items, err := h.saleRead.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "sale not found")
		return
	}

	resp := saleResponse{
		SaleID:     header.ID,
		UserID:     header.UserID,
		CustomerID: header.CustomerID,
		Date:       header.Date.Format("2006-01-02T15:04:05Z07:00"),
		Total:      header.Total,
		Discount:   header.Discount,
		Items:      make([]saleItemResponse, len(items)),
	}
	for i, it := range items {
		resp.Items[i] = saleItemResponse{
			BatchID:      it.BatchID,
			Quantity:     it.Quantity,
			PricePerUnit: it.PricePerUnit,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}
