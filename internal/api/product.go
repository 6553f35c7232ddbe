package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/quickshelf/pos/internal/domain/inventory"
	"github.com/quickshelf/pos/internal/domain/product"
)

type productResponse struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	ReorderLevel int    `json:"reorder_level"`
}

type createProductRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	ReorderLevel int    `json:"reorder_level"`
}

type listingResponse struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	InStock      int             `json:"in_stock"`
}

type batchResponse struct {
	BatchID         int64           `json:"batch_id"`
	ProductID       int64           `json:"product_id"`
	Number          string          `json:"batch_number"`
	Quantity        int             `json:"quantity"`
	ManufactureDate *string         `json:"manufacture_date,omitempty"`
	ExpiryDate      string          `json:"expiry_date"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
}

type receiveBatchRequest struct {
	UserID          int64           `json:"user_id"`
	ProductID       int64           `json:"product_id"`
	Number          string          `json:"batch_number"`
	Quantity        int             `json:"quantity"`
	ManufactureDate *string         `json:"manufacture_date,omitempty"`
	ExpiryDate      string          `json:"expiry_date"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ProductID:    p.ID,
			Name:         p.Name,
			Category:     string(p.Category),
			ReorderLevel: p.ReorderLevel,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	category := product.Category(req.Category)
	if req.Name == "" || !category.Valid() || req.ReorderLevel < 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "name, valid category and non-negative reorder level required")
		return
	}

	id, err := h.products.Create(r.Context(), product.Product{
		Name:         req.Name,
		Category:     category,
		ReorderLevel: req.ReorderLevel,
	})
	if err != nil {
		if errors.Is(err, product.ErrNameTaken) {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]int64{"product_id": id})
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, productResponse{
		ProductID:    p.ID,
		Name:         p.Name,
		Category:     string(p.Category),
		ReorderLevel: p.ReorderLevel,
	})
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}
	var req createProductRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	category := product.Category(req.Category)
	if req.Name == "" || !category.Valid() || req.ReorderLevel < 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "name, valid category and non-negative reorder level required")
		return
	}

	err = h.products.Update(r.Context(), product.Product{
		ID:           id,
		Name:         req.Name,
		Category:     category,
		ReorderLevel: req.ReorderLevel,
	})
	if err != nil {
		switch {
		case errors.Is(err, product.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "product not found")
		case errors.Is(err, product.ErrNameTaken):
			writeError(w, r, http.StatusConflict, err.Error())
		default:
			internalError(w, r, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Products with recorded sales cannot be deleted: their batches are still
// referenced by sale_items. Those products should be left in the catalog.
func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, product.ErrInUse) {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid batch id")
		return
	}
	if err := h.batches.Delete(r.Context(), id); err != nil {
		if errors.Is(err, inventory.ErrBatchInUse) {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListForSale(w http.ResponseWriter, r *http.Request) {
	listing, err := h.products.ListForSale(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]listingResponse, len(listing))
	for i, row := range listing {
		resp[i] = listingResponse{
			ProductID:    row.ProductID,
			Name:         row.Name,
			Category:     string(row.Category),
			SellingPrice: row.SellingPrice,
			InStock:      row.InStock,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	batches, err := h.batches.BatchesForProduct(r.Context(), id)
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]batchResponse, len(batches))
	for i, b := range batches {
		resp[i] = toBatchResponse(b)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleReceiveBatch(w http.ResponseWriter, r *http.Request) {
	var req receiveBatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "expiry_date must be YYYY-MM-DD")
		return
	}
	var manufacture *time.Time
	if req.ManufactureDate != nil {
		m, err := time.Parse("2006-01-02", *req.ManufactureDate)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "manufacture_date must be YYYY-MM-DD")
			return
		}
		manufacture = &m
	}

	id, err := h.receiving.Receive(r.Context(), req.UserID, inventory.NewBatch{
		ProductID:       req.ProductID,
		Number:          req.Number,
		Quantity:        req.Quantity,
		ManufactureDate: manufacture,
		ExpiryDate:      expiry,
		CostPrice:       req.CostPrice,
		SellingPrice:    req.SellingPrice,
	})
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrUnknownProduct):
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, inventory.ErrMissingNumber),
			errors.Is(err, inventory.ErrNegativeQuantity),
			errors.Is(err, inventory.ErrMissingExpiry),
			errors.Is(err, inventory.ErrNegativePrice):
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]int64{"batch_id": id})
}

func toBatchResponse(b inventory.Batch) batchResponse {
	resp := batchResponse{
		BatchID:      b.ID,
		ProductID:    b.ProductID,
		Number:       b.Number,
		Quantity:     b.Quantity,
		ExpiryDate:   b.ExpiryDate.Format("2006-01-02"),
		CostPrice:    b.CostPrice,
		SellingPrice: b.SellingPrice,
	}
	if b.ManufactureDate != nil {
		m := b.ManufactureDate.Format("2006-01-02")
		resp.ManufactureDate = &m
	}
	return resp
}
