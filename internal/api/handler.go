// Package api exposes the application over HTTP with hand-written JSON
// handlers. Transport only: every decision is delegated to the domain
// services and repositories.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quickshelf/pos/internal/domain/audit"
	"github.com/quickshelf/pos/internal/domain/customer"
	"github.com/quickshelf/pos/internal/domain/inventory"
	"github.com/quickshelf/pos/internal/domain/order"
	"github.com/quickshelf/pos/internal/domain/product"
	"github.com/quickshelf/pos/internal/domain/report"
	"github.com/quickshelf/pos/internal/domain/sale"
	"github.com/quickshelf/pos/internal/domain/user"
)

// Handler routes API requests to the domain layer.
type Handler struct {
	products  product.Repository
	batches   inventory.Repository
	receiving *inventory.Receiving
	sales     *sale.Service
	saleRead  sale.Reader
	customers customer.Repository
	orders    *order.Service
	orderRead order.Repository
	users     *user.Service
	reports   report.Repository
	activity  audit.Repository
}

// Deps bundles everything the Handler needs.
type Deps struct {
	Products  product.Repository
	Batches   inventory.Repository
	Receiving *inventory.Receiving
	Sales     *sale.Service
	SaleRead  sale.Reader
	Customers customer.Repository
	Orders    *order.Service
	OrderRead order.Repository
	Users     *user.Service
	Reports   report.Repository
	Activity  audit.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(d Deps) *Handler {
	return &Handler{
		products:  d.Products,
		batches:   d.Batches,
		receiving: d.Receiving,
		sales:     d.Sales,
		saleRead:  d.SaleRead,
		customers: d.Customers,
		orders:    d.Orders,
		orderRead: d.OrderRead,
		users:     d.Users,
		reports:   d.Reports,
		activity:  d.Activity,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", h.handleLogin)

	mux.HandleFunc("GET /api/products", h.handleListProducts)
	mux.HandleFunc("POST /api/products", h.handleCreateProduct)
	mux.HandleFunc("GET /api/products/for-sale", h.handleListForSale)
	mux.HandleFunc("GET /api/products/{id}", h.handleGetProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.handleUpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.handleDeleteProduct)
	mux.HandleFunc("GET /api/products/{id}/batches", h.handleListBatches)
	mux.HandleFunc("POST /api/batches", h.handleReceiveBatch)
	mux.HandleFunc("DELETE /api/batches/{id}", h.handleDeleteBatch)

	mux.HandleFunc("POST /api/sales", h.handleCreateSale)
	mux.HandleFunc("GET /api/sales/{id}", h.handleGetSale)

	mux.HandleFunc("GET /api/customers", h.handleListCustomers)
	mux.HandleFunc("POST /api/customers", h.handleCreateCustomer)
	mux.HandleFunc("GET /api/customers/{id}", h.handleGetCustomer)
	mux.HandleFunc("PUT /api/customers/{id}", h.handleUpdateCustomer)
	mux.HandleFunc("DELETE /api/customers/{id}", h.handleDeleteCustomer)

	mux.HandleFunc("GET /api/users", h.handleListUsers)
	mux.HandleFunc("POST /api/users", h.handleCreateUser)
	mux.HandleFunc("PATCH /api/users/{id}/active", h.handleSetUserActive)

	mux.HandleFunc("GET /api/orders", h.handleListOrders)
	mux.HandleFunc("POST /api/orders", h.handleCreateOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.handleGetOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.handleAdvanceOrder)

	mux.HandleFunc("GET /api/reports/sales", h.handleSalesReport)
	mux.HandleFunc("GET /api/reports/products", h.handleProductPerformance)
	mux.HandleFunc("GET /api/reports/inventory", h.handleInventoryReport)
	mux.HandleFunc("GET /api/activity", h.handleActivity)

	return mux
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Code: status, Message: msg})
}

// decode reads the request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
