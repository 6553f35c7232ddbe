package api

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/quickshelf/pos/internal/domain/customer"
	"github.com/quickshelf/pos/internal/domain/order"
)

type orderItemPayload struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID int64              `json:"customer_id"`
	Items      []orderItemPayload `json:"items"`
}

type orderResponse struct {
	OrderID    int64              `json:"order_id"`
	CustomerID int64              `json:"customer_id"`
	Date       string             `json:"date"`
	Status     string             `json:"status"`
	Items      []orderItemPayload `json:"items,omitempty"`
}

type advanceOrderRequest struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

type customerResponse struct {
	CustomerID  int64  `json:"customer_id"`
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
}

type createCustomerRequest struct {
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderRead.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.Item{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	id, err := h.orders.Create(r.Context(), req.CustomerID, items)
	if err != nil {
		if errors.Is(err, order.ErrEmptyOrder) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]int64{"order_id": id})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orderRead.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(*o))
}

func (h *Handler) handleAdvanceOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}
	var req advanceOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orders.Advance(r.Context(), req.UserID, id, order.Status(req.Status)); err != nil {
		var invalid *order.InvalidTransitionError
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "order not found")
		case errors.As(err, &invalid):
			writeError(w, r, http.StatusUnprocessableEntity, invalid.Error())
		default:
			internalError(w, r, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = customerResponse{CustomerID: c.ID, Name: c.Name, ContactInfo: c.ContactInfo}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "name required")
		return
	}

	id, err := h.customers.Create(r.Context(), customer.Customer{
		Name:        req.Name,
		ContactInfo: req.ContactInfo,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]int64{"customer_id": id})
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid customer id")
		return
	}

	c, err := h.customers.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "customer not found")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, customerResponse{CustomerID: c.ID, Name: c.Name, ContactInfo: c.ContactInfo})
}

func (h *Handler) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid customer id")
		return
	}
	var req createCustomerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "name required")
		return
	}

	err = h.customers.Update(r.Context(), customer.Customer{
		ID:          id,
		Name:        req.Name,
		ContactInfo: req.ContactInfo,
	})
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "customer not found")
			return
		}
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid customer id")
		return
	}
	if err := h.customers.Delete(r.Context(), id); err != nil {
		if errors.Is(err, customer.ErrInUse) {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toOrderResponse(o order.Order) orderResponse {
	resp := orderResponse{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Date:       o.Date.Format("2006-01-02"),
		Status:     string(o.Status),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemPayload{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return resp
}
