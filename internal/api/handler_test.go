package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickshelf/pos/internal/domain/audit"
	"github.com/quickshelf/pos/internal/domain/customer"
	"github.com/quickshelf/pos/internal/domain/inventory"
	"github.com/quickshelf/pos/internal/domain/order"
	"github.com/quickshelf/pos/internal/domain/product"
	"github.com/quickshelf/pos/internal/domain/report"
	"github.com/quickshelf/pos/internal/domain/sale"
	"github.com/quickshelf/pos/internal/domain/user"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products  []product.Product
	listing   []product.ListingRow
	createErr error
	nextID    int64
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) Create(_ context.Context, p product.Product) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.nextID++
	p.ID = m.nextID
	m.products = append(m.products, p)
	return p.ID, nil
}

func (m *mockProductRepo) Update(_ context.Context, p product.Product) error {
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = p
			return nil
		}
	}
	return product.ErrNotFound
}

func (m *mockProductRepo) Delete(_ context.Context, id int64) error {
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockProductRepo) ListForSale(_ context.Context) ([]product.ListingRow, error) {
	return m.listing, nil
}

type mockBatchRepo struct {
	batches   []inventory.Batch
	insertErr error
	deleteErr error
	nextID    int64
}

func (m *mockBatchRepo) BatchesForProduct(_ context.Context, productID int64) ([]inventory.Batch, error) {
	var out []inventory.Batch
	for _, b := range m.batches {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	inventory.SortFEFO(out)
	return out, nil
}

func (m *mockBatchRepo) Insert(_ context.Context, b inventory.NewBatch) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	m.batches = append(m.batches, inventory.Batch{
		ID:           m.nextID,
		ProductID:    b.ProductID,
		Number:       b.Number,
		Quantity:     b.Quantity,
		ExpiryDate:   b.ExpiryDate,
		CostPrice:    b.CostPrice,
		SellingPrice: b.SellingPrice,
	})
	return m.nextID, nil
}

func (m *mockBatchRepo) Delete(_ context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i := range m.batches {
		if m.batches[i].ID == id {
			m.batches = append(m.batches[:i], m.batches[i+1:]...)
			return nil
		}
	}
	return nil
}

// mockSaleStore applies writes directly; handler tests only care about the
// outcome the service reports, not rollback mechanics.
type mockSaleStore struct {
	batches *mockBatchRepo
	sales   []sale.Sale
	items   []sale.Item
	txErr   error
}

func (m *mockSaleStore) InTx(ctx context.Context, fn func(ctx context.Context, tx sale.Tx) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(ctx, m)
}

func (m *mockSaleStore) BatchesForProduct(ctx context.Context, productID int64) ([]inventory.Batch, error) {
	return m.batches.BatchesForProduct(ctx, productID)
}

func (m *mockSaleStore) InsertSale(_ context.Context, s *sale.Sale) (int64, error) {
	s.ID = int64(len(m.sales) + 1)
	m.sales = append(m.sales, *s)
	return s.ID, nil
}

func (m *mockSaleStore) InsertItem(_ context.Context, item sale.Item) error {
	m.items = append(m.items, item)
	return nil
}

func (m *mockSaleStore) UpdateBatchQuantity(_ context.Context, batchID int64, quantity int) error {
	for i := range m.batches.batches {
		if m.batches.batches[i].ID == batchID {
			m.batches.batches[i].Quantity = quantity
		}
	}
	return nil
}

type mockSaleReader struct {
	sale  *sale.Sale
	items []sale.Item
	err   error
}

func (m *mockSaleReader) GetByID(_ context.Context, _ int64) (*sale.Sale, []sale.Item, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.sale, m.items, nil
}

type mockCustomerRepo struct {
	customers []customer.Customer
	deleteErr error
}

func (m *mockCustomerRepo) List(_ context.Context) ([]customer.Customer, error) {
	return m.customers, nil
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id int64) (*customer.Customer, error) {
	for i := range m.customers {
		if m.customers[i].ID == id {
			return &m.customers[i], nil
		}
	}
	return nil, customer.ErrNotFound
}

func (m *mockCustomerRepo) Create(_ context.Context, c customer.Customer) (int64, error) {
	c.ID = int64(len(m.customers) + 1)
	m.customers = append(m.customers, c)
	return c.ID, nil
}

func (m *mockCustomerRepo) Update(_ context.Context, c customer.Customer) error {
	for i := range m.customers {
		if m.customers[i].ID == c.ID {
			m.customers[i] = c
			return nil
		}
	}
	return customer.ErrNotFound
}

func (m *mockCustomerRepo) Delete(_ context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i := range m.customers {
		if m.customers[i].ID == id {
			m.customers = append(m.customers[:i], m.customers[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockOrderRepo struct {
	orders map[int64]*order.Order
	nextID int64
}

func (m *mockOrderRepo) List(_ context.Context) ([]order.Order, error) {
	out := make([]order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) Create(_ context.Context, o order.Order) (int64, error) {
	m.nextID++
	o.ID = m.nextID
	if m.orders == nil {
		m.orders = make(map[int64]*order.Order)
	}
	m.orders[o.ID] = &o
	return o.ID, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id int64, status order.Status) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	return nil
}

type mockUserRepo struct {
	users  map[string]*user.User
	nextID int64
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) Create(_ context.Context, u user.User) (int64, error) {
	if _, exists := m.users[u.Username]; exists {
		return 0, user.ErrUsernameTaken
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.Username] = &u
	return u.ID, nil
}

func (m *mockUserRepo) List(_ context.Context) ([]user.User, error) {
	out := make([]user.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	for _, u := range m.users {
		if u.ID == id {
			u.Active = active
			return nil
		}
	}
	return user.ErrNotFound
}

type mockAuditRepo struct {
	entries []audit.Entry
}

func (m *mockAuditRepo) Record(_ context.Context, userID int64, action string) error {
	m.entries = append(m.entries, audit.Entry{
		ID:     int64(len(m.entries) + 1),
		UserID: userID,
		At:     time.Now(),
		Action: action,
	})
	return nil
}

func (m *mockAuditRepo) List(_ context.Context, limit int) ([]audit.Entry, error) {
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], nil
}

type mockReportRepo struct {
	sales     []report.SaleRow
	summary   report.SalesSummary
	inventory []report.InventoryRow
}

func (m *mockReportRepo) Sales(_ context.Context, _, _ time.Time) ([]report.SaleRow, error) {
	return m.sales, nil
}

func (m *mockReportRepo) SalesSummary(_ context.Context, _, _ time.Time) (*report.SalesSummary, error) {
	return &m.summary, nil
}

func (m *mockReportRepo) ProductPerformance(_ context.Context, _, _ time.Time) ([]report.ProductPerformanceRow, error) {
	return nil, nil
}

func (m *mockReportRepo) Inventory(_ context.Context) ([]report.InventoryRow, error) {
	return m.inventory, nil
}

// --- Helpers ---

type testEnv struct {
	handler   http.Handler
	products  *mockProductRepo
	batches   *mockBatchRepo
	store     *mockSaleStore
	audit     *mockAuditRepo
	orders    *mockOrderRepo
	reader    *mockSaleReader
	customers *mockCustomerRepo
	accounts  *mockUserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	batches := &mockBatchRepo{nextID: 100}
	store := &mockSaleStore{batches: batches}
	auditRepo := &mockAuditRepo{}
	orders := &mockOrderRepo{}
	reader := &mockSaleReader{err: errors.New("no such sale")}
	products := &mockProductRepo{}

	hash, err := user.HashPassword("s3cret")
	require.NoError(t, err)
	users := &mockUserRepo{nextID: 2, users: map[string]*user.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: hash, Role: user.RoleAdmin, Active: true},
		"bob":   {ID: 2, Username: "bob", PasswordHash: hash, Role: user.RoleStaff, Active: false},
	}}
	customers := &mockCustomerRepo{}

	h := NewHandler(Deps{
		Products:  products,
		Batches:   batches,
		Receiving: inventory.NewReceiving(batches, auditRepo),
		Sales:     sale.NewService(store, auditRepo, sale.TotalSumOfItems),
		SaleRead:  reader,
		Customers: customers,
		Orders:    order.NewService(orders, auditRepo),
		OrderRead: orders,
		Users:     user.NewService(users, auditRepo, []byte("test-secret"), time.Hour),
		Reports:   &mockReportRepo{},
		Activity:  auditRepo,
	})
	return &testEnv{
		handler:   h.Routes(),
		products:  products,
		batches:   batches,
		store:     store,
		audit:     auditRepo,
		orders:    orders,
		reader:    reader,
		customers: customers,
		accounts:  users,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func testDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// --- Tests ---

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", loginRequest{Username: "alice", Password: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[loginResponse](t, rec)
	assert.Equal(t, int64(1), resp.UserID)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "Admin", resp.Role)
	assert.NotEmpty(t, resp.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", loginRequest{Username: "alice", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_InactiveAccount(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", loginRequest{Username: "bob", Password: "s3cret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", loginRequest{Username: "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/products", createProductRequest{
		Name:         "Spring Water 600ml",
		Category:     "Water",
		ReorderLevel: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[map[string]int64](t, rec)
	assert.Equal(t, int64(1), resp["product_id"])
}

func TestCreateProduct_BadCategory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/products", createProductRequest{
		Name:     "Mystery Item",
		Category: "Hardware",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateProduct_DuplicateName(t *testing.T) {
	env := newTestEnv(t)
	env.products.createErr = product.ErrNameTaken

	rec := env.do(t, http.MethodPost, "/api/products", createProductRequest{
		Name:     "Spring Water 600ml",
		Category: "Water",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListForSale(t *testing.T) {
	env := newTestEnv(t)
	env.products.listing = []product.ListingRow{
		{ProductID: 1, Name: "Cola 330ml", Category: product.CategorySoftDrink, SellingPrice: decimal.NewFromInt(50), InStock: 12},
	}

	rec := env.do(t, http.MethodGet, "/api/products/for-sale", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]listingResponse](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, "Cola 330ml", resp[0].Name)
	assert.Equal(t, 12, resp[0].InStock)
}

func TestReceiveBatch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/batches", receiveBatchRequest{
		UserID:       1,
		ProductID:    7,
		Number:       "B-2026-001",
		Quantity:     24,
		ExpiryDate:   "2027-03-01",
		CostPrice:    decimal.NewFromInt(30),
		SellingPrice: decimal.NewFromInt(50),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[map[string]int64](t, rec)
	assert.Equal(t, int64(101), resp["batch_id"])
	require.Len(t, env.audit.entries, 1)
	assert.Equal(t, int64(1), env.audit.entries[0].UserID)
}

func TestReceiveBatch_BadExpiry(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/batches", receiveBatchRequest{
		UserID:     1,
		ProductID:  7,
		Number:     "B-2026-001",
		Quantity:   24,
		ExpiryDate: "March 1st",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReceiveBatch_MissingNumber(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/batches", receiveBatchRequest{
		UserID:     1,
		ProductID:  7,
		Quantity:   24,
		ExpiryDate: "2027-03-01",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateSale(t *testing.T) {
	env := newTestEnv(t)
	env.batches.batches = []inventory.Batch{
		{ID: 10, ProductID: 1, Number: "B1", Quantity: 5, ExpiryDate: testDate(2026, 10, 1), SellingPrice: decimal.NewFromInt(50)},
		{ID: 11, ProductID: 1, Number: "B2", Quantity: 6, ExpiryDate: testDate(2026, 12, 1), SellingPrice: decimal.NewFromInt(55)},
	}

	rec := env.do(t, http.MethodPost, "/api/sales", createSaleRequest{
		UserID: 1,
		Cart:   []cartLineRequest{{ProductID: 1, Quantity: 8}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[createSaleResponse](t, rec)
	assert.Equal(t, int64(1), resp.SaleID)

	require.Len(t, env.store.items, 2)
	assert.Equal(t, 5, env.store.items[0].Quantity)
	assert.Equal(t, 3, env.store.items[1].Quantity)
	require.Len(t, env.store.sales, 1)
	assert.True(t, decimal.NewFromInt(415).Equal(env.store.sales[0].Total),
		"got total %s", env.store.sales[0].Total)
}

func TestCreateSale_EmptyCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sales", createSaleRequest{UserID: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSale_InvalidQuantity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sales", createSaleRequest{
		UserID: 1,
		Cart:   []cartLineRequest{{ProductID: 1, Quantity: 0}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateSale_InsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	env.batches.batches = []inventory.Batch{
		{ID: 10, ProductID: 1, Number: "B1", Quantity: 2, ExpiryDate: testDate(2026, 10, 1), SellingPrice: decimal.NewFromInt(50)},
	}

	rec := env.do(t, http.MethodPost, "/api/sales", createSaleRequest{
		UserID: 1,
		Cart:   []cartLineRequest{{ProductID: 1, Quantity: 3}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeBody[errorBody](t, rec)
	assert.Contains(t, resp.Message, "insufficient stock")
}

func TestCreateSale_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.store.txErr = sale.ErrConflict

	rec := env.do(t, http.MethodPost, "/api/sales", createSaleRequest{
		UserID: 1,
		Cart:   []cartLineRequest{{ProductID: 1, Quantity: 1}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestGetSale(t *testing.T) {
	env := newTestEnv(t)
	env.reader.err = nil
	env.reader.sale = &sale.Sale{
		ID:       3,
		UserID:   1,
		Date:     testDate(2026, 9, 1),
		Total:    decimal.NewFromInt(100),
		Discount: decimal.Zero,
	}
	env.reader.items = []sale.Item{{SaleID: 3, BatchID: 10, Quantity: 2, PricePerUnit: decimal.NewFromInt(50)}}

	rec := env.do(t, http.MethodGet, "/api/sales/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[saleResponse](t, rec)
	assert.Equal(t, int64(3), resp.SaleID)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(10), resp.Items[0].BatchID)
}

func TestGetSale_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/sales/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		CustomerID: 4,
		Items:      []orderItemPayload{{ProductID: 1, Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[map[string]int64](t, rec)
	created := env.orders.orders[resp["order_id"]]
	require.NotNil(t, created)
	assert.Equal(t, order.StatusReceived, created.Status)
}

func TestAdvanceOrder(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.orders.Create(context.Background(), order.Order{
		CustomerID: 4,
		Status:     order.StatusReceived,
		Items:      []order.Item{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPatch, "/api/orders/1/status", advanceOrderRequest{UserID: 1, Status: "Ready to Pack"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, order.StatusReadyToPack, env.orders.orders[id].Status)
	require.NotEmpty(t, env.audit.entries)
	assert.Contains(t, env.audit.entries[len(env.audit.entries)-1].Action, "Ready to Pack")
}

func TestAdvanceOrder_Backwards(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orders.Create(context.Background(), order.Order{
		CustomerID: 4,
		Status:     order.StatusCompleted,
		Items:      []order.Item{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPatch, "/api/orders/1/status", advanceOrderRequest{Status: "Received"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdvanceOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/orders/42/status", advanceOrderRequest{Status: "Completed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSalesReport_BadRange(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/reports/sales?from=yesterday&to=today", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSalesReport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/reports/sales?from=2026-08-01&to=2026-08-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[salesReportResponse](t, rec)
	assert.Empty(t, resp.Sales)
	assert.Equal(t, 0, resp.Summary.SaleCount)
}

func TestActivity_BadLimit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/activity?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)
	env.products.products = []product.Product{
		{ID: 1, Name: "Still Water 500ml", Category: product.CategoryWater, ReorderLevel: 10},
	}

	rec := env.do(t, http.MethodGet, "/api/products/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[productResponse](t, rec)
	assert.Equal(t, "Still Water 500ml", resp.Name)
	assert.Equal(t, "Water", resp.Category)

	rec = env.do(t, http.MethodGet, "/api/products/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProduct(t *testing.T) {
	env := newTestEnv(t)
	env.products.products = []product.Product{
		{ID: 1, Name: "Still Water 500ml", Category: product.CategoryWater, ReorderLevel: 10},
	}

	rec := env.do(t, http.MethodPut, "/api/products/1", createProductRequest{
		Name:         "Sparkling Water 500ml",
		Category:     "Water",
		ReorderLevel: 20,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Sparkling Water 500ml", env.products.products[0].Name)
	assert.Equal(t, 20, env.products.products[0].ReorderLevel)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/products/42", createProductRequest{
		Name:     "Ghost Water",
		Category: "Water",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProduct_BadCategory(t *testing.T) {
	env := newTestEnv(t)
	env.products.products = []product.Product{
		{ID: 1, Name: "Still Water 500ml", Category: product.CategoryWater},
	}

	rec := env.do(t, http.MethodPut, "/api/products/1", createProductRequest{
		Name:     "Still Water 500ml",
		Category: "Cement",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	env.products.products = []product.Product{
		{ID: 1, Name: "Still Water 500ml", Category: product.CategoryWater},
	}

	rec := env.do(t, http.MethodDelete, "/api/products/1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.products.products)
}

func TestDeleteBatch(t *testing.T) {
	env := newTestEnv(t)
	env.batches.batches = []inventory.Batch{{ID: 7, ProductID: 1, Number: "B-7", Quantity: 5}}

	rec := env.do(t, http.MethodDelete, "/api/batches/7", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.batches.batches)
}

func TestDeleteBatch_RecordedSales(t *testing.T) {
	env := newTestEnv(t)
	env.batches.deleteErr = inventory.ErrBatchInUse

	rec := env.do(t, http.MethodDelete, "/api/batches/7", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetCustomer(t *testing.T) {
	env := newTestEnv(t)
	env.customers.customers = []customer.Customer{{ID: 3, Name: "Corner Cafe", ContactInfo: "071 555 0100"}}

	rec := env.do(t, http.MethodGet, "/api/customers/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[customerResponse](t, rec)
	assert.Equal(t, "Corner Cafe", resp.Name)

	rec = env.do(t, http.MethodGet, "/api/customers/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCustomer(t *testing.T) {
	env := newTestEnv(t)
	env.customers.customers = []customer.Customer{{ID: 3, Name: "Corner Cafe"}}

	rec := env.do(t, http.MethodPut, "/api/customers/3", createCustomerRequest{
		Name:        "Corner Cafe & Deli",
		ContactInfo: "071 555 0100",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Corner Cafe & Deli", env.customers.customers[0].Name)

	rec = env.do(t, http.MethodPut, "/api/customers/99", createCustomerRequest{Name: "Nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCustomer(t *testing.T) {
	env := newTestEnv(t)
	env.customers.customers = []customer.Customer{{ID: 3, Name: "Corner Cafe"}}

	rec := env.do(t, http.MethodDelete, "/api/customers/3", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.customers.customers)
}

func TestDeleteCustomer_Referenced(t *testing.T) {
	env := newTestEnv(t)
	env.customers.deleteErr = customer.ErrInUse

	rec := env.do(t, http.MethodDelete, "/api/customers/3", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]userResponse](t, rec)
	require.Len(t, resp, 2)
	for _, u := range resp {
		assert.NotEmpty(t, u.Username)
		assert.NotEmpty(t, u.Role)
	}
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", createUserRequest{
		UserID:   1,
		Username: "carol",
		Password: "hunter2hunter2",
		Role:     "Staff",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := env.accounts.users["carol"]
	require.NotNil(t, created)
	assert.True(t, created.Active)
	assert.Equal(t, user.RoleStaff, created.Role)
	assert.NotEqual(t, "hunter2hunter2", created.PasswordHash)

	require.NotEmpty(t, env.audit.entries)
	assert.Contains(t, env.audit.entries[len(env.audit.entries)-1].Action, "carol")
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", createUserRequest{
		UserID:   1,
		Username: "alice",
		Password: "whatever",
		Role:     "Staff",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateUser_BadRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", createUserRequest{
		UserID:   1,
		Username: "carol",
		Password: "whatever",
		Role:     "Overlord",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSetUserActive(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/users/2/active", setUserActiveRequest{UserID: 1, Active: true})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, env.accounts.users["bob"].Active)

	require.NotEmpty(t, env.audit.entries)
	assert.Contains(t, env.audit.entries[len(env.audit.entries)-1].Action, "Activated")
}

func TestSetUserActive_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/users/42/active", setUserActiveRequest{UserID: 1, Active: false})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
