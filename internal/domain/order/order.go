// Package order tracks customer orders through their fulfillment stages.
// Orders reserve nothing: stock only moves when a sale is finalized.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quickshelf/pos/internal/domain/audit"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrEmptyOrder is returned when an order is created with no items.
var ErrEmptyOrder = errors.New("order items required")

// Status is an order's fulfillment stage. Transitions only move forward.
type Status string

const (
	StatusReceived          Status = "Received"
	StatusReadyToPack       Status = "Ready to Pack"
	StatusReadyToDistribute Status = "Ready to Distribute"
	StatusCompleted         Status = "Completed"
)

// rank orders the statuses for transition checks.
var rank = map[Status]int{
	StatusReceived:          0,
	StatusReadyToPack:       1,
	StatusReadyToDistribute: 2,
	StatusCompleted:         3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := rank[s]
	return ok
}

// InvalidTransitionError indicates an attempt to move an order backwards or
// to an unknown status.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %q to %q", e.From, e.To)
}

// CanTransition reports whether an order may move from its current status to
// the target. Skipping stages forward is allowed; moving backwards is not.
func CanTransition(from, to Status) bool {
	rf, okFrom := rank[from]
	rt, okTo := rank[to]
	return okFrom && okTo && rt > rf
}

// Order is a customer's request for products, fulfilled later at the register.
type Order struct {
	ID         int64
	CustomerID int64
	Date       time.Time
	Status     Status
	Items      []Item
}

// Item is one requested product line on an order.
type Item struct {
	ProductID int64
	Quantity  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
	Create(ctx context.Context, o Order) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

// Service validates order creation and status changes.
type Service struct {
	orders Repository
	audit  audit.Recorder
}

// NewService creates an order Service.
func NewService(orders Repository, rec audit.Recorder) *Service {
	return &Service{orders: orders, audit: rec}
}

// Create stores a new order in the Received status.
func (s *Service) Create(ctx context.Context, customerID int64, items []Item) (int64, error) {
	if len(items) == 0 {
		return 0, ErrEmptyOrder
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return 0, errors.Errorf("quantity must be greater than 0 for product %d", it.ProductID)
		}
	}
	id, err := s.orders.Create(ctx, Order{
		CustomerID: customerID,
		Date:       time.Now().UTC(),
		Status:     StatusReceived,
		Items:      items,
	})
	if err != nil {
		return 0, errors.Wrap(err, "create order")
	}
	return id, nil
}

// Advance moves an order to the target status, enforcing forward-only
// transitions. The change is recorded against the acting user.
func (s *Service) Advance(ctx context.Context, userID, orderID int64, to Status) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}
	if err := s.orders.UpdateStatus(ctx, orderID, to); err != nil {
		return err
	}

	action := fmt.Sprintf("Moved order #%d from %q to %q.", orderID, o.Status, to)
	if err := s.audit.Record(ctx, userID, action); err != nil {
		zctx.From(ctx).Warn("Audit record failed", zap.Error(err))
	}
	return nil
}
