package sale

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quickshelf/pos/internal/domain/audit"
	"github.com/quickshelf/pos/internal/domain/inventory"
)

// TotalPolicy selects how the sale header's total is computed when a cart
// line spans batches with different prices.
type TotalPolicy int

const (
	// TotalSumOfItems makes the header total equal the sum of the persisted
	// line items, each at the price of the batch it was drawn from. Default.
	TotalSumOfItems TotalPolicy = iota
	// TotalFrontBatchPrice charges the whole requested quantity of a line at
	// the earliest-expiring batch's price, even when later units come from a
	// differently priced batch. This reproduces the historical register
	// behavior; the header can then disagree with the line-item sum.
	TotalFrontBatchPrice
)

// CreateSaleRequest is the input for finalizing one sale.
type CreateSaleRequest struct {
	UserID     int64
	CustomerID *int64 // nil = walk-in
	Discount   decimal.Decimal
	Cart       []CartLine
}

// Service coordinates sale finalization: one transaction covering stock
// validation, allocation, header and item inserts, and batch deductions.
type Service struct {
	store  Store
	audit  audit.Recorder
	policy TotalPolicy
}

// NewService creates a sale Service with the given total policy.
func NewService(store Store, rec audit.Recorder, policy TotalPolicy) *Service {
	return &Service{store: store, audit: rec, policy: policy}
}

// plannedLine pairs a cart line with its computed allocation plan and the
// FEFO-front unit price quoted for the whole line.
type plannedLine struct {
	line       CartLine
	plan       []inventory.Allocation
	frontPrice decimal.Decimal
}

// CreateSale validates the cart, plans FEFO deductions for every line, and
// persists the sale header, its items, and the batch deductions as one atomic
// unit. On any failure nothing is written. Returns the new sale's ID.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (int64, error) {
	if len(req.Cart) == 0 {
		return 0, ErrEmptyCart
	}
	for _, line := range req.Cart {
		if line.Quantity <= 0 {
			return 0, &InvalidQuantityError{ProductID: line.ProductID}
		}
	}
	if req.Discount.IsNegative() {
		return 0, errors.New("discount must not be negative")
	}

	var saleID int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		// Each product is read once; later lines for the same product
		// allocate against the snapshot left by earlier lines.
		snapshot := make(map[int64][]inventory.Batch)
		original := make(map[int64]int) // batchID -> quantity before this sale

		planned := make([]plannedLine, 0, len(req.Cart))
		for _, line := range req.Cart {
			batches, ok := snapshot[line.ProductID]
			if !ok {
				var err error
				batches, err = tx.BatchesForProduct(ctx, line.ProductID)
				if err != nil {
					return errors.Wrapf(err, "read batches for product %d", line.ProductID)
				}
				for _, b := range batches {
					original[b.ID] = b.Quantity
				}
				snapshot[line.ProductID] = batches
			}

			plan, err := inventory.Allocate(line.ProductID, batches, line.Quantity)
			if err != nil {
				return err
			}

			// The plan only succeeds when at least one batch has stock, so
			// the front price is always resolvable here.
			front, err := inventory.UnitPrice(batches)
			if err != nil {
				return err
			}

			snapshot[line.ProductID] = applyPlan(batches, plan)
			planned = append(planned, plannedLine{line: line, plan: plan, frontPrice: front})
		}

		total := s.totalFor(planned).Sub(req.Discount)
		if total.IsNegative() {
			total = decimal.Zero
		}
		total = total.Round(2)

		header := &Sale{
			UserID:     req.UserID,
			CustomerID: req.CustomerID,
			Total:      total,
			Discount:   req.Discount.Round(2),
		}
		id, err := tx.InsertSale(ctx, header)
		if err != nil {
			return errors.Wrap(err, "insert sale")
		}

		for _, pl := range planned {
			for _, alloc := range pl.plan {
				item := Item{
					SaleID:       id,
					BatchID:      alloc.BatchID,
					Quantity:     alloc.Quantity,
					PricePerUnit: alloc.UnitPrice,
				}
				if err := tx.InsertItem(ctx, item); err != nil {
					return errors.Wrapf(err, "insert sale item for batch %d", alloc.BatchID)
				}
				original[alloc.BatchID] -= alloc.Quantity
				if err := tx.UpdateBatchQuantity(ctx, alloc.BatchID, original[alloc.BatchID]); err != nil {
					return errors.Wrapf(err, "deduct batch %d", alloc.BatchID)
				}
			}
		}

		saleID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	action := fmt.Sprintf("Finalized sale #%d (%d lines).", saleID, len(req.Cart))
	if err := s.audit.Record(ctx, req.UserID, action); err != nil {
		zctx.From(ctx).Warn("Audit record failed", zap.Error(err))
	}
	return saleID, nil
}

// totalFor computes the pre-discount total under the configured policy.
func (s *Service) totalFor(planned []plannedLine) decimal.Decimal {
	total := decimal.Zero
	for _, pl := range planned {
		switch s.policy {
		case TotalFrontBatchPrice:
			qty := decimal.NewFromInt(int64(pl.line.Quantity))
			total = total.Add(pl.frontPrice.Mul(qty))
		default:
			for _, alloc := range pl.plan {
				qty := decimal.NewFromInt(int64(alloc.Quantity))
				total = total.Add(alloc.UnitPrice.Mul(qty))
			}
		}
	}
	return total
}

// applyPlan returns a copy of batches with the plan's deductions applied, so
// later cart lines of the same product see the remaining stock.
func applyPlan(batches []inventory.Batch, plan []inventory.Allocation) []inventory.Batch {
	taken := make(map[int64]int, len(plan))
	for _, alloc := range plan {
		taken[alloc.BatchID] += alloc.Quantity
	}
	out := make([]inventory.Batch, len(batches))
	copy(out, batches)
	for i := range out {
		out[i].Quantity -= taken[out[i].ID]
	}
	return out
}
