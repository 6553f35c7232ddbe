package inventory

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quickshelf/pos/internal/domain/audit"
)

// ErrUnknownProduct is returned when a batch references a product that does
// not exist.
var ErrUnknownProduct = errors.New("unknown product")

// ErrBatchInUse is returned when deleting a batch that appears in recorded
// sales.
var ErrBatchInUse = errors.New("batch has recorded sales")

// Sentinel validation errors for incoming batches.
var (
	ErrNegativeQuantity = errors.New("batch quantity must not be negative")
	ErrNegativePrice    = errors.New("batch prices must not be negative")
	ErrMissingExpiry    = errors.New("batch expiry date is required")
	ErrMissingNumber    = errors.New("batch number is required")
)

// Receiving is the only stock-increasing path: it validates and stores
// incoming batches. Deductions happen exclusively through sale transactions.
type Receiving struct {
	batches Repository
	audit   audit.Recorder
}

// NewReceiving creates a Receiving service.
func NewReceiving(batches Repository, rec audit.Recorder) *Receiving {
	return &Receiving{batches: batches, audit: rec}
}

// Receive validates and stores one incoming batch, returning its new ID.
func (r *Receiving) Receive(ctx context.Context, userID int64, b NewBatch) (int64, error) {
	if err := validateBatch(b); err != nil {
		return 0, err
	}

	id, err := r.batches.Insert(ctx, b)
	if err != nil {
		return 0, errors.Wrap(err, "insert batch")
	}

	action := fmt.Sprintf("Received batch %q (%d units) for product %d.", b.Number, b.Quantity, b.ProductID)
	if err := r.audit.Record(ctx, userID, action); err != nil {
		zctx.From(ctx).Warn("Audit record failed", zap.Error(err))
	}
	return id, nil
}

func validateBatch(b NewBatch) error {
	switch {
	case b.Number == "":
		return ErrMissingNumber
	case b.Quantity < 0:
		return ErrNegativeQuantity
	case b.ExpiryDate.IsZero():
		return ErrMissingExpiry
	case b.CostPrice.IsNegative() || b.SellingPrice.IsNegative():
		return ErrNegativePrice
	}
	return nil
}
