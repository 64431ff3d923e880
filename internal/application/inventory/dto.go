package inventory

import (
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeltaRequest is one signed change of stock, in the product's base unit
type DeltaRequest struct {
	ProductID   uuid.UUID                `json:"product_id" binding:"required"`
	WarehouseID uuid.UUID                `json:"warehouse_id" binding:"required"`
	VariantID   *uuid.UUID               `json:"variant_id"`
	BatchID     *uuid.UUID               `json:"batch_id"`
	Delta       decimal.Decimal          `json:"delta"`
	Reason      inventory.MovementReason `json:"reason" binding:"required"`
	DocumentID  *uuid.UUID               `json:"-"`
	LineID      *uuid.UUID               `json:"-"`
	// Exact applies the delta to the key as given, even an outgoing one
	// without a batch on a batch-tracked product
	Exact bool `json:"-"`
}

// Validate checks the request shape
func (r DeltaRequest) Validate() error {
	if r.ProductID == uuid.Nil || r.WarehouseID == uuid.Nil {
		return shared.NewValidationError("Product and warehouse are required")
	}
	if r.Delta.IsZero() {
		return shared.NewValidationError("Delta cannot be zero")
	}
	if !r.Reason.IsValid() {
		return shared.NewValidationError("Unknown movement reason %q", r.Reason)
	}
	return nil
}

func (r DeltaRequest) ref() inventory.DocumentRef {
	return inventory.DocumentRef{DocumentID: r.DocumentID, LineID: r.LineID}
}

// DeltaResult reports what a delta did to the ledger. Quantity is the new
// quantity of the key, or of all batches when the delta was split.
type DeltaResult struct {
	Tracked   bool                      `json:"tracked"`
	Movements []inventory.StockMovement `json:"movements"`
	Quantity  decimal.Decimal           `json:"quantity"`
}

// QuantityQuery addresses a stock key for reading
type QuantityQuery struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	VariantID   *uuid.UUID
	BatchID     *uuid.UUID
}
