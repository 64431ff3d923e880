package trade

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentFilter narrows document listings
type DocumentFilter struct {
	shared.Filter
	Type        DocumentType
	Status      DocumentStatus
	WarehouseID *uuid.UUID
	CustomerID  *uuid.UUID
	QuotationID *uuid.UUID
}

// DocumentRepository persists documents with their lines
type DocumentRepository interface {
	// FindByID loads the document and its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// FindByIDForUpdate loads and row-locks the document header
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Document, error)
	FindAll(ctx context.Context, filter DocumentFilter) ([]Document, int64, error)
	// Create inserts the document and its lines
	Create(ctx context.Context, doc *Document) error
	// SaveWithLock replaces lines and saves the header if the version
	// still matches the one loaded
	SaveWithLock(ctx context.Context, doc *Document) error
	// ReturnedQuantities sums the base quantities of pending and completed
	// returns of the original document per product, variant and batch,
	// leaving out the return being checked
	ReturnedQuantities(ctx context.Context, originalID, excludeID uuid.UUID) (map[ReturnKey]decimal.Decimal, error)
}

// ReturnKey identifies what a return line gives back
type ReturnKey struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	BatchID   uuid.UUID
}

// ReturnKeyOf builds the key of a line
func ReturnKeyOf(l *DocumentLine) ReturnKey {
	k := ReturnKey{ProductID: l.ProductID}
	if l.VariantID != nil {
		k.VariantID = *l.VariantID
	}
	if l.BatchID != nil {
		k.BatchID = *l.BatchID
	}
	return k
}
