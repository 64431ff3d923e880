package trade

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeDocument is the aggregate type of documents
const AggregateTypeDocument = "Document"

// Event type constants
const (
	EventTypeDocumentCreated   = "DocumentCreated"
	EventTypeDocumentSubmitted = "DocumentSubmitted"
	EventTypeDocumentCompleted = "DocumentCompleted"
	EventTypeDocumentCancelled = "DocumentCancelled"
	EventTypeDocumentDeleted   = "DocumentDeleted"
)

// DocumentEvent is raised on every lifecycle change of a document
type DocumentEvent struct {
	shared.BaseDomainEvent
	DocumentID    uuid.UUID       `json:"document_id"`
	Reference     string          `json:"reference"`
	DocumentType  DocumentType    `json:"document_type"`
	Status        DocumentStatus  `json:"status"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	CustomerID    *uuid.UUID      `json:"customer_id,omitempty"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewDocumentEvent snapshots the document into an event of the given type
func NewDocumentEvent(eventType string, d *Document) *DocumentEvent {
	return &DocumentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeDocument, d.ID),
		DocumentID:      d.ID,
		Reference:       d.Reference,
		DocumentType:    d.Type,
		Status:          d.Status,
		WarehouseID:     d.WarehouseID,
		CustomerID:      d.CustomerID,
		GrandTotal:      d.GrandTotal,
		PaymentStatus:   d.PaymentStatus,
	}
}
