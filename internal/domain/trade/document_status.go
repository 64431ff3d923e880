package trade

// DocumentType identifies the kind of transaction document
type DocumentType string

const (
	DocumentTypeSale           DocumentType = "sale"
	DocumentTypePurchase       DocumentType = "purchase"
	DocumentTypeTransfer       DocumentType = "transfer"
	DocumentTypeAdjustment     DocumentType = "adjustment"
	DocumentTypeSaleReturn     DocumentType = "sale_return"
	DocumentTypePurchaseReturn DocumentType = "purchase_return"
	DocumentTypeProduction     DocumentType = "production"
	DocumentTypeQuotation      DocumentType = "quotation"
)

// IsValid checks if the document type is valid
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeSale, DocumentTypePurchase, DocumentTypeTransfer, DocumentTypeAdjustment,
		DocumentTypeSaleReturn, DocumentTypePurchaseReturn, DocumentTypeProduction, DocumentTypeQuotation:
		return true
	}
	return false
}

// AffectsStock reports whether completing the document posts ledger deltas
func (t DocumentType) AffectsStock() bool {
	return t != DocumentTypeQuotation
}

// IsReturn reports whether the document reverses an earlier one
func (t DocumentType) IsReturn() bool {
	return t == DocumentTypeSaleReturn || t == DocumentTypePurchaseReturn
}

// IsPayable reports whether payments can be allocated against the document
func (t DocumentType) IsPayable() bool {
	switch t {
	case DocumentTypeSale, DocumentTypePurchase, DocumentTypeSaleReturn, DocumentTypePurchaseReturn:
		return true
	}
	return false
}

// UsesPromotions reports whether discount plans and coupons apply
func (t DocumentType) UsesPromotions() bool {
	return t == DocumentTypeSale || t == DocumentTypeQuotation
}

// ReturnOf gives the document type a return of this type must reference
func (t DocumentType) ReturnOf() DocumentType {
	switch t {
	case DocumentTypeSaleReturn:
		return DocumentTypeSale
	case DocumentTypePurchaseReturn:
		return DocumentTypePurchase
	}
	return ""
}

// Prefix is used for generated references
func (t DocumentType) Prefix() string {
	switch t {
	case DocumentTypeSale:
		return "SL"
	case DocumentTypePurchase:
		return "PR"
	case DocumentTypeTransfer:
		return "TR"
	case DocumentTypeAdjustment:
		return "ADJ"
	case DocumentTypeSaleReturn:
		return "RS"
	case DocumentTypePurchaseReturn:
		return "RP"
	case DocumentTypeProduction:
		return "PD"
	case DocumentTypeQuotation:
		return "QT"
	}
	return "DOC"
}

// DocumentStatus is the lifecycle state of a document
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"
	DocumentStatusPending   DocumentStatus = "PENDING"
	DocumentStatusCompleted DocumentStatus = "COMPLETED"
	DocumentStatusCancelled DocumentStatus = "CANCELLED"
	DocumentStatusDeleted   DocumentStatus = "DELETED"
)

// IsValid checks if the status is valid
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusPending, DocumentStatusCompleted, DocumentStatusCancelled, DocumentStatusDeleted:
		return true
	}
	return false
}

// String returns the string representation
func (s DocumentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Only COMPLETED and CANCELLED documents can be deleted; open documents are
// cancelled first. Deleting a completed document requires a compensating
// reversal handled by the engine.
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	switch s {
	case DocumentStatusDraft:
		return target == DocumentStatusPending || target == DocumentStatusCancelled
	case DocumentStatusPending:
		return target == DocumentStatusCompleted || target == DocumentStatusCancelled
	case DocumentStatusCompleted, DocumentStatusCancelled:
		return target == DocumentStatusDeleted
	case DocumentStatusDeleted:
		return false
	}
	return false
}

// IsEditable reports whether lines and prices can still change
func (s DocumentStatus) IsEditable() bool {
	return s == DocumentStatusDraft
}

// PaymentStatus is the settlement state of a payable document
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// LineDirection tells whether a line adds or removes stock
type LineDirection string

const (
	DirectionIn  LineDirection = "in"
	DirectionOut LineDirection = "out"
)

// IsValid checks if the direction is valid
func (d LineDirection) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}
