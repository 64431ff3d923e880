// Package trade holds transaction documents (sales, purchases, transfers,
// adjustments, returns, production and quotations) and their lifecycle.
package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/pricing"
	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Document is the aggregate root for every transaction document
type Document struct {
	shared.BaseAggregateRoot
	Reference      string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type           DocumentType   `gorm:"type:varchar(20);not null;index"`
	Status         DocumentStatus `gorm:"type:varchar(20);not null;index"`
	PaymentStatus  PaymentStatus  `gorm:"type:varchar(20);not null;default:'unpaid'"`
	WarehouseID    uuid.UUID      `gorm:"type:uuid;not null"`
	ToWarehouseID  *uuid.UUID     `gorm:"type:uuid"`
	CustomerID     *uuid.UUID     `gorm:"type:uuid;index"`
	SupplierID     *uuid.UUID     `gorm:"type:uuid;index"`
	UserID         *uuid.UUID     `gorm:"type:uuid"`
	CashRegisterID *uuid.UUID     `gorm:"type:uuid"`
	ReturnOfID     *uuid.UUID     `gorm:"type:uuid;index"`
	QuotationID    *uuid.UUID     `gorm:"type:uuid"`
	IsPOS          bool           `gorm:"not null;default:false"`

	CouponCode         string               `gorm:"type:varchar(50)"`
	CouponID           *uuid.UUID           `gorm:"type:uuid"`
	OrderDiscountType  promotion.AmountType `gorm:"type:varchar(20)"`
	OrderDiscountValue decimal.Decimal      `gorm:"type:decimal(20,4);not null;default:0"`
	OrderTaxRate       decimal.Decimal      `gorm:"type:decimal(10,4);not null;default:0"`
	ShippingCost       decimal.Decimal      `gorm:"type:decimal(20,4);not null;default:0"`

	TotalQty       decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	TotalDiscount  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalTax       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	OrderDiscount  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CouponDiscount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	OrderTax       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	GrandTotal     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	Note        string `gorm:"type:text"`
	SubmittedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	DeletedAt   *time.Time

	Lines []DocumentLine `gorm:"foreignKey:DocumentID"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// DocumentInput is the header data used to create a document
type DocumentInput struct {
	Type               DocumentType
	WarehouseID        uuid.UUID
	ToWarehouseID      *uuid.UUID
	CustomerID         *uuid.UUID
	SupplierID         *uuid.UUID
	UserID             *uuid.UUID
	CashRegisterID     *uuid.UUID
	ReturnOfID         *uuid.UUID
	IsPOS              bool
	CouponCode         string
	OrderDiscountType  promotion.AmountType
	OrderDiscountValue decimal.Decimal
	OrderTaxRate       decimal.Decimal
	ShippingCost       decimal.Decimal
	Note               string
}

// NewDocument creates a DRAFT document
func NewDocument(in DocumentInput) (*Document, error) {
	if !in.Type.IsValid() {
		return nil, shared.NewValidationError("Unknown document type %q", in.Type)
	}
	if in.WarehouseID == uuid.Nil {
		return nil, shared.NewValidationError("Warehouse is required")
	}
	if in.Type == DocumentTypeTransfer {
		if in.ToWarehouseID == nil || *in.ToWarehouseID == uuid.Nil {
			return nil, shared.NewValidationError("Transfer requires a destination warehouse")
		}
		if *in.ToWarehouseID == in.WarehouseID {
			return nil, shared.NewValidationError("Transfer source and destination must differ")
		}
	}
	if in.Type.IsReturn() && (in.ReturnOfID == nil || *in.ReturnOfID == uuid.Nil) {
		return nil, shared.NewValidationError("A return must reference the original document")
	}
	if in.CouponCode != "" && !in.Type.UsesPromotions() {
		return nil, shared.NewValidationError("Coupons only apply to sales")
	}
	if in.OrderDiscountType != "" && !in.OrderDiscountType.IsValid() {
		return nil, shared.NewValidationError("Unknown order discount type %q", in.OrderDiscountType)
	}
	if in.OrderDiscountValue.IsNegative() || in.OrderTaxRate.IsNegative() || in.ShippingCost.IsNegative() {
		return nil, shared.NewValidationError("Order discount, tax rate and shipping cannot be negative")
	}

	root := shared.NewBaseAggregateRoot()
	doc := &Document{
		BaseAggregateRoot:  root,
		Reference:          generateReference(in.Type, root.ID, root.CreatedAt),
		Type:               in.Type,
		Status:             DocumentStatusDraft,
		PaymentStatus:      PaymentStatusUnpaid,
		WarehouseID:        in.WarehouseID,
		ToWarehouseID:      in.ToWarehouseID,
		CustomerID:         in.CustomerID,
		SupplierID:         in.SupplierID,
		UserID:             in.UserID,
		CashRegisterID:     in.CashRegisterID,
		ReturnOfID:         in.ReturnOfID,
		IsPOS:              in.IsPOS,
		CouponCode:         promotion.NormalizeCode(in.CouponCode),
		OrderDiscountType:  in.OrderDiscountType,
		OrderDiscountValue: in.OrderDiscountValue,
		OrderTaxRate:       in.OrderTaxRate,
		ShippingCost:       in.ShippingCost,
		Note:               in.Note,
		Lines:              make([]DocumentLine, 0),
	}
	doc.AddDomainEvent(NewDocumentEvent(EventTypeDocumentCreated, doc))
	return doc, nil
}

func generateReference(t DocumentType, id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s", t.Prefix(), at.Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// AddLine appends a line. Only DRAFT documents accept lines.
func (d *Document) AddLine(in LineInput) (*DocumentLine, error) {
	if !d.Status.IsEditable() {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidStateTransition,
			"Cannot add lines to a %s document", d.Status)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if d.needsDirection() && in.Direction == "" {
		return nil, shared.NewValidationError("%s lines require a direction", d.Type)
	}
	line := newDocumentLine(d.ID, len(d.Lines)+1, in)
	d.Lines = append(d.Lines, *line)
	d.touch()
	return &d.Lines[len(d.Lines)-1], nil
}

// RemoveLine drops a line from a DRAFT document
func (d *Document) RemoveLine(lineID uuid.UUID) error {
	if !d.Status.IsEditable() {
		return shared.NewDomainErrorf(shared.CodeInvalidStateTransition,
			"Cannot remove lines from a %s document", d.Status)
	}
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
			for j := range d.Lines {
				d.Lines[j].LineNo = j + 1
			}
			d.touch()
			return nil
		}
	}
	return shared.NewDomainErrorf(shared.CodeNotFound, "Line %s not found", lineID)
}

// Line returns the line with the id
func (d *Document) Line(lineID uuid.UUID) *DocumentLine {
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			return &d.Lines[i]
		}
	}
	return nil
}

func (d *Document) needsDirection() bool {
	return d.Type == DocumentTypeAdjustment || d.Type == DocumentTypeProduction
}

// Reprice recomputes every line and the document totals. lineDiscounts
// holds promotional discounts by line id; couponDiscount is order level.
func (d *Document) Reprice(calc *pricing.Calculator, lineDiscounts map[uuid.UUID]decimal.Decimal, couponDiscount decimal.Decimal) error {
	amounts := make([]pricing.LineAmounts, 0, len(d.Lines))
	totalQty := decimal.Zero
	totalDiscount := decimal.Zero

	for i := range d.Lines {
		l := &d.Lines[i]
		l.PromoDiscount = decimal.Zero
		if promo, ok := lineDiscounts[l.ID]; ok {
			l.PromoDiscount = decimal.Min(promo, decimal.Max(l.Gross().Sub(l.Discount), decimal.Zero))
		}
		discount := l.TotalDiscount()
		a, err := calc.ComputeLine(l.UnitPrice, l.Qty, discount, l.TaxRate, l.TaxMethod)
		if err != nil {
			return fmt.Errorf("line %d: %w", l.LineNo, err)
		}
		l.applyAmounts(a)
		amounts = append(amounts, a)
		totalQty = totalQty.Add(l.Qty)
		totalDiscount = totalDiscount.Add(discount)
	}

	lineSum := decimal.Zero
	for _, a := range amounts {
		lineSum = lineSum.Add(a.LineTotal)
	}
	manual := d.OrderDiscountValue
	if d.OrderDiscountType == promotion.AmountPercentage {
		manual = lineSum.Mul(d.OrderDiscountValue).Div(hundred)
	}
	// the coupon never pushes the order below zero
	couponDiscount = decimal.Min(couponDiscount, decimal.Max(lineSum.Sub(manual.Round(calc.Decimals())), decimal.Zero))

	totals, err := calc.ComputeOrder(pricing.OrderInput{
		Lines:          amounts,
		OrderDiscount:  manual,
		CouponDiscount: couponDiscount,
		OrderTaxRate:   d.OrderTaxRate,
		ShippingCost:   d.ShippingCost,
	})
	if err != nil {
		return err
	}

	d.TotalQty = totalQty
	d.TotalDiscount = totalDiscount.Round(calc.Decimals())
	d.TotalTax = totals.TotalTax
	d.TotalPrice = totals.TotalPrice
	d.OrderDiscount = totals.OrderDiscount
	d.CouponDiscount = totals.CouponDiscount
	d.OrderTax = totals.OrderTax
	d.GrandTotal = totals.GrandTotal
	d.touch()
	return nil
}

// Totals returns the document totals for invariant checks
func (d *Document) Totals() pricing.OrderTotals {
	return pricing.OrderTotals{
		TotalTax:       d.TotalTax,
		TotalPrice:     d.TotalPrice,
		OrderDiscount:  d.OrderDiscount,
		CouponDiscount: d.CouponDiscount,
		OrderTax:       d.OrderTax,
		ShippingCost:   d.ShippingCost,
		GrandTotal:     d.GrandTotal,
	}
}

// SetCoupon records the coupon chosen during pricing
func (d *Document) SetCoupon(couponID *uuid.UUID) {
	d.CouponID = couponID
}

// Submit moves DRAFT to PENDING once lines are validated and priced
func (d *Document) Submit() error {
	if err := d.transitionTo(DocumentStatusPending); err != nil {
		return err
	}
	if len(d.Lines) == 0 {
		return shared.NewValidationError("Cannot submit a document without lines")
	}
	now := time.Now()
	d.Status = DocumentStatusPending
	d.SubmittedAt = &now
	d.touch()
	d.AddDomainEvent(NewDocumentEvent(EventTypeDocumentSubmitted, d))
	return nil
}

// Complete moves PENDING to COMPLETED. Ledger postings are done by the
// caller in the same unit of work.
func (d *Document) Complete() error {
	if err := d.transitionTo(DocumentStatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	d.Status = DocumentStatusCompleted
	d.CompletedAt = &now
	for i := range d.Lines {
		if d.Type == DocumentTypeSale {
			d.Lines[i].IsDelivered = true
		}
		if d.Type == DocumentTypePurchase {
			d.Lines[i].Received = d.Lines[i].Qty
		}
	}
	d.touch()
	d.AddDomainEvent(NewDocumentEvent(EventTypeDocumentCompleted, d))
	return nil
}

// Cancel moves DRAFT or PENDING to CANCELLED
func (d *Document) Cancel() error {
	if err := d.transitionTo(DocumentStatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	d.Status = DocumentStatusCancelled
	d.CancelledAt = &now
	d.touch()
	d.AddDomainEvent(NewDocumentEvent(EventTypeDocumentCancelled, d))
	return nil
}

// MarkDeleted moves the document to the terminal DELETED state
func (d *Document) MarkDeleted() error {
	if err := d.transitionTo(DocumentStatusDeleted); err != nil {
		return err
	}
	now := time.Now()
	d.Status = DocumentStatusDeleted
	d.DeletedAt = &now
	d.touch()
	d.AddDomainEvent(NewDocumentEvent(EventTypeDocumentDeleted, d))
	return nil
}

func (d *Document) transitionTo(target DocumentStatus) error {
	if !d.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError(d.Status.String(), target.String())
	}
	return nil
}

// IsTerminal reports whether no further lifecycle change is possible
func (d *Document) IsTerminal() bool {
	return d.Status == DocumentStatusDeleted
}

// HasPostings reports whether any line has posted ledger deltas
func (d *Document) HasPostings() bool {
	for i := range d.Lines {
		if d.Lines[i].PostedBaseQty.IsPositive() {
			return true
		}
	}
	return false
}

func (d *Document) touch() {
	d.UpdatedAt = time.Now()
}

// Posting is one ledger delta derived from a line
type Posting struct {
	LineID uuid.UUID
	Key    inventory.StockKey
	// Delta is signed in base units
	Delta  decimal.Decimal
	Reason inventory.MovementReason
}

// lineEffects returns the sign and reason of a line's ledger effect for
// each warehouse it touches.
func (d *Document) lineEffects(l *DocumentLine) []Posting {
	out := func(reason inventory.MovementReason) Posting {
		return Posting{LineID: l.ID, Key: l.StockKey(d.WarehouseID), Delta: decimal.NewFromInt(-1), Reason: reason}
	}
	in := func(wh uuid.UUID, reason inventory.MovementReason) Posting {
		return Posting{LineID: l.ID, Key: l.StockKey(wh), Delta: decimal.NewFromInt(1), Reason: reason}
	}
	switch d.Type {
	case DocumentTypeSale:
		return []Posting{out(inventory.ReasonSale)}
	case DocumentTypePurchase:
		return []Posting{in(d.WarehouseID, inventory.ReasonPurchase)}
	case DocumentTypeTransfer:
		return []Posting{out(inventory.ReasonTransferOut), in(*d.ToWarehouseID, inventory.ReasonTransferIn)}
	case DocumentTypeSaleReturn:
		return []Posting{in(d.WarehouseID, inventory.ReasonSaleReturn)}
	case DocumentTypePurchaseReturn:
		return []Posting{out(inventory.ReasonPurchaseReturn)}
	case DocumentTypeAdjustment:
		if l.Direction == DirectionOut {
			return []Posting{out(inventory.ReasonAdjustmentOut)}
		}
		return []Posting{in(d.WarehouseID, inventory.ReasonAdjustmentIn)}
	case DocumentTypeProduction:
		if l.Direction == DirectionOut {
			return []Posting{out(inventory.ReasonProductionOut)}
		}
		return []Posting{in(d.WarehouseID, inventory.ReasonProductionIn)}
	}
	return nil
}

// PostingsFor returns the ledger deltas for posting baseQty of a line
func (d *Document) PostingsFor(l *DocumentLine, baseQty decimal.Decimal) []Posting {
	if !d.Type.AffectsStock() || !baseQty.IsPositive() {
		return nil
	}
	effects := d.lineEffects(l)
	for i := range effects {
		effects[i].Delta = effects[i].Delta.Mul(baseQty)
	}
	return effects
}

// UnpostedPostings returns the deltas for everything not yet posted.
// Outgoing deltas come first so transfers never credit before debiting.
func (d *Document) UnpostedPostings() []Posting {
	var outs, ins []Posting
	for i := range d.Lines {
		l := &d.Lines[i]
		for _, p := range d.PostingsFor(l, l.UnpostedBaseQty()) {
			if p.Delta.IsNegative() {
				outs = append(outs, p)
			} else {
				ins = append(ins, p)
			}
		}
	}
	return append(outs, ins...)
}

// MarkPosted records base quantity posted for a line
func (d *Document) MarkPosted(lineID uuid.UUID, baseQty decimal.Decimal) {
	if l := d.Line(lineID); l != nil {
		l.PostedBaseQty = l.PostedBaseQty.Add(baseQty)
		l.UpdatedAt = time.Now()
	}
}

// MarkAllPosted records every line as fully posted
func (d *Document) MarkAllPosted() {
	for i := range d.Lines {
		d.Lines[i].PostedBaseQty = d.Lines[i].BaseQty
	}
}

// ClearPostings records every line as unposted after a reversal
func (d *Document) ClearPostings() {
	for i := range d.Lines {
		d.Lines[i].PostedBaseQty = decimal.Zero
	}
}

// ReceiveLine records a partial purchase receipt in the line unit and
// returns the newly received quantity.
func (d *Document) ReceiveLine(lineID uuid.UUID, qty decimal.Decimal) (*DocumentLine, error) {
	if d.Type != DocumentTypePurchase {
		return nil, shared.NewValidationError("Only purchases can be received")
	}
	if d.Status != DocumentStatusPending {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidStateTransition,
			"Cannot receive a %s purchase", d.Status)
	}
	if !qty.IsPositive() {
		return nil, shared.NewValidationError("Received quantity must be positive")
	}
	l := d.Line(lineID)
	if l == nil {
		return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Line %s not found", lineID)
	}
	if l.Received.Add(qty).GreaterThan(l.Qty) {
		return nil, shared.NewValidationError("Line %d: receiving %s would exceed ordered %s (already received %s)",
			l.LineNo, qty, l.Qty, l.Received)
	}
	l.Received = l.Received.Add(qty)
	l.UpdatedAt = time.Now()
	d.touch()
	return l, nil
}

// DeliverLine marks a sale line delivered
func (d *Document) DeliverLine(lineID uuid.UUID) (*DocumentLine, error) {
	if d.Type != DocumentTypeSale {
		return nil, shared.NewValidationError("Only sales can be delivered")
	}
	if d.Status != DocumentStatusPending {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidStateTransition,
			"Cannot deliver a %s sale", d.Status)
	}
	l := d.Line(lineID)
	if l == nil {
		return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Line %s not found", lineID)
	}
	if l.IsDelivered {
		return nil, shared.NewValidationError("Line %d is already delivered", l.LineNo)
	}
	l.IsPacking = false
	l.IsDelivered = true
	l.UpdatedAt = time.Now()
	d.touch()
	return l, nil
}

// PackLine marks a sale line as being packed
func (d *Document) PackLine(lineID uuid.UUID) error {
	l := d.Line(lineID)
	if l == nil {
		return shared.NewDomainErrorf(shared.CodeNotFound, "Line %s not found", lineID)
	}
	if !l.IsDelivered {
		l.IsPacking = true
		l.UpdatedAt = time.Now()
	}
	return nil
}

// ReceivedBaseQty converts the received quantity of a line to base units
func (l *DocumentLine) ReceivedBaseQty() decimal.Decimal {
	if l.Qty.IsZero() {
		return decimal.Zero
	}
	if l.Received.Equal(l.Qty) {
		return l.BaseQty
	}
	return l.BaseQty.Mul(l.Received).Div(l.Qty)
}

// ApplyPaid updates paid amount and payment status
func (d *Document) ApplyPaid(paid, epsilon decimal.Decimal) {
	d.PaidAmount = paid
	d.PaymentStatus = DerivePaymentStatus(d.PaymentStatus, paid, d.GrandTotal, epsilon)
	d.touch()
}

// Outstanding returns what is still to be paid
func (d *Document) Outstanding() decimal.Decimal {
	return decimal.Max(d.GrandTotal.Sub(d.PaidAmount), decimal.Zero)
}

// DerivePaymentStatus computes the payment status from the paid sum. A
// document that was paid and drops below its total through a compensating
// payment becomes refunded.
func DerivePaymentStatus(current PaymentStatus, paid, grandTotal, epsilon decimal.Decimal) PaymentStatus {
	if paid.Add(epsilon).GreaterThanOrEqual(grandTotal) && grandTotal.IsPositive() {
		return PaymentStatusPaid
	}
	if current == PaymentStatusPaid || current == PaymentStatusRefunded {
		return PaymentStatusRefunded
	}
	if paid.Abs().LessThanOrEqual(epsilon) {
		return PaymentStatusUnpaid
	}
	return PaymentStatusPartial
}
