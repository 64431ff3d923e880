package settlement

import (
	"time"

	financeapp "github.com/erp/backoffice/internal/application/finance"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/pricing"
	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineRequest adds a line. Unit, price and tax default from the product.
type LineRequest struct {
	ProductID uuid.UUID           `json:"product_id" binding:"required"`
	VariantID *uuid.UUID          `json:"variant_id"`
	BatchID   *uuid.UUID          `json:"batch_id"`
	UnitID    *uuid.UUID          `json:"unit_id"`
	Direction trade.LineDirection `json:"direction" binding:"omitempty,oneof=in out"`
	Qty       decimal.Decimal     `json:"qty"`
	UnitPrice *decimal.Decimal    `json:"unit_price"`
	Discount  decimal.Decimal     `json:"discount"`
	TaxRate   *decimal.Decimal    `json:"tax_rate"`
	TaxMethod pricing.TaxMethod   `json:"tax_method" binding:"omitempty,oneof=exclusive inclusive"`
}

// CreateDocumentRequest creates a DRAFT document
type CreateDocumentRequest struct {
	Type               trade.DocumentType   `json:"type" binding:"required"`
	WarehouseID        uuid.UUID            `json:"warehouse_id" binding:"required"`
	ToWarehouseID      *uuid.UUID           `json:"to_warehouse_id"`
	CustomerID         *uuid.UUID           `json:"customer_id"`
	SupplierID         *uuid.UUID           `json:"supplier_id"`
	UserID             *uuid.UUID           `json:"-"`
	CashRegisterID     *uuid.UUID           `json:"cash_register_id"`
	ReturnOfID         *uuid.UUID           `json:"return_of_id"`
	IsPOS              bool                 `json:"-"`
	CouponCode         string               `json:"coupon_code" binding:"max=50"`
	OrderDiscountType  promotion.AmountType `json:"order_discount_type" binding:"omitempty,oneof=percentage fixed"`
	OrderDiscountValue decimal.Decimal      `json:"order_discount_value"`
	OrderTaxRate       decimal.Decimal      `json:"order_tax_rate"`
	ShippingCost       decimal.Decimal      `json:"shipping_cost"`
	Note               string               `json:"note" binding:"max=2000"`
	Lines              []LineRequest        `json:"lines" binding:"dive"`
}

func (r CreateDocumentRequest) input() trade.DocumentInput {
	return trade.DocumentInput{
		Type:               r.Type,
		WarehouseID:        r.WarehouseID,
		ToWarehouseID:      r.ToWarehouseID,
		CustomerID:         r.CustomerID,
		SupplierID:         r.SupplierID,
		UserID:             r.UserID,
		CashRegisterID:     r.CashRegisterID,
		ReturnOfID:         r.ReturnOfID,
		IsPOS:              r.IsPOS,
		CouponCode:         r.CouponCode,
		OrderDiscountType:  r.OrderDiscountType,
		OrderDiscountValue: r.OrderDiscountValue,
		OrderTaxRate:       r.OrderTaxRate,
		ShippingCost:       r.ShippingCost,
		Note:               r.Note,
	}
}

// TransitionRequest moves a document to another status
type TransitionRequest struct {
	DocumentID uuid.UUID            `json:"-"`
	To         trade.DocumentStatus `json:"to" binding:"required,oneof=PENDING COMPLETED CANCELLED DELETED"`
	UserID     *uuid.UUID           `json:"-"`
}

// ReceiveLine is a received quantity of one purchase line, in the line unit
type ReceiveLine struct {
	LineID uuid.UUID       `json:"line_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty"`
}

// ReceiveRequest records partial receipts of a purchase
type ReceiveRequest struct {
	DocumentID uuid.UUID     `json:"-"`
	Lines      []ReceiveLine `json:"lines" binding:"required,min=1,dive"`
}

// DeliverRequest delivers or packs lines of a sale
type DeliverRequest struct {
	DocumentID uuid.UUID   `json:"-"`
	LineIDs    []uuid.UUID `json:"line_ids" binding:"required,min=1"`
}

// POSPayment is one payment of a POS sale
type POSPayment struct {
	Amount decimal.Decimal
	Detail finance.MethodDetail
	Note   string
}

// POSSaleRequest is a sale settled at the till
type POSSaleRequest struct {
	Document CreateDocumentRequest
	Payments []POSPayment
}

// POSSaleResult is the completed sale and its payments
type POSSaleResult struct {
	Document *trade.Document
	Payments []finance.Payment
}

// POSSalePayload is the JSON form of a POS sale. The document is always a
// sale, so the header has no type.
type POSSalePayload struct {
	WarehouseID        uuid.UUID                           `json:"warehouse_id" binding:"required"`
	CustomerID         *uuid.UUID                          `json:"customer_id"`
	CashRegisterID     *uuid.UUID                          `json:"cash_register_id"`
	CouponCode         string                              `json:"coupon_code" binding:"max=50"`
	OrderDiscountType  promotion.AmountType                `json:"order_discount_type" binding:"omitempty,oneof=percentage fixed"`
	OrderDiscountValue decimal.Decimal                     `json:"order_discount_value"`
	OrderTaxRate       decimal.Decimal                     `json:"order_tax_rate"`
	ShippingCost       decimal.Decimal                     `json:"shipping_cost"`
	Note               string                              `json:"note" binding:"max=2000"`
	Lines              []LineRequest                       `json:"lines" binding:"required,min=1,dive"`
	Payments           []financeapp.AllocatePaymentRequest `json:"payments" binding:"dive"`
}

// ToPOSSaleRequest builds the sale header and decodes the payment details
func (p POSSalePayload) ToPOSSaleRequest(userID *uuid.UUID) (POSSaleRequest, error) {
	req := POSSaleRequest{Document: CreateDocumentRequest{
		Type:               trade.DocumentTypeSale,
		WarehouseID:        p.WarehouseID,
		CustomerID:         p.CustomerID,
		UserID:             userID,
		CashRegisterID:     p.CashRegisterID,
		CouponCode:         p.CouponCode,
		OrderDiscountType:  p.OrderDiscountType,
		OrderDiscountValue: p.OrderDiscountValue,
		OrderTaxRate:       p.OrderTaxRate,
		ShippingCost:       p.ShippingCost,
		Note:               p.Note,
		Lines:              p.Lines,
	}}
	for _, pay := range p.Payments {
		detail, err := finance.DecodeDetail(pay.Method, pay.Detail)
		if err != nil {
			return POSSaleRequest{}, err
		}
		if !pay.Amount.IsPositive() {
			return POSSaleRequest{}, shared.NewValidationError("Payment amount must be positive")
		}
		req.Payments = append(req.Payments, POSPayment{Amount: pay.Amount, Detail: detail, Note: pay.Note})
	}
	return req, nil
}

// LineResponse is a document line in API responses
type LineResponse struct {
	ID            uuid.UUID           `json:"id"`
	LineNo        int                 `json:"line_no"`
	ProductID     uuid.UUID           `json:"product_id"`
	VariantID     *uuid.UUID          `json:"variant_id,omitempty"`
	BatchID       *uuid.UUID          `json:"batch_id,omitempty"`
	UnitID        uuid.UUID           `json:"unit_id"`
	Direction     trade.LineDirection `json:"direction,omitempty"`
	Qty           decimal.Decimal     `json:"qty"`
	BaseQty       decimal.Decimal     `json:"base_qty"`
	Received      decimal.Decimal     `json:"received"`
	PostedBaseQty decimal.Decimal     `json:"posted_base_qty"`
	IsDelivered   bool                `json:"is_delivered"`
	IsPacking     bool                `json:"is_packing"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	Discount      decimal.Decimal     `json:"discount"`
	PromoDiscount decimal.Decimal     `json:"promo_discount"`
	TaxRate       decimal.Decimal     `json:"tax_rate"`
	TaxMethod     pricing.TaxMethod   `json:"tax_method"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	TaxAmount     decimal.Decimal     `json:"tax_amount"`
	LineTotal     decimal.Decimal     `json:"line_total"`
}

// DocumentResponse is a document in API responses
type DocumentResponse struct {
	ID                 uuid.UUID            `json:"id"`
	Reference          string               `json:"reference"`
	Type               trade.DocumentType   `json:"type"`
	Status             trade.DocumentStatus `json:"status"`
	PaymentStatus      trade.PaymentStatus  `json:"payment_status"`
	WarehouseID        uuid.UUID            `json:"warehouse_id"`
	ToWarehouseID      *uuid.UUID           `json:"to_warehouse_id,omitempty"`
	CustomerID         *uuid.UUID           `json:"customer_id,omitempty"`
	SupplierID         *uuid.UUID           `json:"supplier_id,omitempty"`
	CashRegisterID     *uuid.UUID           `json:"cash_register_id,omitempty"`
	ReturnOfID         *uuid.UUID           `json:"return_of_id,omitempty"`
	QuotationID        *uuid.UUID           `json:"quotation_id,omitempty"`
	IsPOS              bool                 `json:"is_pos"`
	CouponCode         string               `json:"coupon_code,omitempty"`
	OrderDiscountType  promotion.AmountType `json:"order_discount_type,omitempty"`
	OrderDiscountValue decimal.Decimal      `json:"order_discount_value"`
	OrderTaxRate       decimal.Decimal      `json:"order_tax_rate"`
	ShippingCost       decimal.Decimal      `json:"shipping_cost"`
	TotalQty           decimal.Decimal      `json:"total_qty"`
	TotalDiscount      decimal.Decimal      `json:"total_discount"`
	TotalTax           decimal.Decimal      `json:"total_tax"`
	TotalPrice         decimal.Decimal      `json:"total_price"`
	OrderDiscount      decimal.Decimal      `json:"order_discount"`
	CouponDiscount     decimal.Decimal      `json:"coupon_discount"`
	OrderTax           decimal.Decimal      `json:"order_tax"`
	GrandTotal         decimal.Decimal      `json:"grand_total"`
	PaidAmount         decimal.Decimal      `json:"paid_amount"`
	Note               string               `json:"note,omitempty"`
	Version            int                  `json:"version"`
	CreatedAt          time.Time            `json:"created_at"`
	SubmittedAt        *time.Time           `json:"submitted_at,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	DeletedAt          *time.Time           `json:"deleted_at,omitempty"`
	Lines              []LineResponse       `json:"lines"`
}

// ToDocumentResponse converts a document to its response
func ToDocumentResponse(d *trade.Document) DocumentResponse {
	lines := make([]LineResponse, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = LineResponse{
			ID:            l.ID,
			LineNo:        l.LineNo,
			ProductID:     l.ProductID,
			VariantID:     l.VariantID,
			BatchID:       l.BatchID,
			UnitID:        l.UnitID,
			Direction:     l.Direction,
			Qty:           l.Qty,
			BaseQty:       l.BaseQty,
			Received:      l.Received,
			PostedBaseQty: l.PostedBaseQty,
			IsDelivered:   l.IsDelivered,
			IsPacking:     l.IsPacking,
			UnitPrice:     l.UnitPrice,
			Discount:      l.Discount,
			PromoDiscount: l.PromoDiscount,
			TaxRate:       l.TaxRate,
			TaxMethod:     l.TaxMethod,
			Subtotal:      l.Subtotal,
			TaxAmount:     l.TaxAmount,
			LineTotal:     l.LineTotal,
		}
	}
	return DocumentResponse{
		ID:                 d.ID,
		Reference:          d.Reference,
		Type:               d.Type,
		Status:             d.Status,
		PaymentStatus:      d.PaymentStatus,
		WarehouseID:        d.WarehouseID,
		ToWarehouseID:      d.ToWarehouseID,
		CustomerID:         d.CustomerID,
		SupplierID:         d.SupplierID,
		CashRegisterID:     d.CashRegisterID,
		ReturnOfID:         d.ReturnOfID,
		QuotationID:        d.QuotationID,
		IsPOS:              d.IsPOS,
		CouponCode:         d.CouponCode,
		OrderDiscountType:  d.OrderDiscountType,
		OrderDiscountValue: d.OrderDiscountValue,
		OrderTaxRate:       d.OrderTaxRate,
		ShippingCost:       d.ShippingCost,
		TotalQty:           d.TotalQty,
		TotalDiscount:      d.TotalDiscount,
		TotalTax:           d.TotalTax,
		TotalPrice:         d.TotalPrice,
		OrderDiscount:      d.OrderDiscount,
		CouponDiscount:     d.CouponDiscount,
		OrderTax:           d.OrderTax,
		GrandTotal:         d.GrandTotal,
		PaidAmount:         d.PaidAmount,
		Note:               d.Note,
		Version:            d.Version,
		CreatedAt:          d.CreatedAt,
		SubmittedAt:        d.SubmittedAt,
		CompletedAt:        d.CompletedAt,
		CancelledAt:        d.CancelledAt,
		DeletedAt:          d.DeletedAt,
		Lines:              lines,
	}
}
