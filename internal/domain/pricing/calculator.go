// Package pricing computes line and document totals with per-line rounding.
package pricing

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TaxMethod tells whether the quoted price already contains tax
type TaxMethod string

const (
	TaxMethodExclusive TaxMethod = "exclusive"
	TaxMethodInclusive TaxMethod = "inclusive"
)

// IsValid checks if the tax method is valid
func (m TaxMethod) IsValid() bool {
	return m == TaxMethodExclusive || m == TaxMethodInclusive
}

var hundred = decimal.NewFromInt(100)

// LineAmounts is the rounded result of pricing one line
type LineAmounts struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Calculator applies tax and discounts, rounding every line to the
// configured number of decimals before anything is summed.
type Calculator struct {
	decimals int32
}

// NewCalculator creates a calculator rounding to the given decimals
func NewCalculator(decimals int32) *Calculator {
	if decimals < 0 {
		decimals = 0
	}
	return &Calculator{decimals: decimals}
}

// Decimals returns the rounding precision
func (c *Calculator) Decimals() int32 {
	return c.decimals
}

// ComputeLine prices a single line
func (c *Calculator) ComputeLine(unitPrice, qty, discount, taxRate decimal.Decimal, method TaxMethod) (LineAmounts, error) {
	if unitPrice.IsNegative() {
		return LineAmounts{}, shared.NewValidationError("Unit price cannot be negative")
	}
	if qty.IsNegative() {
		return LineAmounts{}, shared.NewValidationError("Quantity cannot be negative")
	}
	if discount.IsNegative() {
		return LineAmounts{}, shared.NewValidationError("Discount cannot be negative")
	}
	if taxRate.IsNegative() {
		return LineAmounts{}, shared.NewValidationError("Tax rate cannot be negative")
	}
	gross := unitPrice.Mul(qty)
	if discount.GreaterThan(gross) {
		return LineAmounts{}, shared.NewValidationError("Discount %s exceeds line amount %s", discount, gross)
	}
	net := gross.Sub(discount)

	switch method {
	case TaxMethodInclusive:
		total := net.Round(c.decimals)
		divisor := decimal.NewFromInt(1).Add(taxRate.Div(hundred))
		tax := total.Sub(total.Div(divisor)).Round(c.decimals)
		return LineAmounts{
			Subtotal:  total.Sub(tax),
			TaxAmount: tax,
			LineTotal: total,
		}, nil
	case TaxMethodExclusive, "":
		subtotal := net.Round(c.decimals)
		tax := subtotal.Mul(taxRate).Div(hundred).Round(c.decimals)
		return LineAmounts{
			Subtotal:  subtotal,
			TaxAmount: tax,
			LineTotal: subtotal.Add(tax),
		}, nil
	default:
		return LineAmounts{}, shared.NewValidationError("Unknown tax method %q", method)
	}
}

// OrderInput carries the order-level adjustments applied after line values
type OrderInput struct {
	Lines          []LineAmounts
	OrderDiscount  decimal.Decimal
	CouponDiscount decimal.Decimal
	OrderTaxRate   decimal.Decimal
	ShippingCost   decimal.Decimal
}

// OrderTotals is the document-level summary.
// GrandTotal = TotalPrice - OrderDiscount + OrderTax + ShippingCost, where
// OrderDiscount already includes the coupon discount.
type OrderTotals struct {
	TotalTax       decimal.Decimal `json:"total_tax"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	OrderDiscount  decimal.Decimal `json:"order_discount"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	OrderTax       decimal.Decimal `json:"order_tax"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// ComputeOrder sums rounded lines and applies order discount and tax
func (c *Calculator) ComputeOrder(in OrderInput) (OrderTotals, error) {
	if in.OrderDiscount.IsNegative() || in.CouponDiscount.IsNegative() {
		return OrderTotals{}, shared.NewValidationError("Order discount cannot be negative")
	}
	if in.OrderTaxRate.IsNegative() {
		return OrderTotals{}, shared.NewValidationError("Order tax rate cannot be negative")
	}
	if in.ShippingCost.IsNegative() {
		return OrderTotals{}, shared.NewValidationError("Shipping cost cannot be negative")
	}

	totals := OrderTotals{
		TotalTax:       decimal.Zero,
		TotalPrice:     decimal.Zero,
		CouponDiscount: in.CouponDiscount.Round(c.decimals),
		ShippingCost:   in.ShippingCost.Round(c.decimals),
	}
	for _, l := range in.Lines {
		totals.TotalTax = totals.TotalTax.Add(l.TaxAmount)
		totals.TotalPrice = totals.TotalPrice.Add(l.LineTotal)
	}
	totals.OrderDiscount = in.OrderDiscount.Round(c.decimals).Add(totals.CouponDiscount)
	if totals.OrderDiscount.GreaterThan(totals.TotalPrice) {
		return OrderTotals{}, shared.NewValidationError("Order discount %s exceeds order amount %s", totals.OrderDiscount, totals.TotalPrice)
	}

	base := totals.TotalPrice.Sub(totals.OrderDiscount)
	totals.OrderTax = base.Mul(in.OrderTaxRate).Div(hundred).Round(c.decimals)
	totals.GrandTotal = base.Add(totals.OrderTax).Add(totals.ShippingCost)
	return totals, nil
}

// Balanced reports whether totals satisfy the settlement identity within tolerance
func (t OrderTotals) Balanced(tolerance decimal.Decimal) bool {
	expected := t.TotalPrice.Add(t.OrderTax).Sub(t.OrderDiscount).Add(t.ShippingCost)
	return expected.Sub(t.GrandTotal).Abs().LessThanOrEqual(tolerance)
}
