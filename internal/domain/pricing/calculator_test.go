package pricing

import (
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculator_ComputeLine(t *testing.T) {
	calc := NewCalculator(2)

	tests := []struct {
		name                          string
		price, qty, discount, taxRate string
		method                        TaxMethod
		subtotal, tax, total          string
	}{
		{"exclusive tax", "10.00", "2", "0", "10", TaxMethodExclusive, "20", "2", "22"},
		{"inclusive tax", "11.00", "1", "0", "10", TaxMethodInclusive, "10", "1", "11"},
		{"exclusive with discount", "10", "3", "5", "10", TaxMethodExclusive, "25", "2.5", "27.5"},
		{"inclusive with discount", "22", "1", "11", "10", TaxMethodInclusive, "10", "1", "11"},
		{"no tax", "3.333", "3", "0", "0", TaxMethodExclusive, "10", "0", "10"},
		{"tax rounds per line", "0.05", "1", "0", "15", TaxMethodExclusive, "0.05", "0.01", "0.06"},
		{"empty method is exclusive", "10", "1", "0", "5", "", "10", "0.5", "10.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.ComputeLine(dec(tt.price), dec(tt.qty), dec(tt.discount), dec(tt.taxRate), tt.method)
			require.NoError(t, err)
			assert.True(t, got.Subtotal.Equal(dec(tt.subtotal)), "subtotal %s", got.Subtotal)
			assert.True(t, got.TaxAmount.Equal(dec(tt.tax)), "tax %s", got.TaxAmount)
			assert.True(t, got.LineTotal.Equal(dec(tt.total)), "total %s", got.LineTotal)
			assert.True(t, got.Subtotal.Add(got.TaxAmount).Equal(got.LineTotal))
		})
	}
}

func TestCalculator_ComputeLine_Rejects(t *testing.T) {
	calc := NewCalculator(2)

	_, err := calc.ComputeLine(dec("10"), dec("1"), dec("11"), dec("0"), TaxMethodExclusive)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = calc.ComputeLine(dec("-1"), dec("1"), dec("0"), dec("0"), TaxMethodExclusive)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = calc.ComputeLine(dec("1"), dec("1"), dec("0"), dec("0"), "vat")
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestCalculator_ComputeOrder(t *testing.T) {
	calc := NewCalculator(2)

	// three lines of 3.333 * 1 at 10% tax: each line rounds to 3.33 + 0.33 = 3.66
	var lines []LineAmounts
	for i := 0; i < 3; i++ {
		l, err := calc.ComputeLine(dec("3.333"), dec("1"), decimal.Zero, dec("10"), TaxMethodExclusive)
		require.NoError(t, err)
		lines = append(lines, l)
	}

	totals, err := calc.ComputeOrder(OrderInput{
		Lines:          lines,
		OrderDiscount:  dec("1"),
		CouponDiscount: dec("0.5"),
		OrderTaxRate:   dec("5"),
		ShippingCost:   dec("2"),
	})
	require.NoError(t, err)

	assert.True(t, totals.TotalPrice.Equal(dec("10.98")), "sum of rounded lines, not rounded sum")
	assert.True(t, totals.TotalTax.Equal(dec("0.99")))
	assert.True(t, totals.OrderDiscount.Equal(dec("1.5")))
	// (10.98 - 1.50) * 5% = 0.474
	assert.True(t, totals.OrderTax.Equal(dec("0.47")))
	assert.True(t, totals.GrandTotal.Equal(dec("11.95")))
	assert.True(t, totals.Balanced(dec("0.005")))

	_, err = calc.ComputeOrder(OrderInput{Lines: lines, OrderDiscount: dec("20")})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestCalculator_ComputeOrder_LineTaxInTotalPrice(t *testing.T) {
	calc := NewCalculator(2)

	exclusive, err := calc.ComputeLine(dec("20"), dec("2"), decimal.Zero, dec("10"), TaxMethodExclusive)
	require.NoError(t, err)
	inclusive, err := calc.ComputeLine(dec("11"), dec("1"), decimal.Zero, dec("10"), TaxMethodInclusive)
	require.NoError(t, err)
	lines := []LineAmounts{exclusive, inclusive}

	totals, err := calc.ComputeOrder(OrderInput{
		Lines:         lines,
		OrderDiscount: dec("5"),
		OrderTaxRate:  dec("10"),
		ShippingCost:  dec("3"),
	})
	require.NoError(t, err)

	subtotals := decimal.Zero
	for _, l := range lines {
		subtotals = subtotals.Add(l.Subtotal)
	}
	assert.True(t, subtotals.Equal(dec("50")))
	assert.True(t, totals.TotalTax.Equal(dec("5")))
	assert.True(t, totals.TotalPrice.Equal(subtotals.Add(totals.TotalTax)), "total price carries line tax")

	// order tax is charged on (55 - 5) on top of the line tax
	assert.True(t, totals.OrderTax.Equal(dec("5")))
	assert.True(t, totals.GrandTotal.Equal(dec("58")))
	expected := subtotals.Add(totals.TotalTax).Sub(totals.OrderDiscount).Add(totals.OrderTax).Add(totals.ShippingCost)
	assert.True(t, totals.GrandTotal.Equal(expected))
	assert.True(t, totals.Balanced(decimal.Zero))
}
