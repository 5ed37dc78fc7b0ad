package revenue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileLineRecoversOriginalPrice(t *testing.T) {
	amounts, err := ReconcileLine(OrderLine{ItemID: 1, Quantity: 2, PriceAtPurchase: 90}, 10)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, amounts.OriginalUnitPrice, 1e-9)
	assert.InDelta(t, 200.0, amounts.Subtotal, 1e-9)
	assert.InDelta(t, 20.0, amounts.Discount, 1e-9)
	assert.InDelta(t, 180.0, amounts.Taxable, 1e-9)
}

func TestReconcileLineFullDiscountIsGuarded(t *testing.T) {
	amounts, err := ReconcileLine(OrderLine{ItemID: 1, Quantity: 3, PriceAtPurchase: 40}, 100)
	require.NoError(t, err)

	assert.Equal(t, 40.0, amounts.OriginalUnitPrice)
	assert.Equal(t, 120.0, amounts.Subtotal)
	assert.Equal(t, 120.0, amounts.Discount)
	assert.Equal(t, 0.0, amounts.Taxable)
}

func TestReconcileLineZeroDiscountIdentity(t *testing.T) {
	for _, price := range []float64{0, 0.01, 1, 99.99, 12345.67} {
		amounts, err := ReconcileLine(OrderLine{ItemID: 7, Quantity: 4, PriceAtPurchase: price}, 0)
		require.NoError(t, err)
		assert.Equal(t, price, amounts.OriginalUnitPrice)
		assert.Equal(t, 0.0, amounts.Discount)
	}
}

func TestReconcileLineRoundTrip(t *testing.T) {
	prices := []float64{0.5, 9.99, 90, 1234.56}
	for _, price := range prices {
		for pct := 0.0; pct < 100; pct += 7.5 {
			amounts, err := ReconcileLine(OrderLine{ItemID: 1, Quantity: 5, PriceAtPurchase: price}, pct)
			require.NoError(t, err)
			assert.InDelta(t, price, amounts.OriginalUnitPrice*(1-pct/100), 1e-9, "price %.2f pct %.1f", price, pct)
			assert.InDelta(t, price*5, amounts.Taxable, 1e-6)
		}
	}
}

func TestReconcileLineRejectsMalformedData(t *testing.T) {
	cases := map[string]struct {
		line OrderLine
		pct  float64
	}{
		"zero quantity":     {line: OrderLine{Quantity: 0, PriceAtPurchase: 10}},
		"negative price":    {line: OrderLine{Quantity: 1, PriceAtPurchase: -1}},
		"negative discount": {line: OrderLine{Quantity: 1, PriceAtPurchase: 10}, pct: -5},
		"discount over 100": {line: OrderLine{Quantity: 1, PriceAtPurchase: 10}, pct: 100.5},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReconcileLine(tc.line, tc.pct)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestCurrentDiscountsPrefersFrozenDiscount(t *testing.T) {
	frozen := 5.0
	lookup := CurrentDiscounts(map[int64]Item{1: {ID: 1, DiscountPercent: 25}})

	pct, err := lookup(OrderLine{ItemID: 1, DiscountPercent: &frozen})
	require.NoError(t, err)
	assert.Equal(t, 5.0, pct)

	pct, err = lookup(OrderLine{ItemID: 1})
	require.NoError(t, err)
	assert.Equal(t, 25.0, pct)

	_, err = lookup(OrderLine{ItemID: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrItemNotFound)
}
