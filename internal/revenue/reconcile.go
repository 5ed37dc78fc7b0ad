package revenue

import (
	"fmt"
	"math"
)

// LineAmounts is the reconciled split of a single order line.
type LineAmounts struct {
	OriginalUnitPrice float64
	Subtotal          float64
	Discount          float64
	Taxable           float64
}

// ReconcileLine recovers the pre-discount unit price of a line and splits it
// into subtotal, discount and taxable amounts.
func ReconcileLine(line OrderLine, discountPercent float64) (LineAmounts, error) {
	if line.Quantity < 1 {
		return LineAmounts{}, fmt.Errorf("%w: item %d quantity %d must be at least 1", ErrValidation, line.ItemID, line.Quantity)
	}
	if line.PriceAtPurchase < 0 || math.IsNaN(line.PriceAtPurchase) {
		return LineAmounts{}, fmt.Errorf("%w: item %d price_at_purchase %.2f is negative", ErrValidation, line.ItemID, line.PriceAtPurchase)
	}
	if discountPercent < 0 || discountPercent > 100 || math.IsNaN(discountPercent) {
		return LineAmounts{}, fmt.Errorf("%w: item %d discount %.2f outside [0,100]", ErrValidation, line.ItemID, discountPercent)
	}

	original := line.PriceAtPurchase
	if discountPercent < 100 {
		original = line.PriceAtPurchase / (1 - discountPercent/100)
	}
	subtotal := original * float64(line.Quantity)
	discount := subtotal * (discountPercent / 100)
	return LineAmounts{
		OriginalUnitPrice: original,
		Subtotal:          subtotal,
		Discount:          discount,
		Taxable:           subtotal - discount,
	}, nil
}

// DiscountLookup resolves the discount in effect for a line.
type DiscountLookup func(line OrderLine) (float64, error)

// CurrentDiscounts builds a lookup that prefers a discount frozen on the line
// and otherwise falls back to the item's current catalogue discount.
func CurrentDiscounts(items map[int64]Item) DiscountLookup {
	return func(line OrderLine) (float64, error) {
		if line.DiscountPercent != nil {
			return *line.DiscountPercent, nil
		}
		item, ok := items[line.ItemID]
		if !ok {
			return 0, fmt.Errorf("%w: %w: id %d", ErrValidation, ErrItemNotFound, line.ItemID)
		}
		return item.DiscountPercent, nil
	}
}
