package revenue

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Totals is the revenue half of a period summary.
type Totals struct {
	Period        string  `json:"period"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalDiscount float64 `json:"total_discount"`
	TaxableAmount float64 `json:"taxable_amount"`
	OrderCount    int     `json:"order_count"`
	LineCount     int     `json:"line_count"`
}

// Aggregate reconciles every line of every non-cancelled order created inside
// the window and sums the amounts, rounded to paise. One bad line fails the
// whole period.
func Aggregate(orders []Order, window Window, discounts DiscountLookup) (Totals, error) {
	totals := Totals{Period: window.Label}
	if discounts == nil {
		discounts = CurrentDiscounts(nil)
	}
	revenue := decimal.Zero
	discount := decimal.Zero
	for _, order := range orders {
		if !window.Contains(order.CreatedAt) || !order.Status.CountsTowardRevenue() {
			continue
		}
		for idx, line := range order.Lines {
			pct, err := discounts(line)
			if err != nil {
				return Totals{}, fmt.Errorf("order %d line %d: %w", order.ID, idx+1, err)
			}
			amounts, err := ReconcileLine(line, pct)
			if err != nil {
				return Totals{}, fmt.Errorf("order %d line %d: %w", order.ID, idx+1, err)
			}
			revenue = revenue.Add(decimal.NewFromFloat(amounts.Subtotal))
			discount = discount.Add(decimal.NewFromFloat(amounts.Discount))
			totals.LineCount++
		}
		totals.OrderCount++
	}
	revenue = revenue.Round(2)
	discount = discount.Round(2)
	totals.TotalRevenue = revenue.InexactFloat64()
	totals.TotalDiscount = discount.InexactFloat64()
	totals.TaxableAmount = revenue.Sub(discount).InexactFloat64()
	return totals, nil
}
