package compliance

import (
	"context"
	"time"

	"github.com/odyssey-erp/revtax/internal/revenue"
	"github.com/odyssey-erp/revtax/internal/tax"
)

// OrderStore lists orders created inside a window.
type OrderStore interface {
	ListOrders(ctx context.Context, ownerID int64, window revenue.Window) ([]revenue.Order, error)
}

// ItemStore resolves catalogue items with their current discount.
type ItemStore interface {
	GetItem(ctx context.Context, id int64) (revenue.Item, error)
}

// ProfileStore resolves owner tax profiles.
type ProfileStore interface {
	GetTaxProfile(ctx context.Context, ownerID int64) (*tax.Profile, error)
	ListProfiles(ctx context.Context) ([]tax.Profile, error)
}

// Summary is the full revenue and tax view of one period.
type Summary struct {
	Period        string        `json:"period"`
	WindowStart   time.Time     `json:"window_start"`
	WindowEnd     time.Time     `json:"window_end"`
	TotalRevenue  float64       `json:"total_revenue"`
	TotalDiscount float64       `json:"total_discount"`
	TaxableAmount float64       `json:"taxable_amount"`
	OrderCount    int           `json:"order_count"`
	Regime        tax.Regime    `json:"regime"`
	TaxBreakdown  tax.Breakdown `json:"tax_breakdown"`
	TotalTax      float64       `json:"total_tax"`
}
