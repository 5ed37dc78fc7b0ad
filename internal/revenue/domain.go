package revenue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrValidation indicates malformed line data.
	ErrValidation = errors.New("revenue: validation failed")
	// ErrInvalidInput indicates an unparsable period or date value.
	ErrInvalidInput = errors.New("revenue: invalid input")
	// ErrIntegrity flags a computed amount that violates a non-negativity invariant.
	ErrIntegrity = errors.New("revenue: integrity violation")
	// ErrItemNotFound occurs when a line references an unknown item.
	ErrItemNotFound = errors.New("revenue: item not found")
)

// InputError carries the offending value of a rejected input.
type InputError struct {
	Field string
	Value string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("revenue: invalid %s %q", e.Field, e.Value)
}

// Is lets callers match with errors.Is(err, ErrInvalidInput).
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// OrderStatus enumerates the order workflow states.
type OrderStatus string

const (
	StatusPlaced     OrderStatus = "placed"
	StatusProcessing OrderStatus = "processing"
	StatusDispatched OrderStatus = "dispatched"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus normalises a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusPlaced, StatusProcessing, StatusDispatched, StatusDelivered, StatusCancelled:
		return status, nil
	}
	return "", &InputError{Field: "order status", Value: raw}
}

// CountsTowardRevenue reports whether orders in this state are aggregated.
func (s OrderStatus) CountsTowardRevenue() bool {
	return s != StatusCancelled
}

// UnmarshalJSON accepts both the plain string form and the legacy
// {"value": "..."} object form.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw string
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		raw = wrapped.Value
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Item is a catalogue entry; DiscountPercent is the current discount.
type Item struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DiscountPercent float64 `json:"discount_percent"`
	StockQuantity   int     `json:"stock_quantity"`
	IsActive        bool    `json:"is_active"`
}

// Customer holds the buyer contact captured at checkout.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// OrderLine is immutable once the order is created. PriceAtPurchase is the
// post-discount unit price. DiscountPercent is set only when the discount was
// frozen at checkout.
type OrderLine struct {
	ItemID          int64    `json:"item_id"`
	Quantity        int      `json:"quantity"`
	PriceAtPurchase float64  `json:"price_at_purchase"`
	DiscountPercent *float64 `json:"discount_percent,omitempty"`
}

// Order is a placed checkout with its lines.
type Order struct {
	ID          int64       `json:"id"`
	Customer    Customer    `json:"customer"`
	Lines       []OrderLine `json:"lines"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	TrackingID  string      `json:"tracking_id,omitempty"`
	TrackingURL string      `json:"tracking_url,omitempty"`
}

// UnfrozenItemIDs returns the distinct item ids of lines that carry no frozen
// discount and therefore need the item's current discount.
func UnfrozenItemIDs(orders []Order) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, order := range orders {
		for _, line := range order.Lines {
			if line.DiscountPercent != nil {
				continue
			}
			if _, ok := seen[line.ItemID]; ok {
				continue
			}
			seen[line.ItemID] = struct{}{}
			ids = append(ids, line.ItemID)
		}
	}
	return ids
}
