package tax

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrConfiguration indicates a missing profile or unusable tax policy.
	ErrConfiguration = errors.New("tax: configuration error")
	// ErrProfileNotFound occurs when an owner has no tax profile.
	ErrProfileNotFound = errors.New("tax: profile not found")
)

// Regime identifies which tax policy applies to an owner.
type Regime string

const (
	// RegimeGST is the monthly-filing GST regime.
	RegimeGST Regime = "gst"
	// RegimePresumptive is the quarterly advance-tax regime for non-GST owners.
	RegimePresumptive Regime = "presumptive"
)

// Component names used in breakdowns.
const (
	ComponentCGST        = "CGST"
	ComponentSGST        = "SGST"
	ComponentPresumptive = "Presumptive Tax"
)

// Profile determines the regime for an owner.
type Profile struct {
	OwnerID       int64  `json:"owner_id"`
	GSTRegistered bool   `json:"gst_registered"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Regime returns the regime implied by the profile.
func (p Profile) Regime() Regime {
	if p.GSTRegistered {
		return RegimeGST
	}
	return RegimePresumptive
}

// Component is one named entry of a tax breakdown.
type Component struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Breakdown keeps components in insertion order (CGST before SGST).
type Breakdown []Component

// Total sums every component in decimal, so a total of paise amounts is
// itself a paise amount.
func (b Breakdown) Total() float64 {
	return b.total().InexactFloat64()
}

func (b Breakdown) total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b {
		total = total.Add(decimal.NewFromFloat(c.Amount))
	}
	return total.Round(2)
}

// Amount returns the named component, zero when absent.
func (b Breakdown) Amount(name string) float64 {
	for _, c := range b {
		if c.Name == name {
			return c.Amount
		}
	}
	return 0
}

// Result is the calculator output.
type Result struct {
	Regime    Regime    `json:"regime"`
	Breakdown Breakdown `json:"tax_breakdown"`
	TotalTax  float64   `json:"total_tax"`
}

// Deadline describes the next compliance due date.
type Deadline struct {
	Regime        Regime    `json:"regime"`
	NextDeadline  time.Time `json:"next_deadline"`
	DaysRemaining int       `json:"days_remaining"`
}
