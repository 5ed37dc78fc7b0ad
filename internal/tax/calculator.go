package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Calculator applies a Policy to a taxable amount.
type Calculator struct {
	policy Policy
}

// NewCalculator validates the policy and builds a calculator.
func NewCalculator(policy Policy) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{policy: policy}, nil
}

// Policy exposes the active policy.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Compute returns the breakdown and total for the profile's regime. Negative
// taxable amounts are treated as zero; callers detect that via Clamped.
func (c *Calculator) Compute(taxable float64, profile *Profile) (Result, bool, error) {
	if profile == nil {
		return Result{}, false, fmt.Errorf("%w: tax profile required", ErrConfiguration)
	}
	clamped := false
	base := decimal.NewFromFloat(taxable)
	if base.IsNegative() {
		base = decimal.Zero
		clamped = true
	}

	var breakdown Breakdown
	switch profile.Regime() {
	case RegimeGST:
		breakdown = c.gst(base)
	default:
		breakdown = c.presumptive(base)
	}
	return Result{
		Regime:    profile.Regime(),
		Breakdown: breakdown,
		TotalTax:  breakdown.total().InexactFloat64(),
	}, clamped, nil
}

// gst splits the rounded tax into CGST and SGST; an odd paisa goes to CGST.
func (c *Calculator) gst(base decimal.Decimal) Breakdown {
	rate := decimal.NewFromFloat(c.policy.GSTRatePercent).Div(hundred)
	total := base.Mul(rate).Round(2)
	sgst := total.Div(two).RoundFloor(2)
	cgst := total.Sub(sgst)
	return Breakdown{
		{Name: ComponentCGST, Amount: cgst.InexactFloat64()},
		{Name: ComponentSGST, Amount: sgst.InexactFloat64()},
	}
}

func (c *Calculator) presumptive(base decimal.Decimal) Breakdown {
	total := decimal.Zero
	lower := decimal.Zero
	for _, slab := range c.policy.PresumptiveSlabs {
		if !base.GreaterThan(lower) {
			break
		}
		upper := base
		if slab.UpTo != nil {
			upper = decimal.Min(base, decimal.NewFromFloat(*slab.UpTo))
		}
		portion := upper.Sub(lower)
		total = total.Add(portion.Mul(decimal.NewFromFloat(slab.RatePercent)).Div(hundred))
		if slab.UpTo == nil {
			break
		}
		lower = decimal.NewFromFloat(*slab.UpTo)
	}
	return Breakdown{{Name: ComponentPresumptive, Amount: total.Round(2).InexactFloat64()}}
}
