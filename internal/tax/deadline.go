package tax

import (
	"fmt"
	"math"
	"time"

	"github.com/odyssey-erp/revtax/internal/revenue"
)

const (
	gstFilingDay    = 20
	advanceTaxDay   = 15
	hoursPerDay     = 24
	secondsInOneDay = hoursPerDay * 60 * 60
)

// advance-tax instalment months in fiscal order.
var advanceTaxMonths = []time.Month{time.June, time.September, time.December, time.March}

// Scheduler computes compliance due dates in a fixed location. A deadline is
// the start of its due date; Next always returns one strictly after now.
type Scheduler struct {
	loc *time.Location
}

// NewScheduler builds a scheduler; nil loc means UTC.
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{loc: loc}
}

// Next returns the next deadline after now for the profile's regime.
func (s *Scheduler) Next(kind revenue.PeriodKind, profile *Profile, now time.Time) (Deadline, error) {
	if _, err := revenue.ParsePeriodKind(string(kind)); err != nil {
		return Deadline{}, err
	}
	if profile == nil {
		return Deadline{}, fmt.Errorf("%w: tax profile required", ErrConfiguration)
	}
	local := now.In(s.loc)

	var next time.Time
	switch profile.Regime() {
	case RegimeGST:
		next = s.nextGST(local)
	default:
		next = s.nextAdvanceTax(local)
	}
	return Deadline{
		Regime:        profile.Regime(),
		NextDeadline:  next,
		DaysRemaining: DaysUntil(next, now),
	}, nil
}

// nextGST returns the 20th of the current month, rolling forward once it has
// been reached.
func (s *Scheduler) nextGST(now time.Time) time.Time {
	candidate := time.Date(now.Year(), now.Month(), gstFilingDay, 0, 0, 0, 0, s.loc)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 1, 0)
	}
	return candidate
}

// nextAdvanceTax walks the instalment dates of the fiscal year containing
// now and wraps into the next fiscal year after 15 March.
func (s *Scheduler) nextAdvanceTax(now time.Time) time.Time {
	fy := revenue.FiscalYear(now)
	for offset := 0; offset < 2; offset++ {
		for _, month := range advanceTaxMonths {
			year := fy + offset
			if month < time.April {
				year++
			}
			candidate := time.Date(year, month, advanceTaxDay, 0, 0, 0, 0, s.loc)
			if candidate.After(now) {
				return candidate
			}
		}
	}
	return time.Date(fy+1, time.June, advanceTaxDay, 0, 0, 0, 0, s.loc)
}

// ReportingReference returns an instant inside the period a deadline settles:
// the month before a GST filing date, or the fiscal quarter holding an
// advance-tax instalment.
func ReportingReference(regime Regime, deadline time.Time) time.Time {
	if regime == RegimeGST {
		return deadline.AddDate(0, -1, 0)
	}
	return deadline
}

// DaysUntil is ceil(deadline - now) in days, never negative.
func DaysUntil(deadline, now time.Time) int {
	days := math.Ceil(deadline.Sub(now).Seconds() / secondsInOneDay)
	if days < 0 {
		return 0
	}
	return int(days)
}
