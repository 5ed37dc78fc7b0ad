package revenue

import (
	"fmt"
	"strings"
	"time"
)

// PeriodKind enumerates supported aggregation windows.
type PeriodKind string

const (
	PeriodDay     PeriodKind = "day"
	PeriodMonth   PeriodKind = "month"
	PeriodQuarter PeriodKind = "quarter"
	PeriodYear    PeriodKind = "year"
)

// DateLayout is the wire format for reference dates.
const DateLayout = "2006-01-02"

// ParsePeriodKind validates a raw kind.
func ParsePeriodKind(raw string) (PeriodKind, error) {
	kind := PeriodKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case PeriodDay, PeriodMonth, PeriodQuarter, PeriodYear:
		return kind, nil
	}
	return "", &InputError{Field: "period", Value: raw}
}

// PeriodSpec describes which window to aggregate.
type PeriodSpec struct {
	Kind      PeriodKind
	Reference time.Time
}

// ParsePeriodSpec builds a spec from request values. An empty reference date
// means today in loc.
func ParsePeriodSpec(kind, reference string, now time.Time, loc *time.Location) (PeriodSpec, error) {
	parsedKind, err := ParsePeriodKind(kind)
	if err != nil {
		return PeriodSpec{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	ref := now.In(loc)
	if strings.TrimSpace(reference) != "" {
		ref, err = time.ParseInLocation(DateLayout, strings.TrimSpace(reference), loc)
		if err != nil {
			return PeriodSpec{}, &InputError{Field: "reference date", Value: reference}
		}
	}
	return PeriodSpec{Kind: parsedKind, Reference: ref}, nil
}

// Window is a half-open [Start, End) interval.
type Window struct {
	Start time.Time
	End   time.Time
	Label string
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ClosedBy reports whether the window has fully elapsed at now.
func (w Window) ClosedBy(now time.Time) bool {
	return !now.Before(w.End)
}

// Window resolves the spec into a concrete interval in the reference's location.
func (p PeriodSpec) Window() (Window, error) {
	ref := p.Reference
	loc := ref.Location()
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
	switch p.Kind {
	case PeriodDay:
		return Window{Start: day, End: day.AddDate(0, 0, 1), Label: day.Format(DateLayout)}, nil
	case PeriodMonth:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(0, 1, 0), Label: start.Format("2006-01")}, nil
	case PeriodQuarter:
		fy := FiscalYear(ref)
		q := FiscalQuarter(ref)
		start := time.Date(fy, time.April, 1, 0, 0, 0, 0, loc).AddDate(0, 3*(q-1), 0)
		return Window{Start: start, End: start.AddDate(0, 3, 0), Label: fmt.Sprintf("%s Q%d", fiscalLabel(fy), q)}, nil
	case PeriodYear:
		fy := FiscalYear(ref)
		start := time.Date(fy, time.April, 1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(1, 0, 0), Label: fiscalLabel(fy)}, nil
	}
	return Window{}, &InputError{Field: "period", Value: string(p.Kind)}
}

// FiscalYear returns the calendar year in which the April-March fiscal year
// containing t starts.
func FiscalYear(t time.Time) int {
	if t.Month() >= time.April {
		return t.Year()
	}
	return t.Year() - 1
}

// FiscalQuarter returns 1 for Apr-Jun through 4 for Jan-Mar.
func FiscalQuarter(t time.Time) int {
	offset := (int(t.Month()) + 12 - int(time.April)) % 12
	return offset/3 + 1
}

func fiscalLabel(startYear int) string {
	return fmt.Sprintf("FY%d-%02d", startYear, (startYear+1)%100)
}
