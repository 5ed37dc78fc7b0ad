package revenue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodWindows(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, loc) }

	cases := []struct {
		name  string
		spec  PeriodSpec
		start time.Time
		end   time.Time
		label string
	}{
		{"day", PeriodSpec{PeriodDay, time.Date(2026, 10, 19, 15, 4, 0, 0, loc)}, date(2026, 10, 19), date(2026, 10, 20), "2026-10-19"},
		{"month december", PeriodSpec{PeriodMonth, date(2026, 12, 31)}, date(2026, 12, 1), date(2027, 1, 1), "2026-12"},
		{"quarter q1", PeriodSpec{PeriodQuarter, date(2026, 5, 10)}, date(2026, 4, 1), date(2026, 7, 1), "FY2026-27 Q1"},
		{"quarter q3", PeriodSpec{PeriodQuarter, date(2026, 10, 19)}, date(2026, 10, 1), date(2027, 1, 1), "FY2026-27 Q3"},
		{"quarter q4", PeriodSpec{PeriodQuarter, date(2027, 2, 14)}, date(2027, 1, 1), date(2027, 4, 1), "FY2026-27 Q4"},
		{"year after april", PeriodSpec{PeriodYear, date(2026, 4, 1)}, date(2026, 4, 1), date(2027, 4, 1), "FY2026-27"},
		{"year before april", PeriodSpec{PeriodYear, date(2026, 3, 31)}, date(2025, 4, 1), date(2026, 4, 1), "FY2025-26"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			window, err := tc.spec.Window()
			require.NoError(t, err)
			assert.True(t, tc.start.Equal(window.Start), "start %s", window.Start)
			assert.True(t, tc.end.Equal(window.End), "end %s", window.End)
			assert.Equal(t, tc.label, window.Label)
		})
	}
}

func TestWindowIsHalfOpen(t *testing.T) {
	window, err := PeriodSpec{Kind: PeriodMonth, Reference: time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)}.Window()
	require.NoError(t, err)

	assert.True(t, window.Contains(window.Start))
	assert.False(t, window.Contains(window.End))
	assert.False(t, window.Contains(window.Start.Add(-time.Nanosecond)))
}

func TestParsePeriodSpec(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	spec, err := ParsePeriodSpec("Month", "", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, spec.Kind)
	assert.True(t, now.Equal(spec.Reference))

	spec, err = ParsePeriodSpec("quarter", "2026-02-01", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.February, spec.Reference.Month())

	_, err = ParsePeriodSpec("week", "", now, time.UTC)
	require.ErrorIs(t, err, ErrInvalidInput)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "week", inputErr.Value)

	_, err = ParsePeriodSpec("day", "19/10/2026", now, time.UTC)
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "19/10/2026", inputErr.Value)
}

func TestFiscalQuarter(t *testing.T) {
	expected := map[time.Month]int{
		time.January: 4, time.March: 4, time.April: 1, time.June: 1,
		time.July: 2, time.September: 2, time.October: 3, time.December: 3,
	}
	for month, q := range expected {
		assert.Equal(t, q, FiscalQuarter(time.Date(2026, month, 1, 0, 0, 0, 0, time.UTC)), month.String())
	}
}
