package tax

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/revtax/internal/revenue"
)

func TestNextGSTDeadline(t *testing.T) {
	sched := NewScheduler(time.UTC)
	gst := &Profile{GSTRegistered: true}

	cases := []struct {
		name string
		now  time.Time
		want time.Time
		days int
	}{
		{"before the 20th", time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), 15},
		{"on the 20th", time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC), time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC), 31},
		{"20th at midnight", time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC), 31},
		{"past the 20th", time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC), 30},
		{"december rolls year", time.Date(2026, 12, 25, 12, 0, 0, 0, time.UTC), time.Date(2027, 1, 20, 0, 0, 0, 0, time.UTC), 26},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deadline, err := sched.Next(revenue.PeriodMonth, gst, tc.now)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(deadline.NextDeadline), "got %s", deadline.NextDeadline)
			assert.Equal(t, tc.days, deadline.DaysRemaining)
			assert.Equal(t, RegimeGST, deadline.Regime)
		})
	}
}

func TestNextAdvanceTaxDeadline(t *testing.T) {
	sched := NewScheduler(time.UTC)
	presumptive := &Profile{GSTRegistered: false}

	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2027, 3, 16, 0, 0, 0, 0, time.UTC), time.Date(2027, 6, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2027, 3, 15, 1, 0, 0, 0, time.UTC), time.Date(2027, 6, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2027, 6, 15, 1, 0, 0, 0, time.UTC), time.Date(2027, 9, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		deadline, err := sched.Next(revenue.PeriodQuarter, presumptive, tc.now)
		require.NoError(t, err)
		assert.True(t, tc.want.Equal(deadline.NextDeadline), "now %s got %s", tc.now, deadline.NextDeadline)
		assert.True(t, deadline.NextDeadline.After(tc.now), "now %s got %s", tc.now, deadline.NextDeadline)
		assert.Positive(t, deadline.DaysRemaining)
	}
}

func TestDeadlineMonotonic(t *testing.T) {
	sched := NewScheduler(time.UTC)
	for _, profile := range []*Profile{{GSTRegistered: true}, {GSTRegistered: false}} {
		now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
		prev, err := sched.Next(revenue.PeriodMonth, profile, now)
		require.NoError(t, err)
		for i := 0; i < 30; i++ {
			for _, step := range []time.Duration{0, time.Hour, 23 * time.Hour} {
				now = prev.NextDeadline.Add(step)
				next, err := sched.Next(revenue.PeriodMonth, profile, now)
				require.NoError(t, err)
				assert.True(t, next.NextDeadline.After(prev.NextDeadline), "regime %s step %d +%s", profile.Regime(), i, step)
				assert.True(t, next.NextDeadline.After(now), "regime %s step %d +%s", profile.Regime(), i, step)
			}
			prev, err = sched.Next(revenue.PeriodMonth, profile, prev.NextDeadline.Add(time.Hour))
			require.NoError(t, err)
		}
	}
}

func TestReportingReference(t *testing.T) {
	gstDue := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	window, err := revenue.PeriodSpec{Kind: revenue.PeriodMonth, Reference: ReportingReference(RegimeGST, gstDue)}.Window()
	require.NoError(t, err)
	assert.Equal(t, "2026-09", window.Label)

	janDue := time.Date(2027, 1, 20, 0, 0, 0, 0, time.UTC)
	window, err = revenue.PeriodSpec{Kind: revenue.PeriodMonth, Reference: ReportingReference(RegimeGST, janDue)}.Window()
	require.NoError(t, err)
	assert.Equal(t, "2026-12", window.Label)

	for due, label := range map[time.Time]string{
		time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC):  "FY2026-27 Q1",
		time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC): "FY2026-27 Q3",
		time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC):  "FY2026-27 Q4",
	} {
		window, err := revenue.PeriodSpec{Kind: revenue.PeriodQuarter, Reference: ReportingReference(RegimePresumptive, due)}.Window()
		require.NoError(t, err)
		assert.Equal(t, label, window.Label)
	}
}

func TestNextRejectsBadInput(t *testing.T) {
	sched := NewScheduler(nil)
	_, err := sched.Next("fortnight", &Profile{}, time.Now())
	require.ErrorIs(t, err, revenue.ErrInvalidInput)

	_, err = sched.Next(revenue.PeriodMonth, nil, time.Now())
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestDaysUntilNeverNegative(t *testing.T) {
	deadline := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysUntil(deadline, deadline.Add(-time.Hour)))
	assert.Equal(t, 0, DaysUntil(deadline, deadline))
	assert.Equal(t, 0, DaysUntil(deadline, deadline.Add(48*time.Hour)))
}
