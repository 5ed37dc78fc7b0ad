package alerts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	requests []Request
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, req Request) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.requests = append(n.requests, req)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.requests)
}

var testDeadline = time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC)

func newTestDispatcher(t *testing.T, store Store, notifier Notifier) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(Config{Store: store, Notifier: notifier})
	require.NoError(t, err)
	return d
}

func payload(threshold Threshold) Request {
	return Request{Recipient: "owner@example.com", Period: "FY2026-27 Q4", TaxDue: 1200}
}

func TestDispatchNothingBeforeTrigger(t *testing.T) {
	notifier := &recordingNotifier{}
	d := newTestDispatcher(t, NewMemoryStore(), notifier)

	now := testDeadline.AddDate(0, 0, -106)
	fired, err := d.Dispatch(context.Background(), now, Due{PeriodKey: "1:presumptive:2027-03-15", Deadline: testDeadline}, payload)
	require.NoError(t, err)
	assert.Empty(t, fired)
	assert.Zero(t, notifier.count())
}

func TestDispatchFifteenWeekFiresOncePerDay(t *testing.T) {
	notifier := &recordingNotifier{}
	store := NewMemoryStore()
	d := newTestDispatcher(t, store, notifier)
	due := Due{PeriodKey: "1:presumptive:2027-03-15", Deadline: testDeadline}
	now := testDeadline.AddDate(0, 0, -105)

	var total []Threshold
	for i := 0; i < 5; i++ {
		fired, err := d.Dispatch(context.Background(), now.Add(time.Duration(i)*time.Hour), due, payload)
		require.NoError(t, err)
		total = append(total, fired...)
	}

	require.Len(t, total, 1)
	assert.Equal(t, "15-week", total[0].Label)
	require.Equal(t, 1, notifier.count())
	req := notifier.requests[0]
	assert.Equal(t, "15-week", req.Threshold)
	assert.Equal(t, due.PeriodKey, req.PeriodKey)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", req.ID.String())
	assert.Len(t, store.Records(due.PeriodKey), 1)
}

func TestDispatchBothThresholdsInFinalWeek(t *testing.T) {
	notifier := &recordingNotifier{}
	d := newTestDispatcher(t, NewMemoryStore(), notifier)

	fired, err := d.Dispatch(context.Background(), testDeadline.AddDate(0, 0, -3), Due{PeriodKey: "k", Deadline: testDeadline}, payload)
	require.NoError(t, err)
	require.Len(t, fired, 2)
	assert.Equal(t, "15-week", fired[0].Label)
	assert.Equal(t, "1-week", fired[1].Label)
}

func TestDispatchConcurrentCallsBuildOnePayload(t *testing.T) {
	notifier := &recordingNotifier{}
	d := newTestDispatcher(t, NewMemoryStore(), notifier)
	due := Due{PeriodKey: "7:gst:2026-11-20", Deadline: time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)}
	now := due.Deadline.AddDate(0, 0, -6)

	var built atomic.Int32
	build := func(threshold Threshold) Request {
		if threshold.Label == "1-week" {
			built.Add(1)
		}
		return payload(threshold)
	}

	const callers = 32
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := d.Dispatch(context.Background(), now, due, build)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	assert.Equal(t, 2, notifier.count())
}

func TestDispatchReleasesClaimOnDeliveryFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	store := NewMemoryStore()
	d := newTestDispatcher(t, store, notifier)
	due := Due{PeriodKey: "k", Deadline: testDeadline}
	now := testDeadline.AddDate(0, 0, -100)

	fired, err := d.Dispatch(context.Background(), now, due, payload)
	require.Error(t, err)
	assert.Empty(t, fired)
	assert.Empty(t, store.Records("k"))

	notifier.err = nil
	fired, err = d.Dispatch(context.Background(), now, due, payload)
	require.NoError(t, err)
	assert.Len(t, fired, 1)
}

func TestNewDispatcherRequiresCollaborators(t *testing.T) {
	_, err := NewDispatcher(Config{Notifier: &recordingNotifier{}})
	assert.Error(t, err)
	_, err = NewDispatcher(Config{Store: NewMemoryStore()})
	assert.Error(t, err)
}

func TestTriggerDate(t *testing.T) {
	th := Threshold{Label: "15-week", WeeksBefore: 15}
	assert.Equal(t, time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC), th.TriggerDate(testDeadline))
}
