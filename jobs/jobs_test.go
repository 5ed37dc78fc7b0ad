package jobs

import (
	"context"
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/odyssey-erp/revtax/internal/alerts"
	jobmetrics "github.com/odyssey-erp/revtax/internal/jobs"
	"github.com/odyssey-erp/revtax/internal/revenue"
	"github.com/odyssey-erp/revtax/internal/tax"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "1", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakeMailer struct {
	to, subject, body string
	err               error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

type fakeSweeper struct {
	fired int
	err   error
	calls int
}

func (f *fakeSweeper) Sweep(_ context.Context, kindFor func(tax.Profile) revenue.PeriodKind) (int, error) {
	f.calls++
	return f.fired, f.err
}

type fakeCleaner struct {
	olderThan time.Duration
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) error {
	f.olderThan = olderThan
	return nil
}

func sampleRequest() alerts.Request {
	return alerts.Request{
		ID:            uuid.New(),
		Recipient:     "asha@example.com",
		OwnerName:     "Asha",
		Period:        "2026-09",
		PeriodKey:     "1:gst:2026-10-20",
		Threshold:     "1-week",
		Revenue:       1000,
		Breakdown:     []alerts.BreakdownLine{{Name: "CGST", Amount: 90}, {Name: "SGST", Amount: 90}},
		TaxDue:        180,
		Deadline:      time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		DaysRemaining: 7,
	}
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestClientNotifyEnqueuesAlert(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClientWith(enq)

	require.NoError(t, client.Notify(context.Background(), sampleRequest()))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskTaxAlertSend, enq.tasks[0].Type())
	assert.Contains(t, string(enq.tasks[0].Payload()), `"period_key":"1:gst:2026-10-20"`)
}

func TestClientNotifyTreatsDuplicateAsQueued(t *testing.T) {
	client := NewClientWith(&fakeEnqueuer{err: asynq.ErrTaskIDConflict})
	assert.NoError(t, client.Notify(context.Background(), sampleRequest()))

	client = NewClientWith(&fakeEnqueuer{err: errors.New("redis down")})
	assert.Error(t, client.Notify(context.Background(), sampleRequest()))
}

func TestTaxAlertMailJob(t *testing.T) {
	task, err := NewTaxAlertSendTask(sampleRequest())
	require.NoError(t, err)
	mailer := &fakeMailer{}
	job := NewTaxAlertMailJob(mailer, nil, testMetrics())

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, "asha@example.com", mailer.to)
	assert.Contains(t, mailer.subject, "20 October 2026")
	assert.Contains(t, mailer.body, "₹180.00")

	mailer.err = errors.New("relay refused")
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestTaxAlertMailJobSkipsBadPayload(t *testing.T) {
	job := NewTaxAlertMailJob(&fakeMailer{}, nil, testMetrics())
	err := job.Handle(context.Background(), asynq.NewTask(TaskTaxAlertSend, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestTaxAlertSweepJob(t *testing.T) {
	task, err := NewTaxAlertSweepTask(400)
	require.NoError(t, err)
	sweeper := &fakeSweeper{fired: 3}
	cleaner := &fakeCleaner{}
	job := &TaxAlertSweepJob{Sweeper: sweeper, Cleaner: cleaner, Metrics: testMetrics()}

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, 400*24*time.Hour, cleaner.olderThan)

	sweeper.err = errors.New("owner 4: profile store down")
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestSMTPMailerBuildsHTMLMessage(t *testing.T) {
	var sent *mail.Msg
	mailer := NewSMTPMailer(SMTPConfig{Host: "mail.local", Port: 1025, From: "tax@revtax.local"})
	mailer.send = func(_ context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	require.NoError(t, mailer.Send(context.Background(), "asha@example.com", "Tax due\r\nBcc: x", "<p>hi</p>"))
	require.NotNil(t, sent)

	var buf bytes.Buffer
	_, err := sent.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "asha@example.com")
	assert.Contains(t, raw, "tax@revtax.local")
	assert.Contains(t, raw, "Subject: Tax due  Bcc: x")
	assert.NotContains(t, raw, "\r\nBcc:")
}

func TestSMTPMailerRejectsHeaderInjection(t *testing.T) {
	called := false
	mailer := NewSMTPMailer(SMTPConfig{Host: "mail.local", Port: 1025, From: "tax@revtax.local"})
	mailer.send = func(context.Context, *mail.Msg) error {
		called = true
		return nil
	}

	err := mailer.Send(context.Background(), "asha@example.com\r\nBcc: evil@example.com", "Tax due", "<p>hi</p>")
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.False(t, called)

	bad := NewSMTPMailer(SMTPConfig{Host: "mail.local", From: "tax@revtax.local\nX-Evil: 1"})
	bad.send = mailer.send
	assert.Error(t, bad.Send(context.Background(), "asha@example.com", "Tax due", "<p>hi</p>"))
	assert.False(t, called)

	unset := NewSMTPMailer(SMTPConfig{From: "tax@revtax.local"})
	assert.Error(t, unset.Send(context.Background(), "asha@example.com", "Tax due", "<p>hi</p>"))
}
