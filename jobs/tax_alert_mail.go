package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/wneessen/go-mail"

	"github.com/odyssey-erp/revtax/internal/alerts"
	"github.com/odyssey-erp/revtax/internal/compliance/export"
	jobmetrics "github.com/odyssey-erp/revtax/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Mailer delivers a rendered HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPConfig describes the outbound mail relay.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	RequireTLS bool
}

// SMTPMailer sends mail through an SMTP relay, upgrading with STARTTLS when
// offered and authenticating when a username is configured.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPMailer builds a mailer for the relay.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.cfg.Host == "" {
		return errors.New("mailer: smtp host not configured")
	}
	msg, err := buildMessage(m.cfg.From, to, subject, htmlBody)
	if err != nil {
		return err
	}
	return m.send(ctx, msg)
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	policy := mail.TLSOpportunistic
	if m.cfg.RequireTLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{mail.WithPort(m.cfg.Port), mail.WithTLSPolicy(policy)}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password))
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

// buildMessage rejects malformed addresses, including ones carrying header
// line breaks.
func buildMessage(from, to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mailer: sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("mailer: recipient %q: %w: %w", to, err, asynq.SkipRetry)
	}
	msg.Subject(sanitizeHeader(subject))
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// TaxAlertMailJob renders and sends queued deadline reminders.
type TaxAlertMailJob struct {
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewTaxAlertMailJob wires the mail handler.
func NewTaxAlertMailJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *TaxAlertMailJob {
	return &TaxAlertMailJob{Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTaxAlertSend tasks.
func (j *TaxAlertMailJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Mailer == nil {
		return errors.New("tax alert mail: handler not configured")
	}
	var req alerts.Request
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("tax alert mail: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if req.Recipient == "" {
		return fmt.Errorf("tax alert mail: %s has no recipient: %w", req.PeriodKey, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskTaxAlertSend)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	subject, body, err := export.RenderAlertEmail(req)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logger := j.logger().With(
		slog.String("request_id", req.ID.String()),
		slog.String("period_key", req.PeriodKey),
		slog.String("threshold", req.Threshold),
	)
	if err := j.Mailer.Send(ctx, req.Recipient, subject, body); err != nil {
		logger.Error("send tax alert", slog.Any("error", err))
		return err
	}
	logger.Info("tax alert mailed")
	return nil
}

func (j *TaxAlertMailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *TaxAlertMailJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
