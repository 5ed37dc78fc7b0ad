package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	jobmetrics "github.com/odyssey-erp/revtax/internal/jobs"
)

// Due is the deadline a dispatch run checks thresholds against.
type Due struct {
	PeriodKey     string
	Deadline      time.Time
	DaysRemaining int
}

// BuildFunc constructs the payload for a claimed threshold.
type BuildFunc func(threshold Threshold) Request

// Dispatcher fires threshold reminders at most once per period.
type Dispatcher struct {
	store      Store
	notifier   Notifier
	thresholds []Threshold
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
}

// Config groups dispatcher dependencies.
type Config struct {
	Store      Store
	Notifier   Notifier
	Thresholds []Threshold
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewDispatcher validates dependencies. Empty Thresholds means DefaultThresholds.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Store == nil {
		return nil, errors.New("alerts: store required")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("alerts: notifier required")
	}
	thresholds := cfg.Thresholds
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: cfg.Store, notifier: cfg.Notifier, thresholds: thresholds, logger: logger, metrics: cfg.Metrics}, nil
}

// Thresholds returns the configured thresholds.
func (d *Dispatcher) Thresholds() []Threshold {
	return d.thresholds
}

// Dispatch sends one request for every crossed threshold that this call
// manages to claim. Lost claims are silent no-ops. A failed delivery releases
// the claim so a later run can retry.
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time, due Due, build BuildFunc) ([]Threshold, error) {
	if due.PeriodKey == "" {
		return nil, errors.New("alerts: period key required")
	}
	fired := make([]Threshold, 0, len(d.thresholds))
	var errs []error
	for _, threshold := range d.thresholds {
		if now.Before(threshold.TriggerDate(due.Deadline)) {
			continue
		}
		claimed, err := d.store.TryMarkSent(ctx, due.PeriodKey, threshold.Label, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("alerts: claim %s/%s: %w", due.PeriodKey, threshold.Label, err))
			continue
		}
		if !claimed {
			d.logger.Debug("alert already sent", slog.String("period_key", due.PeriodKey), slog.String("threshold", threshold.Label))
			continue
		}

		req := build(threshold)
		if req.ID == uuid.Nil {
			req.ID = uuid.New()
		}
		req.PeriodKey = due.PeriodKey
		req.Threshold = threshold.Label
		if err := d.notifier.Notify(ctx, req); err != nil {
			if relErr := d.store.Release(ctx, due.PeriodKey, threshold.Label); relErr != nil {
				d.logger.Error("release alert claim", slog.String("period_key", due.PeriodKey), slog.Any("error", relErr))
			}
			errs = append(errs, fmt.Errorf("alerts: notify %s/%s: %w", due.PeriodKey, threshold.Label, err))
			continue
		}
		d.metrics.AlertSent(threshold.Label)
		d.logger.Info("alert dispatched",
			slog.String("period_key", due.PeriodKey),
			slog.String("threshold", threshold.Label),
			slog.String("request_id", req.ID.String()))
		fired = append(fired, threshold)
	}
	return fired, errors.Join(errs...)
}
