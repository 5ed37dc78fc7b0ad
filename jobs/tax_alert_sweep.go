package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/revtax/internal/jobs"
	"github.com/odyssey-erp/revtax/internal/revenue"
	"github.com/odyssey-erp/revtax/internal/tax"
)

// Sweeper runs the alert check for every owner.
type Sweeper interface {
	Sweep(ctx context.Context, kindFor func(tax.Profile) revenue.PeriodKind) (int, error)
}

// RecordCleaner prunes old alert records.
type RecordCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// TaxAlertSweepJob is the daily scheduler entry point.
type TaxAlertSweepJob struct {
	Sweeper Sweeper
	Cleaner RecordCleaner
	KindFor func(tax.Profile) revenue.PeriodKind
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskTaxAlertSweep tasks.
func (j *TaxAlertSweepJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sweeper == nil {
		return errors.New("tax alert sweep: handler not configured")
	}
	var payload TaxAlertSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("tax alert sweep: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.metrics().Track(TaskTaxAlertSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	started := time.Now()
	fired, err := j.Sweeper.Sweep(ctx, j.KindFor)
	if err != nil {
		// Thresholds already sent are skipped when the task is retried.
		logger.Error("tax alert sweep", slog.Int("fired", fired), slog.Any("error", err))
		return err
	}

	if payload.RetentionDays > 0 && j.Cleaner != nil {
		if err := j.Cleaner.Cleanup(ctx, time.Duration(payload.RetentionDays)*24*time.Hour); err != nil {
			logger.Warn("prune alert records", slog.Any("error", err))
		}
	}
	logger.Info("completed tax alert sweep", slog.Int("fired", fired), slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *TaxAlertSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *TaxAlertSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
