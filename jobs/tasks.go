package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/revtax/internal/alerts"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAlerts carries outbound reminder e-mails.
	QueueAlerts = "alerts"

	// TaskTaxAlertSend delivers one deadline reminder.
	TaskTaxAlertSend = "tax:alert:send"
	// TaskTaxAlertSweep checks every owner for crossed reminder thresholds.
	TaskTaxAlertSweep = "tax:alert:sweep"
)

// TaxAlertSweepPayload parameterises a sweep run.
type TaxAlertSweepPayload struct {
	// RetentionDays prunes alert records older than this; zero keeps all.
	RetentionDays int `json:"retention_days"`
}

// NewTaxAlertSendTask wraps a reminder request. The task id is derived from
// the period key and threshold so a duplicate enqueue is rejected by the
// broker.
func NewTaxAlertSendTask(req alerts.Request) (*asynq.Task, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTaxAlertSend, data,
		asynq.TaskID(fmt.Sprintf("%s:%s", req.PeriodKey, req.Threshold)),
		asynq.Queue(QueueAlerts),
		asynq.MaxRetry(5),
	), nil
}

// NewTaxAlertSweepTask constructs the periodic sweep task.
func NewTaxAlertSweepTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(TaxAlertSweepPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTaxAlertSweep, data), nil
}
