package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Threshold is a reminder offset before a deadline.
type Threshold struct {
	Label       string `json:"label"`
	WeeksBefore int    `json:"weeks_before"`
}

// TriggerDate is the first instant at which the threshold fires.
func (t Threshold) TriggerDate(deadline time.Time) time.Time {
	return deadline.AddDate(0, 0, -7*t.WeeksBefore)
}

// DefaultThresholds is the fixed 15-week and 1-week reminder set.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{Label: "15-week", WeeksBefore: 15},
		{Label: "1-week", WeeksBefore: 1},
	}
}

// Record marks that an alert was sent for a period and threshold.
type Record struct {
	PeriodKey      string    `json:"period_key"`
	ThresholdLabel string    `json:"threshold_label"`
	SentAt         time.Time `json:"sent_at"`
}

// BreakdownLine is a named tax amount carried in a Request.
type BreakdownLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Request is the payload handed to the notification collaborator.
type Request struct {
	ID            uuid.UUID       `json:"id"`
	Recipient     string          `json:"recipient"`
	OwnerName     string          `json:"owner_name,omitempty"`
	Period        string          `json:"period"`
	PeriodKey     string          `json:"period_key"`
	Threshold     string          `json:"threshold"`
	Revenue       float64         `json:"revenue"`
	Breakdown     []BreakdownLine `json:"breakdown,omitempty"`
	TaxDue        float64         `json:"tax_due"`
	Deadline      time.Time       `json:"deadline"`
	DaysRemaining int             `json:"days_remaining"`
}

// Store atomically claims alert sends.
type Store interface {
	// TryMarkSent returns true when this call claimed the pair.
	TryMarkSent(ctx context.Context, periodKey, thresholdLabel string, sentAt time.Time) (bool, error)
	// Release drops a claim whose delivery failed.
	Release(ctx context.Context, periodKey, thresholdLabel string) error
}

// Notifier delivers alert requests.
type Notifier interface {
	Notify(ctx context.Context, req Request) error
}

// PeriodKey identifies one compliance deadline for one owner.
func PeriodKey(ownerID int64, regime string, deadline time.Time) string {
	return fmt.Sprintf("%d:%s:%s", ownerID, regime, deadline.Format("2006-01-02"))
}
