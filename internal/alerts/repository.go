package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists alert records keyed by (period_key, threshold_label).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// TryMarkSent inserts the record; a unique violation or skipped insert means
// another caller already claimed it.
func (s *PostgresStore) TryMarkSent(ctx context.Context, periodKey, thresholdLabel string, sentAt time.Time) (bool, error) {
	if s == nil || s.pool == nil {
		return false, errors.New("alerts: store not initialised")
	}
	tag, err := s.pool.Exec(ctx, `INSERT INTO tax_alert_records (period_key, threshold_label, sent_at)
VALUES ($1, $2, $3)
ON CONFLICT (period_key, threshold_label) DO NOTHING`, periodKey, thresholdLabel, sentAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("alerts: insert record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release removes a record, used to roll back a failed delivery.
func (s *PostgresStore) Release(ctx context.Context, periodKey, thresholdLabel string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM tax_alert_records WHERE period_key = $1 AND threshold_label = $2`, periodKey, thresholdLabel)
	if err != nil {
		return fmt.Errorf("alerts: delete record: %w", err)
	}
	return nil
}

// Cleanup removes records older than the retention window.
func (s *PostgresStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM tax_alert_records WHERE sent_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return fmt.Errorf("alerts: cleanup records: %w", err)
	}
	return nil
}
