package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/revtax/internal/alerts"
)

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, alerts.Request) error { return nil }

func wiringDeps(t *testing.T, store string) ComplianceDeps {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ComplianceDeps{
		Config: &Config{
			AppTimezone:        "UTC",
			AlertStore:         store,
			AlertRetentionDays: 30,
			SummaryCacheTTL:    time.Minute,
		},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Redis:    client,
		Notifier: discardNotifier{},
	}
}

func TestBuildComplianceSelectsStore(t *testing.T) {
	for _, store := range []string{AlertStoreMemory, AlertStoreRedis, AlertStorePostgres} {
		t.Run(store, func(t *testing.T) {
			built, err := BuildCompliance(wiringDeps(t, store))
			require.NoError(t, err)
			require.NotNil(t, built.Service)
			require.NotNil(t, built.Cache)
			assert.Equal(t, store == AlertStorePostgres, built.Cleaner != nil)
			assert.Equal(t, "UTC", built.Service.Location().String())
		})
	}
}

func TestBuildComplianceRejectsBadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gst_rate_percent: -5\n"), 0o600))

	deps := wiringDeps(t, AlertStoreMemory)
	deps.Config.TaxPolicyFile = path
	_, err := BuildCompliance(deps)
	assert.Error(t, err)
}
