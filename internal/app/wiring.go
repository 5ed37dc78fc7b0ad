package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/revtax/internal/alerts"
	"github.com/odyssey-erp/revtax/internal/compliance"
	jobmetrics "github.com/odyssey-erp/revtax/internal/jobs"
	"github.com/odyssey-erp/revtax/internal/revenue"
	"github.com/odyssey-erp/revtax/internal/tax"
)

// ComplianceDeps are the shared collaborators of the API and worker
// processes.
type ComplianceDeps struct {
	Config   *Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Notifier alerts.Notifier
	Metrics  *jobmetrics.Metrics
}

// Compliance is the assembled service plus the alert store it claims with.
type Compliance struct {
	Service *compliance.Service
	Cache   *compliance.Cache
	// Cleaner is set when alert records live in Postgres.
	Cleaner *alerts.PostgresStore
}

// BuildCompliance wires repositories, calculator, dispatcher and cache.
func BuildCompliance(deps ComplianceDeps) (*Compliance, error) {
	cfg := deps.Config
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	policy := tax.DefaultPolicy()
	if cfg.TaxPolicyFile != "" {
		if policy, err = tax.LoadPolicy(cfg.TaxPolicyFile); err != nil {
			return nil, err
		}
	}
	calc, err := tax.NewCalculator(policy)
	if err != nil {
		return nil, err
	}

	out := &Compliance{}
	var store alerts.Store
	switch cfg.AlertStore {
	case AlertStoreMemory:
		store = alerts.NewMemoryStore()
	case AlertStoreRedis:
		store = alerts.NewRedisStore(deps.Redis, time.Duration(cfg.AlertRetentionDays)*24*time.Hour)
	default:
		pgStore := alerts.NewPostgresStore(deps.Pool)
		store = pgStore
		out.Cleaner = pgStore
	}
	dispatcher, err := alerts.NewDispatcher(alerts.Config{
		Store:    store,
		Notifier: deps.Notifier,
		Logger:   deps.Logger,
		Metrics:  deps.Metrics,
	})
	if err != nil {
		return nil, err
	}

	out.Cache = compliance.NewCache(deps.Redis, cfg.SummaryCacheTTL)
	orders := revenue.NewRepository(deps.Pool)
	svc, err := compliance.NewService(compliance.Config{
		Orders:     orders,
		Items:      orders,
		Profiles:   tax.NewRepository(deps.Pool),
		Calculator: calc,
		Scheduler:  tax.NewScheduler(loc),
		Dispatcher: dispatcher,
		Cache:      out.Cache,
		Logger:     deps.Logger,
		Metrics:    deps.Metrics,
		Location:   loc,
	})
	if err != nil {
		return nil, fmt.Errorf("build compliance service: %w", err)
	}
	out.Service = svc
	return out, nil
}

// ListenForDiscountChanges keeps cached summaries consistent with catalogue
// discount edits published by the catalogue service.
func (c *Compliance) ListenForDiscountChanges(ctx context.Context, logger *slog.Logger) {
	if err := c.Cache.ListenForInvalidation(ctx, compliance.InvalidationChannel); err != nil {
		logger.Warn("summary cache invalidation disabled", slog.Any("error", err))
	}
}
