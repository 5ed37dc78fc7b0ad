package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/revtax/cmd/revtax/cli"
	"github.com/odyssey-erp/revtax/internal/app"
	compliancehttp "github.com/odyssey-erp/revtax/internal/compliance/http"
	jobmetrics "github.com/odyssey-erp/revtax/internal/jobs"
	"github.com/odyssey-erp/revtax/internal/observability"
	"github.com/odyssey-erp/revtax/internal/platform/cache"
	"github.com/odyssey-erp/revtax/internal/platform/db"
	"github.com/odyssey-erp/revtax/internal/shared"
	"github.com/odyssey-erp/revtax/jobs"
	"github.com/odyssey-erp/revtax/report"
)

const usage = `usage: revtax [command]

commands:
  serve                       run the HTTP API (default)
  migrate                     apply the database schema
  token -owner ID [-email E]  print a bearer token for an owner
  sweep [-retention DAYS]     enqueue an immediate alert sweep
  queues                      print alert queue statistics`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command, args := "serve", []string{}
	if len(os.Args) > 1 {
		command, args = os.Args[1], os.Args[2:]
	}
	os.Exit(run(ctx, command, args, cfg, logger))
}

func run(ctx context.Context, command string, args []string, cfg *app.Config, logger *slog.Logger) int {
	tokens := shared.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTokenTTL)
	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger, tokens); err != nil {
			logger.Error("serve", slog.Any("error", err))
			return 1
		}
		return 0
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			return 1
		}
		logger.Info("schema applied")
		return 0
	case "token":
		fset := flag.NewFlagSet("token", flag.ContinueOnError)
		owner := fset.Int64("owner", 0, "owner id")
		email := fset.String("email", "", "owner e-mail claim")
		if err := fset.Parse(args); err != nil {
			return 2
		}
		return cli.TokenCommand(tokens, cli.TokenOptions{OwnerID: *owner, Email: *email})
	case "sweep":
		fset := flag.NewFlagSet("sweep", flag.ContinueOnError)
		retention := fset.Int("retention", cfg.AlertRetentionDays, "prune alert records older than this many days")
		if err := fset.Parse(args); err != nil {
			return 2
		}
		jc := cli.NewJobsCLI(cfg.RedisAddr)
		defer func() { _ = jc.Close() }()
		if err := jc.TriggerSweep(ctx, *retention); err != nil {
			logger.Error("enqueue sweep", slog.Any("error", err))
			return 1
		}
		return 0
	case "queues":
		jc := cli.NewJobsCLI(cfg.RedisAddr)
		defer func() { _ = jc.Close() }()
		stats, err := jc.InspectQueues()
		if err != nil {
			logger.Error("inspect queues", slog.Any("error", err))
			return 1
		}
		if err := cli.PrintQueueStats(os.Stdout, stats); err != nil {
			return 1
		}
		return 0
	default:
		_, _ = fmt.Fprintln(os.Stderr, usage)
		return 2
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger, tokens *shared.TokenManager) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := jobs.NewClient(redisOpts)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	built, err := app.BuildCompliance(app.ComplianceDeps{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Redis:    redisClient,
		Notifier: queue,
		Metrics:  jobMetrics,
	})
	if err != nil {
		return err
	}
	built.ListenForDiscountChanges(ctx, logger)

	var pdf compliancehttp.PDFRenderer
	readiness := map[string]app.ReadinessCheck{
		"postgres": pool.Ping,
		"redis":    cache.Ping(redisClient),
	}
	if cfg.GotenbergURL != "" {
		gotenberg := report.NewClient(cfg.GotenbergURL, 30*time.Second)
		pdf = gotenberg
		readiness["gotenberg"] = gotenberg.Ping
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Tokens:            tokens,
		ComplianceHandler: compliancehttp.NewHandler(logger, built.Service, pdf),
		JobHandler:        jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
		Readiness:         readiness,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
