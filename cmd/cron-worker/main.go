package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/splitpay-backend/internal/cron"
	"github.com/angelmondragon/splitpay-backend/internal/orderevents"
	"github.com/angelmondragon/splitpay-backend/internal/payouts"
	"github.com/angelmondragon/splitpay-backend/internal/settlements"
	"github.com/angelmondragon/splitpay-backend/internal/stores"
	"github.com/angelmondragon/splitpay-backend/pkg/config"
	"github.com/angelmondragon/splitpay-backend/pkg/db"
	"github.com/angelmondragon/splitpay-backend/pkg/instance"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/metrics"
	"github.com/angelmondragon/splitpay-backend/pkg/migrate"
	"github.com/angelmondragon/splitpay-backend/pkg/outbox"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
	"github.com/angelmondragon/splitpay-backend/pkg/redis"
)

const (
	serviceKind       = "cron-worker"
	reconcileLockName = "payout-reconcile"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    instance.ID(),
		"once":        *once,
	})

	err = run(ctx, cfg, logg, *once)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.WithoutCancel(ctx), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.WithoutCancel(ctx), "error closing redis", err)
		}
	}()

	service, err := buildService(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	if once {
		logg.Info(ctx, "running a single cron cycle")
		return service.RunOnce(ctx)
	}

	logg.Info(ctx, "starting cron worker")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(gctx) })
	g.Go(func() error { return metrics.Serve(gctx, cfg.Metrics.Addr, prometheus.DefaultGatherer) })
	return g.Wait()
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(reconcileLockName), cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("create cron lock: %w", err)
	}

	paystackClient, err := paystack.NewClientFromConfig(cfg.Paystack, logg,
		paystack.WithRecorder(metrics.NewGatewayMetrics(prometheus.DefaultRegisterer)))
	if err != nil {
		return nil, fmt.Errorf("create paystack client: %w", err)
	}
	settlementService, err := settlements.NewService(paystackClient)
	if err != nil {
		return nil, fmt.Errorf("create settlements service: %w", err)
	}
	eventsService, err := orderevents.NewService(orderevents.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, fmt.Errorf("create order events service: %w", err)
	}

	reconcileJob, err := cron.NewPayoutReconcileJob(cron.PayoutReconcileJobParams{
		Logger:      logg,
		DB:          dbClient,
		Stores:      stores.NewRepository(dbClient.DB()),
		Payouts:     payouts.NewRepository(dbClient.DB()),
		Settlements: settlementService,
		Events:      eventsService,
		Outbox:      outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Lookback:    cfg.Payout.ReconcileLookback,
		PageLimit:   cfg.Payout.ReconcilePageLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create payout reconcile job: %w", err)
	}

	registry, err := cron.NewRegistry(reconcileJob)
	if err != nil {
		return nil, fmt.Errorf("register cron jobs: %w", err)
	}
	return cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
}
