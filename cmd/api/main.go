package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/splitpay-backend/api/routes"
	"github.com/angelmondragon/splitpay-backend/internal/orderevents"
	"github.com/angelmondragon/splitpay-backend/internal/orders"
	"github.com/angelmondragon/splitpay-backend/internal/payouts"
	"github.com/angelmondragon/splitpay-backend/internal/settlements"
	"github.com/angelmondragon/splitpay-backend/internal/stores"
	"github.com/angelmondragon/splitpay-backend/internal/subaccounts"
	paystackwebhook "github.com/angelmondragon/splitpay-backend/internal/webhooks/paystack"
	"github.com/angelmondragon/splitpay-backend/pkg/config"
	"github.com/angelmondragon/splitpay-backend/pkg/db"
	"github.com/angelmondragon/splitpay-backend/pkg/idempotency"
	"github.com/angelmondragon/splitpay-backend/pkg/instance"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/metrics"
	"github.com/angelmondragon/splitpay-backend/pkg/migrate"
	"github.com/angelmondragon/splitpay-backend/pkg/outbox"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
	"github.com/angelmondragon/splitpay-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	paystackClient, err := paystack.NewClientFromConfig(cfg.Paystack, logg,
		paystack.WithRecorder(metrics.NewGatewayMetrics(registry)))
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	storeRepo := stores.NewRepository(dbClient.DB())

	eventsService, err := orderevents.NewService(orderevents.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create order events service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), storeRepo, dbClient, eventsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Repository:  payouts.NewRepository(dbClient.DB()),
		Orders:      ordersService,
		Events:      eventsService,
		Outbox:      outboxService,
		Tx:          dbClient,
		Logger:      logg,
		Metrics:     metrics.NewPayoutMetrics(registry),
		FeeRate:     cfg.Payout.FeeRate,
		Concurrency: cfg.Payout.SettleConcurrency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	percentageCharge, _ := cfg.Payout.FeeRate.Shift(2).Float64()
	accountService, err := subaccounts.NewService(paystackClient, storeRepo, logg, percentageCharge)
	if err != nil {
		logg.Error(context.Background(), "failed to create subaccounts service", err)
		os.Exit(1)
	}

	settlementService, err := settlements.NewService(paystackClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlements service", err)
		os.Exit(1)
	}

	webhookService, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		Orders:  ordersService,
		Payouts: payoutService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := idempotency.NewManager(redisClient, cfg.Webhook.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			storeRepo,
			accountService,
			settlementService,
			payoutService,
			paystackClient,
			webhookService,
			webhookGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}
