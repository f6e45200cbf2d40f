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
	"go.uber.org/multierr"

	"github.com/angelmondragon/shopfront-backend/api/routes"
	"github.com/angelmondragon/shopfront-backend/internal/addresses"
	"github.com/angelmondragon/shopfront-backend/internal/cart"
	"github.com/angelmondragon/shopfront-backend/internal/inventory"
	"github.com/angelmondragon/shopfront-backend/internal/orders"
	"github.com/angelmondragon/shopfront-backend/internal/payments"
	stripewebhook "github.com/angelmondragon/shopfront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/env"
	"github.com/angelmondragon/shopfront-backend/pkg/instance"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/metrics"
	"github.com/angelmondragon/shopfront-backend/pkg/migrate"
	"github.com/angelmondragon/shopfront-backend/pkg/outbox"
	"github.com/angelmondragon/shopfront-backend/pkg/redis"
	stripeclient "github.com/angelmondragon/shopfront-backend/pkg/stripe"
)

const (
	webhookGuardScope = "stripe-webhook"
	shutdownTimeout   = 15 * time.Second
)

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := openDatabase(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	gateway, err := stripeclient.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	cartSvc, err := cart.NewService(cart.NewRepository(gormDB), dbClient)
	if err != nil {
		return err
	}

	notifier, err := inventory.NewRedisNotifier(redisClient, cfg.Inventory.Channel, logg)
	if err != nil {
		return err
	}

	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(gormDB),
		Tx:       dbClient,
		Gateway:  gateway,
		Outbox:   outboxSvc,
		Notifier: notifier,
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	pricing, err := orders.NewPricing(cfg.Checkout)
	if err != nil {
		return err
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:           orders.NewRepository(gormDB),
		Tx:             dbClient,
		Outbox:         outboxSvc,
		Carts:          cartSvc,
		Addresses:      addresses.NewRepository(gormDB),
		Payments:       paymentSvc,
		Pricing:        pricing,
		PublishableKey: gateway.PublishableKey(),
		Metrics:        checkoutMetrics,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: paymentSvc,
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, webhookGuardScope)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Idempotency:     redisClient,
		Gatherer:        registry,
		Carts:           cartSvc,
		Orders:          orderSvc,
		Webhooks:        webhookSvc,
		WebhookVerifier: gateway,
		WebhookGuard:    guard,
	})

	port := env.Get("PORT", cfg.App.Port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "port", port), "api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "api shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDatabase(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	if cfg.FeatureFlags.UseSQLite {
		return db.NewSQLite(ctx, cfg.DB, logg)
	}
	return db.New(ctx, cfg.DB, logg)
}
