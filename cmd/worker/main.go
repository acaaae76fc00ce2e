package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cartlimits-backend/internal/ledger"
	"github.com/angelmondragon/cartlimits-backend/internal/metafields"
	"github.com/angelmondragon/cartlimits-backend/internal/spend"
	shopifywebhook "github.com/angelmondragon/cartlimits-backend/internal/webhooks/shopify"
	"github.com/angelmondragon/cartlimits-backend/pkg/config"
	"github.com/angelmondragon/cartlimits-backend/pkg/db"
	"github.com/angelmondragon/cartlimits-backend/pkg/instance"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/metrics"
	"github.com/angelmondragon/cartlimits-backend/pkg/migrate"
	"github.com/angelmondragon/cartlimits-backend/pkg/pubsub"
	"github.com/angelmondragon/cartlimits-backend/pkg/redis"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	shopifyClient, err := shopify.NewClient(context.Background(), cfg.Shopify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap shopify client", err)
		os.Exit(1)
	}

	limitMetrics := metrics.NewLimitMetrics(prometheus.DefaultRegisterer)

	consumer, err := buildOrderConsumer(cfg, logg, dbClient, redisClient, pubsubClient, shopifyClient, limitMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create order consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		PubSub:        pubsubClient,
		Shopify:       shopifyClient,
		OrderConsumer: consumer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"instance":     instance.GetID("worker"),
		"subscription": cfg.PubSub.OrdersSubscription,
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}

func buildOrderConsumer(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	pubsubClient *pubsub.Client,
	shopifyClient *shopify.Client,
	limitMetrics *metrics.LimitMetrics,
) (*shopifywebhook.Consumer, error) {
	metafieldService, err := metafields.NewService(shopifyClient, logg)
	if err != nil {
		return nil, err
	}
	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	locker, err := spend.NewCustomerLocker(redisClient, cfg.Limits)
	if err != nil {
		return nil, err
	}
	spendService, err := spend.NewService(metafieldService, ledgerService, locker, limitMetrics, logg)
	if err != nil {
		return nil, err
	}
	guard, err := shopifywebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "shopify_webhook")
	if err != nil {
		return nil, err
	}
	handler, err := shopifywebhook.NewService(spendService, guard, logg)
	if err != nil {
		return nil, err
	}
	return shopifywebhook.NewConsumer(handler, pubsubClient.OrdersSubscription(), logg)
}
