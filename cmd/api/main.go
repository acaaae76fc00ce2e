package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/cartlimits-backend/api/routes"
	"github.com/angelmondragon/cartlimits-backend/internal/bulk"
	"github.com/angelmondragon/cartlimits-backend/internal/cartvalidation"
	"github.com/angelmondragon/cartlimits-backend/internal/customers"
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
	"github.com/angelmondragon/cartlimits-backend/pkg/redis"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
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

	shopifyClient, err := shopify.NewClient(context.Background(), cfg.Shopify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap shopify client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	limitMetrics := metrics.NewLimitMetrics(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	validator, err := cartvalidation.NewService(limitMetrics, logg)
	exitOnErr(logg, "cart validation service", err)

	metafieldService, err := metafields.NewService(shopifyClient, logg)
	exitOnErr(logg, "metafield service", err)

	coordinator, err := bulk.NewCoordinator(shopifyClient, metafieldService, cfg.Limits, limitMetrics, jobMetrics, logg)
	exitOnErr(logg, "bulk coordinator", err)

	customerService, err := customers.NewService(shopifyClient, metafieldService, coordinator, cfg.Limits.AdminPageSize, logg)
	exitOnErr(logg, "customer service", err)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	exitOnErr(logg, "spend ledger", err)

	locker, err := spend.NewCustomerLocker(redisClient, cfg.Limits)
	exitOnErr(logg, "spend locker", err)

	spendService, err := spend.NewService(metafieldService, ledgerService, locker, limitMetrics, logg)
	exitOnErr(logg, "spend service", err)

	guard, err := shopifywebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "shopify_webhook")
	exitOnErr(logg, "webhook idempotency guard", err)

	orderWebhooks, err := shopifywebhook.NewService(spendService, guard, logg)
	exitOnErr(logg, "order webhook service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := instance.GetID("api")
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"shop":     shopifyClient.ShopDomain(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			registry,
			dbClient,
			redisClient,
			validator,
			customerService,
			ledgerService,
			orderWebhooks,
			shopifyClient,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOnErr(logg *logger.Logger, component string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+component, err)
	os.Exit(1)
}
