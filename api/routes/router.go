package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cartlimits-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/cartlimits-backend/api/controllers/webhooks"
	"github.com/angelmondragon/cartlimits-backend/api/middleware"
	"github.com/angelmondragon/cartlimits-backend/pkg/config"
	"github.com/angelmondragon/cartlimits-backend/pkg/db"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
)

// Store is the Redis surface the HTTP layer needs for rate limiting, idempotency and readiness.
type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	IdempotencyKey(scope, id string) string
	RateLimitKey(scope, id string) string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	dbP db.Pinger,
	store Store,
	cartValidator controllers.CartValidator,
	customerAdmin controllers.CustomerAdmin,
	spendHistory controllers.SpendHistory,
	orderWebhooks webhookcontrollers.OrderWebhookService,
	webhookSecret webhookcontrollers.SigningSecretSource,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Shopify),
	)

	validationPolicy := middleware.NewRateLimitPolicy(
		"cart_validation",
		cfg.RateLimit.ValidationWindow,
		cfg.RateLimit.ValidationIPLimit,
	).WithExceeded(controllers.CartValidationThrottled())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": store,
		}))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(validationPolicy, store, logg)).
			Post("/cart-validations", controllers.CartValidation(cartValidator, logg))

		r.Post("/webhooks/orders/create", webhookcontrollers.OrdersCreateWebhook(orderWebhooks, webhookSecret, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(
				middleware.ShopifySession(cfg.Shopify, logg),
				middleware.Idempotency(store, logg),
			)
			r.Get("/customers", controllers.AdminCustomersList(customerAdmin, logg))
			r.Post("/customers/limits", controllers.AdminCustomerLimits(customerAdmin, logg))
			r.Get("/customers/spend-history", controllers.AdminSpendHistory(spendHistory, logg))
		})
	})

	return r
}
