package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/cartlimits-backend/pkg/config"
)

const shopifyAdminOrigin = "https://admin.shopify.com"

// CORS allows the embedded admin and the shop's own storefront to call the API.
func CORS(cfg config.ShopifyConfig) func(http.Handler) http.Handler {
	origins := []string{shopifyAdminOrigin}
	if cfg.ShopDomain != "" {
		origins = append(origins, "https://"+cfg.ShopDomain)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
