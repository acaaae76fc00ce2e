package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/cartlimits-backend/api/responses"
	pkgAuth "github.com/angelmondragon/cartlimits-backend/pkg/auth"
	"github.com/angelmondragon/cartlimits-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
)

// ShopifySession validates the embedded-admin session token and seeds the request context.
func ShopifySession(cfg config.ShopifyConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.Subject)
			ctx = context.WithValue(ctx, ctxSessionID, claims.SessionID)
			ctx = context.WithValue(ctx, ctxShop, cfg.ShopDomain)
			if logg != nil {
				ctx = logg.WithShop(ctx, cfg.ShopDomain)
				ctx = logg.WithField(ctx, "user_id", claims.Subject)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
