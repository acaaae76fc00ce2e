package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/cartlimits-backend/api/responses"
	shopifywebhook "github.com/angelmondragon/cartlimits-backend/internal/webhooks/shopify"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

const maxWebhookBody = 1 << 20

type OrderWebhookService interface {
	HandleOrderCreated(ctx context.Context, d shopifywebhook.Delivery) error
}

type SigningSecretSource interface {
	SigningSecret() string
}

// OrdersCreateWebhook receives Shopify orders/create deliveries. Once the HMAC checks out it
// always answers 200; processing failures are logged only.
func OrdersCreateWebhook(svc OrderWebhookService, client SigningSecretSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shopify client unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !shopify.VerifyWebhook(payload, client.SigningSecret(), r.Header.Get(shopify.HeaderHmac)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		delivery := shopifywebhook.Delivery{
			WebhookID: r.Header.Get(shopify.HeaderWebhookID),
			Topic:     r.Header.Get(shopify.HeaderTopic),
			Shop:      r.Header.Get(shopify.HeaderShopDomain),
			Body:      payload,
		}
		if err := svc.HandleOrderCreated(ctx, delivery); err != nil && logg != nil {
			logg.Error(logg.WithField(ctx, "webhook_id", delivery.WebhookID), "orders/create processing failed", err)
		}
		responses.WriteSuccess(w, nil)
	}
}
