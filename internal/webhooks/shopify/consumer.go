package shopifywebhook

import (
	"context"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

type deliveryHandler interface {
	HandleOrderCreated(ctx context.Context, d Delivery) error
}

// Consumer receives orders/create notifications that the shop publishes to Pub/Sub.
type Consumer struct {
	handler      deliveryHandler
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds the Pub/Sub order consumer.
func NewConsumer(handler *Service, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("order webhook service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{handler: handler, subscription: subscription, logg: logg}, nil
}

// Run receives until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	delivery := deliveryFromMessage(msg)
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	err := c.handler.HandleOrderCreated(logCtx, delivery)
	if err == nil {
		return processResult{ack: true}
	}
	if pkgerrors.IsRetryable(err) {
		c.logg.Error(logCtx, "order event failed, redelivery requested", err)
		return processResult{nack: true}
	}
	c.logg.Error(logCtx, "order event dropped", err)
	return processResult{ack: true}
}

func deliveryFromMessage(msg *pubsub.Message) Delivery {
	attr := func(name string) string {
		if v, ok := msg.Attributes[name]; ok {
			return v
		}
		return msg.Attributes[strings.ToLower(name)]
	}
	return Delivery{
		WebhookID: attr(shopify.HeaderWebhookID),
		Topic:     attr(shopify.HeaderTopic),
		Shop:      attr(shopify.HeaderShopDomain),
		Body:      msg.Data,
	}
}
