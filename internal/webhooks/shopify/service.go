package shopifywebhook

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cartlimits-backend/internal/spend"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
)

// OrderRecorder applies an order to the customer's annual spend.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, event spend.OrderEvent) (*spend.Result, error)
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// Delivery is one orders/create notification, from either the HTTP or the Pub/Sub feed.
type Delivery struct {
	WebhookID string
	Topic     string
	Shop      string
	Body      []byte
}

// Service turns order notifications into spend updates.
type Service struct {
	recorder OrderRecorder
	guard    deliveryGuard
	logger   *logger.Logger
}

// NewService wires the order webhook service. guard may be nil to rely on the spend ledger alone.
func NewService(recorder OrderRecorder, guard *IdempotencyGuard, logg *logger.Logger) (*Service, error) {
	if recorder == nil {
		return nil, fmt.Errorf("order recorder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &Service{recorder: recorder, logger: logg}
	if guard != nil {
		s.guard = guard
	}
	return s, nil
}

// HandleOrderCreated processes one delivery. Returned errors are retryable only when
// pkgerrors.IsRetryable says so; the delivery mark is dropped in that case.
func (s *Service) HandleOrderCreated(ctx context.Context, d Delivery) error {
	ctx = s.logger.WithFields(ctx, map[string]any{
		"webhook_id": d.WebhookID,
		"topic":      d.Topic,
	})
	if d.Shop != "" {
		ctx = s.logger.WithShop(ctx, d.Shop)
	}
	if d.Topic != "" && d.Topic != TopicOrdersCreate {
		s.logger.Info(ctx, "webhook topic not handled")
		return nil
	}

	if s.guard != nil && d.WebhookID != "" {
		seen, err := s.guard.CheckAndMark(ctx, d.WebhookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency check")
		}
		if seen {
			s.logger.Info(ctx, "webhook delivery already processed")
			return nil
		}
	}

	err := s.process(ctx, d.Body)
	if err != nil && pkgerrors.IsRetryable(err) && s.guard != nil && d.WebhookID != "" {
		if delErr := s.guard.Delete(context.WithoutCancel(ctx), d.WebhookID); delErr != nil {
			s.logger.Error(ctx, "clear webhook idempotency key failed", delErr)
		}
	}
	return err
}

func (s *Service) process(ctx context.Context, body []byte) error {
	payload, err := DecodeOrder(body)
	if err != nil {
		return err
	}
	event, err := payload.Event()
	if err != nil {
		return err
	}
	res, err := s.recorder.RecordOrder(ctx, event)
	if err != nil {
		return err
	}
	s.logger.Debug(s.logger.WithField(ctx, "outcome", string(res.Outcome)), "order webhook processed")
	return nil
}
