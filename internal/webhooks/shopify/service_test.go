package shopifywebhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/cartlimits-backend/internal/spend"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
)

type stubRecorder struct {
	events []spend.OrderEvent
	err    error
}

func (s *stubRecorder) RecordOrder(ctx context.Context, event spend.OrderEvent) (*spend.Result, error) {
	s.events = append(s.events, event)
	if s.err != nil {
		return nil, s.err
	}
	return &spend.Result{Outcome: spend.OutcomeApplied}, nil
}

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]struct{}
	err  error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: map[string]struct{}{}}
}

func (m *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "cl:idempotency:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

const orderBody = `{"id":1001,"total_price":"75.50","currency":"USD","customer":{"id":42}}`

func newTestService(t *testing.T, recorder OrderRecorder, store *memoryIdempotencyStore) *Service {
	t.Helper()
	var guard *IdempotencyGuard
	if store != nil {
		g, err := NewIdempotencyGuard(store, time.Hour, "webhook:orders/create")
		if err != nil {
			t.Fatalf("guard: %v", err)
		}
		guard = g
	}
	svc, err := NewService(recorder, guard, logger.Nop())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func TestHandleOrderCreatedRecordsSpend(t *testing.T) {
	recorder := &stubRecorder{}
	svc := newTestService(t, recorder, newMemoryIdempotencyStore())

	err := svc.HandleOrderCreated(context.Background(), Delivery{WebhookID: "wh-1", Topic: TopicOrdersCreate, Body: []byte(orderBody)})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(recorder.events) != 1 {
		t.Fatalf("expected one event, got %d", len(recorder.events))
	}
	if recorder.events[0].CustomerID != "gid://shopify/Customer/42" {
		t.Fatalf("unexpected customer %q", recorder.events[0].CustomerID)
	}
}

func TestHandleOrderCreatedSkipsRedelivery(t *testing.T) {
	recorder := &stubRecorder{}
	svc := newTestService(t, recorder, newMemoryIdempotencyStore())
	d := Delivery{WebhookID: "wh-1", Topic: TopicOrdersCreate, Body: []byte(orderBody)}

	for i := 0; i < 3; i++ {
		if err := svc.HandleOrderCreated(context.Background(), d); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}
	if len(recorder.events) != 1 {
		t.Fatalf("expected one recorded event, got %d", len(recorder.events))
	}
}

func TestHandleOrderCreatedClearsMarkOnRetryableFailure(t *testing.T) {
	recorder := &stubRecorder{err: pkgerrors.New(pkgerrors.CodeDependency, "store down")}
	store := newMemoryIdempotencyStore()
	svc := newTestService(t, recorder, store)
	d := Delivery{WebhookID: "wh-2", Topic: TopicOrdersCreate, Body: []byte(orderBody)}

	if err := svc.HandleOrderCreated(context.Background(), d); !pkgerrors.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if len(store.keys) != 0 {
		t.Fatalf("expected idempotency key cleared")
	}

	recorder.err = nil
	if err := svc.HandleOrderCreated(context.Background(), d); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(recorder.events) != 2 {
		t.Fatalf("expected redelivery to reach the recorder, got %d events", len(recorder.events))
	}
}

func TestHandleOrderCreatedKeepsMarkOnPermanentFailure(t *testing.T) {
	recorder := &stubRecorder{}
	store := newMemoryIdempotencyStore()
	svc := newTestService(t, recorder, store)

	err := svc.HandleOrderCreated(context.Background(), Delivery{WebhookID: "wh-3", Body: []byte(`{"id":1,"total_price":"n/a"}`)})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.keys) != 1 {
		t.Fatalf("expected idempotency key kept")
	}
	if len(recorder.events) != 0 {
		t.Fatalf("recorder must not be called")
	}
}

func TestHandleOrderCreatedIgnoresOtherTopics(t *testing.T) {
	recorder := &stubRecorder{}
	svc := newTestService(t, recorder, nil)

	if err := svc.HandleOrderCreated(context.Background(), Delivery{Topic: "orders/paid", Body: []byte(orderBody)}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(recorder.events) != 0 {
		t.Fatalf("expected no events")
	}
}

func TestHandleOrderCreatedIdempotencyStoreFailureIsRetryable(t *testing.T) {
	store := newMemoryIdempotencyStore()
	store.err = errors.New("redis down")
	svc := newTestService(t, &stubRecorder{}, store)

	err := svc.HandleOrderCreated(context.Background(), Delivery{WebhookID: "wh-4", Body: []byte(orderBody)})
	if !pkgerrors.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestConsumerAckNackDecisions(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantNack bool
	}{
		{"success", nil, false},
		{"transient", pkgerrors.New(pkgerrors.CodeDependency, "lock busy"), true},
		{"permanent", pkgerrors.New(pkgerrors.CodeValidation, "bad payload"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := &stubRecorder{err: tc.err}
			c := &Consumer{handler: newTestService(t, recorder, nil), logg: logger.Nop()}
			msg := &pubsub.Message{
				ID:   "m-1",
				Data: []byte(orderBody),
				Attributes: map[string]string{
					"X-Shopify-Topic":      TopicOrdersCreate,
					"X-Shopify-Webhook-Id": "wh-" + tc.name,
				},
			}
			res := c.process(context.Background(), msg)
			if res.nack != tc.wantNack {
				t.Fatalf("nack = %v, want %v", res.nack, tc.wantNack)
			}
			if len(recorder.events) != 1 {
				t.Fatalf("expected handler to be invoked once")
			}
		})
	}
}

func TestDeliveryFromMessageAcceptsLowercaseAttributes(t *testing.T) {
	d := deliveryFromMessage(&pubsub.Message{Attributes: map[string]string{
		"x-shopify-webhook-id":  "abc",
		"x-shopify-topic":       TopicOrdersCreate,
		"x-shopify-shop-domain": "demo.myshopify.com",
	}})
	if d.WebhookID != "abc" || d.Topic != TopicOrdersCreate || d.Shop != "demo.myshopify.com" {
		t.Fatalf("unexpected delivery %+v", d)
	}
}
