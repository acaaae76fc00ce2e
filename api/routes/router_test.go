package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cartlimits-backend/internal/cartvalidation"
	"github.com/angelmondragon/cartlimits-backend/internal/customers"
	shopifywebhook "github.com/angelmondragon/cartlimits-backend/internal/webhooks/shopify"
	pkgAuth "github.com/angelmondragon/cartlimits-backend/pkg/auth"
	"github.com/angelmondragon/cartlimits-backend/pkg/config"
	"github.com/angelmondragon/cartlimits-backend/pkg/db/models"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/metrics"
	"github.com/angelmondragon/cartlimits-backend/pkg/redis"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryStore struct {
	mu       sync.Mutex
	data     map[string]string
	counters map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, counters: map[string]int64{}}
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (m *memoryStore) RateLimitKey(scope, id string) string { return "rl:" + scope + ":" + id }

type stubCustomerAdmin struct {
	lists int
}

func (s *stubCustomerAdmin) List(ctx context.Context, cursor string) (*customers.Page, error) {
	s.lists++
	return &customers.Page{Customers: []customers.Row{}}, nil
}

func (s *stubCustomerAdmin) UpdateLimits(ctx context.Context, edit customers.LimitEdit) customers.ActionResult {
	return customers.ActionResult{Success: true, Message: "Customer limits updated"}
}

func (s *stubCustomerAdmin) BulkUpdate(ctx context.Context, edit customers.BulkEdit) customers.ActionResult {
	return customers.ActionResult{Success: true}
}

type stubHistory struct{}

func (stubHistory) History(ctx context.Context, customerID string, limit int) ([]models.OrderSpendEntry, error) {
	return nil, nil
}

type stubOrderWebhooks struct {
	calls int
}

func (s *stubOrderWebhooks) HandleOrderCreated(ctx context.Context, d shopifywebhook.Delivery) error {
	s.calls++
	return nil
}

type stubSecret string

func (s stubSecret) SigningSecret() string { return string(s) }

type harness struct {
	handler  http.Handler
	admin    *stubCustomerAdmin
	webhooks *stubOrderWebhooks
	cfg      *config.Config
}

func newHarness(t *testing.T, validationLimit int) harness {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		Shopify: config.ShopifyConfig{
			ShopDomain: "demo.myshopify.com",
			APIKey:     "api-key",
			APISecret:  "api-secret",
		},
		RateLimit: config.RateLimitConfig{ValidationWindow: time.Minute, ValidationIPLimit: validationLimit},
	}
	registry := prometheus.NewRegistry()
	limitMetrics := metrics.NewLimitMetrics(registry)
	validator, err := cartvalidation.NewService(limitMetrics, logger.Nop())
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	admin := &stubCustomerAdmin{}
	webhooks := &stubOrderWebhooks{}
	handler := NewRouter(cfg, logger.Nop(), registry, stubPinger{}, newMemoryStore(), validator, admin, stubHistory{}, webhooks, stubSecret(cfg.Shopify.APISecret))
	return harness{handler: handler, admin: admin, webhooks: webhooks, cfg: cfg}
}

func (h harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	h := newHarness(t, 10)
	for _, path := range []string{"/health/live", "/health/ready"} {
		if rec := h.do(httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestMetricsRouteExposesValidationCounters(t *testing.T) {
	h := newHarness(t, 10)
	body := `{"cart":{"cost":{"subtotalAmount":{"amount":"10"}}}}`
	h.do(httptest.NewRequest(http.MethodPost, "/api/v1/cart-validations", strings.NewReader(body)))

	rec := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cartlimits_") {
		t.Fatalf("expected cartlimits metrics, got %s", rec.Body.String())
	}
}

func TestCartValidationPassesCartWhenRateLimited(t *testing.T) {
	h := newHarness(t, 2)
	body := `{"cart":{"cost":{"subtotalAmount":{"amount":"10"}}}}`
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart-validations", strings.NewReader(body))
		req.RemoteAddr = "203.0.113.9:5555"
		last = h.do(req)
	}
	if last.Code != http.StatusOK {
		t.Fatalf("expected 200 on third request got %d", last.Code)
	}
	if !strings.Contains(last.Body.String(), `"operations"`) || !strings.Contains(last.Body.String(), `"errors":[]`) {
		t.Fatalf("expected passing operations payload, got %s", last.Body.String())
	}
}

func TestAdminRoutesRequireSessionToken(t *testing.T) {
	h := newHarness(t, 10)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/customers", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if h.admin.lists != 0 {
		t.Fatalf("admin service must not run without a session")
	}
}

func TestAdminRoutesAcceptSessionToken(t *testing.T) {
	h := newHarness(t, 10)
	token, err := pkgAuth.MintSessionToken(h.cfg.Shopify, time.Now(), time.Minute, pkgAuth.SessionTokenPayload{UserID: "42", SessionID: "s-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := h.do(req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	action := httptest.NewRequest(http.MethodPost, "/api/v1/admin/customers/limits", strings.NewReader(`{"customerId":"gid://shopify/Customer/1","cartLimit":"10"}`))
	action.Header.Set("Authorization", "Bearer "+token)
	action.Header.Set("Content-Type", "application/json")
	action.Header.Set("Idempotency-Key", "k-1")
	rec := h.do(action)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Customer limits updated") {
		t.Fatalf("unexpected action response %d %s", rec.Code, rec.Body.String())
	}
}

func TestOrdersWebhookRoute(t *testing.T) {
	h := newHarness(t, 10)
	body := `{"id":1,"total_price":"5.00","currency":"USD"}`

	bad := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders/create", strings.NewReader(body))
	bad.Header.Set(shopify.HeaderHmac, "nope")
	if rec := h.do(bad); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	good := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders/create", strings.NewReader(body))
	good.Header.Set(shopify.HeaderHmac, shopify.SignWebhook([]byte(body), h.cfg.Shopify.APISecret))
	if rec := h.do(good); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if h.webhooks.calls != 1 {
		t.Fatalf("expected one delivery got %d", h.webhooks.calls)
	}
}
