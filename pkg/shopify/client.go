package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"golang.org/x/time/rate"

	"github.com/angelmondragon/cartlimits-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
)

const accessTokenHeader = "X-Shopify-Access-Token"

var (
	errShopDomainRequired  = errors.New("shopify shop domain is required")
	errAccessTokenRequired = errors.New("shopify admin access token is required")
	errAPISecretRequired   = errors.New("shopify api secret is required")
	errLoggerRequired      = errors.New("shopify logger is required")
)

// graphQL is the slice of the go-shopify GraphQL service the wrapper drives.
type graphQL interface {
	Query(ctx context.Context, query string, vars, resp interface{}) error
}

// Client talks to the Shopify Admin GraphQL API of a single shop.
type Client struct {
	gql         graphQL
	http        *http.Client
	endpoint    *url.URL
	shopDomain  string
	accessToken string
	apiKey      string
	apiSecret   string
	limiter     *rate.Limiter
	logger      *logger.Logger
}

// Option customises a Client; used by tests to point at an httptest server.
type Option func(*Client)

// WithHTTPClient swaps the transport used for Admin API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithEndpoint sends Admin API calls to another host, keeping the versioned path.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		u, err := url.Parse(strings.TrimSpace(endpoint))
		if err == nil && u.Scheme != "" && u.Host != "" {
			c.endpoint = u
		}
	}
}

// WithLimiter overrides the request pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// NewClient initializes the Admin API wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.ShopifyConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	shop := strings.TrimSpace(cfg.ShopDomain)
	if shop == "" {
		return nil, errShopDomainRequired
	}
	token := strings.TrimSpace(cfg.AdminAccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	secret := strings.TrimSpace(cfg.APISecret)
	if secret == "" {
		return nil, errAPISecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		http:        &http.Client{Timeout: timeout},
		shopDomain:  shop,
		accessToken: token,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		apiSecret:   secret,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		logger:      logg,
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := c.http
	if c.endpoint != nil {
		next := hc.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		rewritten := *hc
		rewritten.Transport = endpointRewrite{target: c.endpoint, next: next}
		hc = &rewritten
	}

	app := goshopify.App{ApiKey: c.apiKey, ApiSecret: secret}
	// Throttling is paced by the limiter and surfaced to callers, never retried inside the library.
	sdk, err := goshopify.NewClient(app, shop, token,
		goshopify.WithHTTPClient(hc),
		goshopify.WithVersion(cfg.APIVersion),
		goshopify.WithRetry(0),
	)
	if err != nil {
		return nil, fmt.Errorf("init shopify admin client: %w", err)
	}
	c.gql = sdk.GraphQL

	logg.Info(logg.WithShop(ctx, shop), "shopify client initialized")
	return c, nil
}

// endpointRewrite redirects Admin API requests to a fixed scheme and host.
type endpointRewrite struct {
	target *url.URL
	next   http.RoundTripper
}

func (e endpointRewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = e.target.Scheme
	out.URL.Host = e.target.Host
	out.Host = e.target.Host
	return e.next.RoundTrip(out)
}

// ShopDomain returns the myshopify domain this client is bound to.
func (c *Client) ShopDomain() string {
	if c == nil {
		return ""
	}
	return c.shopDomain
}

// APIKey returns the app's client id, the audience of session tokens.
func (c *Client) APIKey() string {
	if c == nil {
		return ""
	}
	return c.apiKey
}

// SigningSecret returns the app secret used for webhook HMACs and session tokens.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.apiSecret
}

// Ping issues a trivial shop query to verify credentials and connectivity.
func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		Shop struct {
			ID string `json:"id"`
		} `json:"shop"`
	}
	return c.do(ctx, "ping", `query Ping { shop { id } }`, nil, &out)
}

func (c *Client) do(ctx context.Context, op, query string, variables map[string]any, out any) error {
	if c == nil || c.gql == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "shopify client not initialized")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("shopify %s rate wait", op))
	}

	c.log(ctx, "request", op, variables)

	if err := c.gql.Query(ctx, query, variables, out); err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return mapAdminError(op, err)
	}

	c.log(ctx, "response", op, nil)
	return nil
}

// mapAdminError translates go-shopify failures into domain codes.
func mapAdminError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("shopify %s failed", op))
	}

	var throttled goshopify.RateLimitError
	if errors.As(err, &throttled) {
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, err, firstNonEmpty(throttled.Message, "shopify rate limit exceeded"))
	}

	var resp goshopify.ResponseError
	if errors.As(err, &resp) {
		msg := resp.Message
		if len(resp.Errors) > 0 {
			msg = firstNonEmpty(msg, resp.Errors[0])
		}
		if resp.Status == http.StatusOK {
			// GraphQL-level error on a 200 response.
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, firstNonEmpty(msg, "Unknown error occurred"))
		}
		return pkgerrors.Wrap(domainCodeForStatus(resp.Status), err,
			firstNonEmpty(msg, fmt.Sprintf("shopify %s failed with status %d", op, resp.Status)))
	}

	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("shopify %s failed", op))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("shopify %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("shopify %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
