package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	Shopify   ShopifyConfig
	DB        DBConfig
	Redis     RedisConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Limits    LimitsConfig
	RateLimit RateLimitConfig
	Eventing  EventingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Shopify.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTLIMITS_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTLIMITS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARTLIMITS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CARTLIMITS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CARTLIMITS_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"CARTLIMITS_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CARTLIMITS_SERVICE_KIND" default:"api"`
}

// ShopifyConfig holds the credentials of the single shop this backend serves.
type ShopifyConfig struct {
	ShopDomain        string        `envconfig:"CARTLIMITS_SHOPIFY_SHOP_DOMAIN" required:"true"`
	AdminAccessToken  string        `envconfig:"CARTLIMITS_SHOPIFY_ADMIN_ACCESS_TOKEN" required:"true"`
	APIVersion        string        `envconfig:"CARTLIMITS_SHOPIFY_API_VERSION" default:"2025-10"`
	APIKey            string        `envconfig:"CARTLIMITS_SHOPIFY_API_KEY" required:"true"`
	APISecret         string        `envconfig:"CARTLIMITS_SHOPIFY_API_SECRET" required:"true"`
	RequestsPerSecond float64       `envconfig:"CARTLIMITS_SHOPIFY_REQUESTS_PER_SECOND" default:"2"`
	Burst             int           `envconfig:"CARTLIMITS_SHOPIFY_BURST" default:"4"`
	Timeout           time.Duration `envconfig:"CARTLIMITS_SHOPIFY_TIMEOUT" default:"15s"`
}

func (s *ShopifyConfig) normalize() error {
	domain := strings.ToLower(strings.TrimSpace(s.ShopDomain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimSuffix(domain, "/")
	if domain == "" {
		return fmt.Errorf("%s is required", EnvShopifyShopDomain)
	}
	s.ShopDomain = domain
	s.APIVersion = strings.TrimSpace(s.APIVersion)
	return nil
}

type DBConfig struct {
	DSN    string `envconfig:"CARTLIMITS_DB_DSN"`
	Driver string `envconfig:"CARTLIMITS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CARTLIMITS_DB_HOST"`
	Port     int    `envconfig:"CARTLIMITS_DB_PORT" default:"5432"`
	User     string `envconfig:"CARTLIMITS_DB_USER"`
	Password string `envconfig:"CARTLIMITS_DB_PASSWORD"`
	Name     string `envconfig:"CARTLIMITS_DB_NAME"`
	SSLMode  string `envconfig:"CARTLIMITS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARTLIMITS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"CARTLIMITS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CARTLIMITS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTLIMITS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTLIMITS_REDIS_URL"`
	Address      string        `envconfig:"CARTLIMITS_REDIS_ADDR"`
	Password     string        `envconfig:"CARTLIMITS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTLIMITS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTLIMITS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTLIMITS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTLIMITS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTLIMITS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTLIMITS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CARTLIMITS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CARTLIMITS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CARTLIMITS_GOOGLE_APPLICATION_CREDENTIALS"`
}

// PubSubConfig names the subscription Shopify delivers orders/create events to.
type PubSubConfig struct {
	OrdersSubscription string `envconfig:"CARTLIMITS_PUBSUB_ORDERS_SUBSCRIPTION"`
	MaxOutstanding     int    `envconfig:"CARTLIMITS_PUBSUB_MAX_OUTSTANDING" default:"10"`
}

// LimitsConfig tunes the bulk coordinator and the spend lock.
type LimitsConfig struct {
	BulkBatchSize  int           `envconfig:"CARTLIMITS_BULK_BATCH_SIZE" default:"25"`
	BulkPageSize   int           `envconfig:"CARTLIMITS_BULK_PAGE_SIZE" default:"250"`
	AdminPageSize  int           `envconfig:"CARTLIMITS_ADMIN_PAGE_SIZE" default:"50"`
	SpendLockTTL   time.Duration `envconfig:"CARTLIMITS_SPEND_LOCK_TTL" default:"30s"`
	SpendLockWait  time.Duration `envconfig:"CARTLIMITS_SPEND_LOCK_WAIT" default:"200ms"`
	SpendLockTries int           `envconfig:"CARTLIMITS_SPEND_LOCK_ATTEMPTS" default:"10"`
}

// RateLimitConfig throttles the unauthenticated cart validation route per client IP.
type RateLimitConfig struct {
	ValidationWindow  time.Duration `envconfig:"CARTLIMITS_RATE_LIMIT_VALIDATION_WINDOW" default:"1m"`
	ValidationIPLimit int           `envconfig:"CARTLIMITS_RATE_LIMIT_VALIDATION_IP_LIMIT" default:"600"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"CARTLIMITS_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
