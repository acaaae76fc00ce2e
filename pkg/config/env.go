package config

const (
	EnvPrefix = "CARTLIMITS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "CARTLIMITS_APP_ENV"
	EnvPort     = "CARTLIMITS_APP_PORT"
	EnvLogLevel = "CARTLIMITS_LOG_LEVEL"

	EnvShopifyShopDomain  = "CARTLIMITS_SHOPIFY_SHOP_DOMAIN"
	EnvShopifyAccessToken = "CARTLIMITS_SHOPIFY_ADMIN_ACCESS_TOKEN"
	EnvShopifyAPIKey      = "CARTLIMITS_SHOPIFY_API_KEY"
	EnvShopifyAPISecret   = "CARTLIMITS_SHOPIFY_API_SECRET"
	EnvShopifyAPIVersion  = "CARTLIMITS_SHOPIFY_API_VERSION"

	EnvDBDSN  = "CARTLIMITS_DB_DSN"
	EnvDBHost = "CARTLIMITS_DB_HOST"
	EnvDBUser = "CARTLIMITS_DB_USER"
	EnvDBName = "CARTLIMITS_DB_NAME"

	EnvRedisURL = "CARTLIMITS_REDIS_URL"

	EnvBulkBatchSize = "CARTLIMITS_BULK_BATCH_SIZE"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
