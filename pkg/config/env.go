package config

const EnvPrefix = "SHOPFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "SHOPFRONT_APP_ENV"
	EnvPort         = "SHOPFRONT_APP_PORT"
	EnvLogLevel     = "SHOPFRONT_LOG_LEVEL"
	EnvLogFormat    = "SHOPFRONT_LOG_FORMAT"
	EnvLogWarnStack = "SHOPFRONT_LOG_WARN_STACK"

	EnvDBDSN      = "SHOPFRONT_DB_DSN"
	EnvDBHost     = "SHOPFRONT_DB_HOST"
	EnvDBPort     = "SHOPFRONT_DB_PORT"
	EnvDBUser     = "SHOPFRONT_DB_USER"
	EnvDBPassword = "SHOPFRONT_DB_PASSWORD"
	EnvDBName     = "SHOPFRONT_DB_NAME"
	EnvDBSSLMode  = "SHOPFRONT_DB_SSLMODE"

	EnvRedisURL = "SHOPFRONT_REDIS_URL"

	EnvJWTSecret  = "SHOPFRONT_JWT_SECRET"
	EnvJWTIssuer  = "SHOPFRONT_JWT_ISSUER"
	EnvJWTExpMins = "SHOPFRONT_JWT_EXPIRATION_MINUTES"

	EnvStripeSecretKey      = "SHOPFRONT_STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret  = "SHOPFRONT_STRIPE_WEBHOOK_SECRET"
	EnvStripePublishableKey = "SHOPFRONT_STRIPE_PUBLISHABLE_KEY"
	EnvStripeCurrency       = "SHOPFRONT_STRIPE_CURRENCY"
	EnvStripeEnv            = "SHOPFRONT_STRIPE_ENV"

	EnvCheckoutDeliveryOptions = "SHOPFRONT_CHECKOUT_DELIVERY_OPTIONS"
	EnvCheckoutTaxBasisPoints  = "SHOPFRONT_CHECKOUT_TAX_BASIS_POINTS"

	EnvInventoryChannel = "SHOPFRONT_INVENTORY_CHANNEL"

	EnvGCPProjectID       = "SHOPFRONT_GCP_PROJECT_ID"
	EnvPubSubDomainTopic  = "SHOPFRONT_PUBSUB_DOMAIN_TOPIC"
	EnvOutboxBatchSize    = "SHOPFRONT_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollInterval = "SHOPFRONT_OUTBOX_PUBLISH_POLL_MS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
