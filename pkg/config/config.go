package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Inventory    InventoryConfig
	Webhook      WebhookConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SHOPFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SHOPFRONT_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"SHOPFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"SHOPFRONT_DB_DSN"`
	SQLitePath string `envconfig:"SHOPFRONT_DB_SQLITE_PATH" default:"shopfront.db"`

	LegacyHost     string `envconfig:"SHOPFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPFRONT_DB_USER"`
	LegacyPassword string `envconfig:"SHOPFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPFRONT_REDIS_URL"`
	Address      string        `envconfig:"SHOPFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPFRONT_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	SecretKey      string `envconfig:"SHOPFRONT_STRIPE_SECRET_KEY"`
	WebhookSecret  string `envconfig:"SHOPFRONT_STRIPE_WEBHOOK_SECRET"`
	PublishableKey string `envconfig:"SHOPFRONT_STRIPE_PUBLISHABLE_KEY"`
	Currency       string `envconfig:"SHOPFRONT_STRIPE_CURRENCY" default:"idr"`
	Env            string `envconfig:"SHOPFRONT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// CheckoutConfig carries the pricing inputs for order creation.
type CheckoutConfig struct {
	DeliveryOptions map[string]int64 `envconfig:"SHOPFRONT_CHECKOUT_DELIVERY_OPTIONS" default:"regular:15000"`
	TaxBasisPoints  int64            `envconfig:"SHOPFRONT_CHECKOUT_TAX_BASIS_POINTS" default:"0"`
}

func (c CheckoutConfig) validate() error {
	if len(c.DeliveryOptions) == 0 {
		return fmt.Errorf("%s requires at least one option", EnvCheckoutDeliveryOptions)
	}
	for id, price := range c.DeliveryOptions {
		if strings.TrimSpace(id) == "" || price < 0 {
			return fmt.Errorf("%s has an invalid entry %q:%d", EnvCheckoutDeliveryOptions, id, price)
		}
	}
	if c.TaxBasisPoints < 0 {
		return fmt.Errorf("%s must be non-negative", EnvCheckoutTaxBasisPoints)
	}
	return nil
}

type InventoryConfig struct {
	Channel string `envconfig:"SHOPFRONT_INVENTORY_CHANNEL" default:"inventory:update"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SHOPFRONT_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"SHOPFRONT_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"SHOPFRONT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"SHOPFRONT_PUBSUB_DOMAIN_TOPIC" default:"shopfront-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SHOPFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SHOPFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SHOPFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval converts the configured poll delay into a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
