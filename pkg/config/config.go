package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Payments      PaymentsConfig
	Notifications NotificationsConfig
	RateLimit     RateLimitConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"HARVESTLINK_APP_ENV" required:"true"`
	Port         string   `envconfig:"HARVESTLINK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"HARVESTLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"HARVESTLINK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"HARVESTLINK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HARVESTLINK_DB_DSN"`
	Driver string `envconfig:"HARVESTLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HARVESTLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"HARVESTLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HARVESTLINK_DB_USER"`
	LegacyPassword string `envconfig:"HARVESTLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"HARVESTLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"HARVESTLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HARVESTLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HARVESTLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HARVESTLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HARVESTLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HARVESTLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HARVESTLINK_REDIS_ADDR"`
	Password     string        `envconfig:"HARVESTLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"HARVESTLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HARVESTLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HARVESTLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HARVESTLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HARVESTLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HARVESTLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig carries verification settings only; tokens are minted by the auth service.
type JWTConfig struct {
	Secret string `envconfig:"HARVESTLINK_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"HARVESTLINK_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HARVESTLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HARVESTLINK_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"HARVESTLINK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"HARVESTLINK_GCP_PROJECT_ID"`
	CredentialsFile string `envconfig:"HARVESTLINK_GCP_CREDENTIALS_FILE"`
	PubSubEndpoint  string `envconfig:"HARVESTLINK_PUBSUB_ENDPOINT"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"HARVESTLINK_PUBSUB_ORDERS_TOPIC" default:"hl-order-events"`
	NotificationTopic        string `envconfig:"HARVESTLINK_PUBSUB_NOTIFICATION_TOPIC" default:"hl-notification-events"`
	NotificationSubscription string `envconfig:"HARVESTLINK_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"hl-notification-worker"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HARVESTLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HARVESTLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HARVESTLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PaymentsConfig struct {
	GatewayURL     string        `envconfig:"HARVESTLINK_PAYMENTS_GATEWAY_URL"`
	GatewayAPIKey  string        `envconfig:"HARVESTLINK_PAYMENTS_GATEWAY_API_KEY"`
	GatewayTimeout time.Duration `envconfig:"HARVESTLINK_PAYMENTS_GATEWAY_TIMEOUT" default:"10s"`
	CallbackSecret string        `envconfig:"HARVESTLINK_PAYMENTS_CALLBACK_SECRET"`
	Currency       string        `envconfig:"HARVESTLINK_PAYMENTS_CURRENCY" default:"KES"`
}

// RateLimitConfig throttles the payment surfaces per client IP. A zero
// limit disables the policy.
type RateLimitConfig struct {
	PaymentsWindow time.Duration `envconfig:"HARVESTLINK_RATE_LIMIT_PAYMENTS_WINDOW" default:"1m"`
	PaymentsLimit  int           `envconfig:"HARVESTLINK_RATE_LIMIT_PAYMENTS_LIMIT" default:"20"`
	CallbackWindow time.Duration `envconfig:"HARVESTLINK_RATE_LIMIT_CALLBACK_WINDOW" default:"1m"`
	CallbackLimit  int           `envconfig:"HARVESTLINK_RATE_LIMIT_CALLBACK_LIMIT" default:"120"`
}

// CronConfig drives the maintenance worker. Retention values are in days.
type CronConfig struct {
	Interval              time.Duration `envconfig:"HARVESTLINK_CRON_INTERVAL" default:"1h"`
	LockTTL               time.Duration `envconfig:"HARVESTLINK_CRON_LOCK_TTL" default:"55m"`
	OutboxRetentionDays   int           `envconfig:"HARVESTLINK_CRON_OUTBOX_RETENTION_DAYS" default:"14"`
	NotificationRetention int           `envconfig:"HARVESTLINK_CRON_NOTIFICATION_RETENTION_DAYS" default:"90"`
	RatingBatchSize       int           `envconfig:"HARVESTLINK_CRON_RATING_BATCH_SIZE" default:"200"`
}

type NotificationsConfig struct {
	QueueSize int `envconfig:"HARVESTLINK_NOTIFICATIONS_QUEUE_SIZE" default:"256"`
	Workers   int `envconfig:"HARVESTLINK_NOTIFICATIONS_WORKERS" default:"2"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:harvestlink.db?cache=shared"
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
