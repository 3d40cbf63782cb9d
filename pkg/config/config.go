package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Paystack     PaystackConfig
	Payout       PayoutConfig
	Webhook      WebhookConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	CORS         CORSConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payout.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cron.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SPLITPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"SPLITPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SPLITPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SPLITPAY_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SPLITPAY_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SPLITPAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SPLITPAY_DB_DSN"`
	Driver string `envconfig:"SPLITPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SPLITPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"SPLITPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SPLITPAY_DB_USER"`
	LegacyPassword string `envconfig:"SPLITPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"SPLITPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"SPLITPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPLITPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPLITPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPLITPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPLITPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"SPLITPAY_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPLITPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SPLITPAY_REDIS_ADDR"`
	Password     string        `envconfig:"SPLITPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPLITPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPLITPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPLITPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPLITPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPLITPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPLITPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SPLITPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SPLITPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SPLITPAY_JWT_EXPIRATION_MINUTES" default:"60"`
}

// MetricsConfig is the listener background workers expose /metrics on. Empty disables it.
type MetricsConfig struct {
	Addr string `envconfig:"SPLITPAY_METRICS_ADDR"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SPLITPAY_AUTO_MIGRATE" default:"false"`
}

type PaystackConfig struct {
	SecretKey  string        `envconfig:"SPLITPAY_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL    string        `envconfig:"SPLITPAY_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	Timeout    time.Duration `envconfig:"SPLITPAY_PAYSTACK_TIMEOUT" default:"15s"`
	MaxRetries uint64        `envconfig:"SPLITPAY_PAYSTACK_MAX_RETRIES" default:"3"`
	RetryBase  time.Duration `envconfig:"SPLITPAY_PAYSTACK_RETRY_BASE" default:"200ms"`
	RetryCap   time.Duration `envconfig:"SPLITPAY_PAYSTACK_RETRY_CAP" default:"2s"`
}

// PayoutConfig drives the fee calculator and the settle fan-out.
type PayoutConfig struct {
	FeeRate            decimal.Decimal `envconfig:"SPLITPAY_PAYOUT_FEE_RATE" default:"0.05"`
	SettleConcurrency  int             `envconfig:"SPLITPAY_PAYOUT_SETTLE_CONCURRENCY" default:"4"`
	ReconcileLookback  time.Duration   `envconfig:"SPLITPAY_PAYOUT_RECONCILE_LOOKBACK" default:"720h"`
	ReconcilePageLimit int             `envconfig:"SPLITPAY_PAYOUT_RECONCILE_PAGE_LIMIT" default:"5"`
}

func (p PayoutConfig) validate() error {
	if p.FeeRate.IsNegative() || p.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be within [0, 1), got %s", EnvPayoutFeeRate, p.FeeRate.String())
	}
	if p.SettleConcurrency < 0 {
		return fmt.Errorf("%s must not be negative", EnvPayoutSettleConcurrency)
	}
	return nil
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SPLITPAY_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"SPLITPAY_CRON_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"SPLITPAY_CRON_LOCK_TTL" default:"55m"`
	JobTimeout time.Duration `envconfig:"SPLITPAY_CRON_JOB_TIMEOUT" default:"50m"`
}

// The lock must outlive a job, otherwise a second worker can start the same cycle.
func (c CronConfig) validate() error {
	if c.JobTimeout > 0 && c.LockTTL > 0 && c.JobTimeout >= c.LockTTL {
		return fmt.Errorf("%s (%s) must be shorter than %s (%s)", EnvCronJobTimeout, c.JobTimeout, EnvCronLockTTL, c.LockTTL)
	}
	return nil
}

type GCPConfig struct {
	ProjectID string `envconfig:"SPLITPAY_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PayoutsTopic string `envconfig:"SPLITPAY_PUBSUB_PAYOUTS_TOPIC" default:"splitpay-payout-events"`
	// AutoCreateTopic provisions a missing topic instead of failing; meant for the emulator.
	AutoCreateTopic bool `envconfig:"SPLITPAY_PUBSUB_AUTO_CREATE_TOPIC" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SPLITPAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SPLITPAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SPLITPAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SPLITPAY_CORS_ALLOWED_ORIGINS"`
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
