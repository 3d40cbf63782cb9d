package config

// EnvPrefix is empty because every struct tag already spells the full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "SPLITPAY_APP_ENV"
	EnvPort   = "SPLITPAY_APP_PORT"

	EnvDBDSN  = "SPLITPAY_DB_DSN"
	EnvDBHost = "SPLITPAY_DB_HOST"
	EnvDBUser = "SPLITPAY_DB_USER"
	EnvDBName = "SPLITPAY_DB_NAME"

	EnvRedisURL = "SPLITPAY_REDIS_URL"

	EnvJWTSecret = "SPLITPAY_JWT_SECRET"
	EnvJWTIssuer = "SPLITPAY_JWT_ISSUER"

	EnvPaystackSecretKey = "SPLITPAY_PAYSTACK_SECRET_KEY"

	EnvPayoutFeeRate           = "SPLITPAY_PAYOUT_FEE_RATE"
	EnvPayoutSettleConcurrency = "SPLITPAY_PAYOUT_SETTLE_CONCURRENCY"

	EnvCronLockTTL    = "SPLITPAY_CRON_LOCK_TTL"
	EnvCronJobTimeout = "SPLITPAY_CRON_JOB_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
