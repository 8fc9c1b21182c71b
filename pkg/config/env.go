package config

const EnvPrefix = "HARVESTLINK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "HARVESTLINK_APP_ENV"
	EnvPort     = "HARVESTLINK_APP_PORT"
	EnvLogLevel = "HARVESTLINK_LOG_LEVEL"

	EnvDBDSN  = "HARVESTLINK_DB_DSN"
	EnvDBHost = "HARVESTLINK_DB_HOST"
	EnvDBUser = "HARVESTLINK_DB_USER"
	EnvDBName = "HARVESTLINK_DB_NAME"

	EnvRedisURL  = "HARVESTLINK_REDIS_URL"
	EnvJWTSecret = "HARVESTLINK_JWT_SECRET"
	EnvJWTIssuer = "HARVESTLINK_JWT_ISSUER"

	EnvUseSQLite = "HARVESTLINK_USE_SQLITE"

	EnvPaymentsGatewayURL     = "HARVESTLINK_PAYMENTS_GATEWAY_URL"
	EnvPaymentsGatewayTimeout = "HARVESTLINK_PAYMENTS_GATEWAY_TIMEOUT"
	EnvPaymentsCallbackSecret = "HARVESTLINK_PAYMENTS_CALLBACK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
