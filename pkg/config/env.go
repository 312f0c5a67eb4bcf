package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so the
// prefix only matters for fields added without one.
const EnvPrefix = "TRADEPOST"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "TRADEPOST_APP_ENV"
	EnvPort           = "TRADEPOST_APP_PORT"
	EnvLogLevel       = "TRADEPOST_LOG_LEVEL"
	EnvDBDSN          = "TRADEPOST_DB_DSN"
	EnvDBHost         = "TRADEPOST_DB_HOST"
	EnvDBPort         = "TRADEPOST_DB_PORT"
	EnvDBUser         = "TRADEPOST_DB_USER"
	EnvDBPassword     = "TRADEPOST_DB_PASSWORD"
	EnvDBName         = "TRADEPOST_DB_NAME"
	EnvDBSSLMode      = "TRADEPOST_DB_SSLMODE"
	EnvRedisURL       = "TRADEPOST_REDIS_URL"
	EnvQuotesStale    = "TRADEPOST_QUOTES_STALE_AFTER"
	EnvQuotesMaxBatch = "TRADEPOST_QUOTES_MAX_BATCH_SIZE"
	EnvSettingsTTL    = "TRADEPOST_SETTINGS_CACHE_TTL"
	EnvCronInterval   = "TRADEPOST_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
