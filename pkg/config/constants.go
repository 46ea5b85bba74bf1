package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "CANTINA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "CANTINA_APP_ENV"
	EnvPort       = "CANTINA_APP_PORT"
	EnvDBDSN      = "CANTINA_DB_DSN"
	EnvDBHost     = "CANTINA_DB_HOST"
	EnvDBUser     = "CANTINA_DB_USER"
	EnvDBName     = "CANTINA_DB_NAME"
	EnvRedisURL   = "CANTINA_REDIS_URL"
	EnvJWTSecret  = "CANTINA_JWT_SECRET"
	EnvJWTIssuer  = "CANTINA_JWT_ISSUER"
	EnvJWTExpMins = "CANTINA_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
