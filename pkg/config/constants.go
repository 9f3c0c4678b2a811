package config

// EnvPrefix is the envconfig prefix applied to every variable.
const EnvPrefix = "opsdesk"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "OPSDESK_APP_ENV"
	EnvPort                   = "OPSDESK_APP_PORT"
	EnvDBDSN                  = "OPSDESK_DB_DSN"
	EnvDBHost                 = "OPSDESK_DB_HOST"
	EnvDBUser                 = "OPSDESK_DB_USER"
	EnvDBName                 = "OPSDESK_DB_NAME"
	EnvRedisURL               = "OPSDESK_REDIS_URL"
	EnvJWTSecret              = "OPSDESK_JWT_SECRET"
	EnvJWTIssuer              = "OPSDESK_JWT_ISSUER"
	EnvJWTExpMins             = "OPSDESK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "OPSDESK_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "OPSDESK_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
