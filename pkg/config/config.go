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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Billing       BillingConfig
	Cron          CronConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"OPSDESK_APP_ENV" required:"true"`
	Port         string   `envconfig:"OPSDESK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"OPSDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"OPSDESK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"OPSDESK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"OPSDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"OPSDESK_DB_DSN"`
	Driver string `envconfig:"OPSDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OPSDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"OPSDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OPSDESK_DB_USER"`
	LegacyPassword string `envconfig:"OPSDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"OPSDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"OPSDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OPSDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OPSDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OPSDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OPSDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OPSDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OPSDESK_REDIS_ADDR"`
	Password     string        `envconfig:"OPSDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"OPSDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OPSDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OPSDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OPSDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OPSDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OPSDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"OPSDESK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"OPSDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"OPSDESK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"OPSDESK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OPSDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OPSDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"OPSDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"OPSDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OPSDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"OPSDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"OPSDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"OPSDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"OPSDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"OPSDESK_AUTO_MIGRATE" default:"false"`
}

// BillingConfig tunes invoice generation behavior.
type BillingConfig struct {
	DefaultCurrency     string `envconfig:"OPSDESK_BILLING_DEFAULT_CURRENCY" default:"USD"`
	InvoiceNumberPrefix string `envconfig:"OPSDESK_BILLING_INVOICE_PREFIX" default:"INV"`
	PaymentNumberPrefix string `envconfig:"OPSDESK_BILLING_PAYMENT_PREFIX" default:"PAY"`
	PaymentTermDays     int    `envconfig:"OPSDESK_BILLING_PAYMENT_TERM_DAYS" default:"14"`
	OverdueGraceDays    int    `envconfig:"OPSDESK_BILLING_OVERDUE_GRACE_DAYS" default:"0"`
	IdempotencyTTLHours int    `envconfig:"OPSDESK_BILLING_IDEMPOTENCY_TTL_HOURS" default:"720"`
}

// IdempotencyTTL returns the retention window for idempotency keys.
func (b BillingConfig) IdempotencyTTL() time.Duration {
	if b.IdempotencyTTLHours <= 0 {
		return 0
	}
	return time.Duration(b.IdempotencyTTLHours) * time.Hour
}

type CronConfig struct {
	TickInterval    time.Duration `envconfig:"OPSDESK_CRON_TICK_INTERVAL" default:"1m"`
	LockTTL         time.Duration `envconfig:"OPSDESK_CRON_LOCK_TTL" default:"5m"`
	RecurringWindow time.Duration `envconfig:"OPSDESK_CRON_RECURRING_WINDOW" default:"24h"`
	MetricsPort     string        `envconfig:"OPSDESK_CRON_METRICS_PORT" default:"9100"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"OPSDESK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"OPSDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"OPSDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BillingTopic        string `envconfig:"OPSDESK_PUBSUB_BILLING_TOPIC" default:"opsdesk-billing-events"`
	BillingSubscription string `envconfig:"OPSDESK_PUBSUB_BILLING_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize           int    `envconfig:"OPSDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS      int    `envconfig:"OPSDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts         int    `envconfig:"OPSDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTLHours int    `envconfig:"OPSDESK_OUTBOX_IDEMPOTENCY_TTL_HOURS" default:"24"`
	MetricsPort         string `envconfig:"OPSDESK_OUTBOX_METRICS_PORT" default:"9101"`
}

// IdempotencyTTL returns how long published event IDs are remembered for dedup.
func (o OutboxConfig) IdempotencyTTL() time.Duration {
	if o.IdempotencyTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(o.IdempotencyTTLHours) * time.Hour
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
