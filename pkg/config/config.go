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
	Recharge      RechargeConfig
	Lunch         LunchConfig
	Billing       BillingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
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
	Env          string `envconfig:"CANTINA_APP_ENV" required:"true"`
	Port         string `envconfig:"CANTINA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CANTINA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CANTINA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CANTINA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CANTINA_DB_DSN"`
	Driver string `envconfig:"CANTINA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CANTINA_DB_HOST"`
	LegacyPort     int    `envconfig:"CANTINA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CANTINA_DB_USER"`
	LegacyPassword string `envconfig:"CANTINA_DB_PASSWORD"`
	LegacyName     string `envconfig:"CANTINA_DB_NAME"`
	LegacySSLMode  string `envconfig:"CANTINA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CANTINA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CANTINA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CANTINA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CANTINA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CANTINA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CANTINA_REDIS_ADDR"`
	Password     string        `envconfig:"CANTINA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CANTINA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CANTINA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CANTINA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CANTINA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CANTINA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CANTINA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CANTINA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CANTINA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CANTINA_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CANTINA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CANTINA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CANTINA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CANTINA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CANTINA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"CANTINA_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"CANTINA_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"CANTINA_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CANTINA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CANTINA_AUTO_MIGRATE" default:"false"`
}

// RechargeConfig governs the voucher approval workflow.
type RechargeConfig struct {
	VoucherTTL time.Duration `envconfig:"CANTINA_RECHARGE_VOUCHER_TTL" default:"48h"`
}

// LunchConfig carries system-wide fallbacks; per-school values live in the
// lunch_configurations table and win when present.
type LunchConfig struct {
	DefaultTimezone           string `envconfig:"CANTINA_LUNCH_DEFAULT_TIMEZONE" default:"America/Lima"`
	DefaultModificationCutoff string `envconfig:"CANTINA_LUNCH_MODIFICATION_CUTOFF" default:"09:00"`
	DefaultOrderDeadline      string `envconfig:"CANTINA_LUNCH_ORDER_DEADLINE" default:"08:30"`
	DefaultCancelDeadline     string `envconfig:"CANTINA_LUNCH_CANCEL_DEADLINE" default:"08:30"`
}

type BillingConfig struct {
	DefaultCycle string `envconfig:"CANTINA_BILLING_DEFAULT_CYCLE" default:"monthly"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CANTINA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CANTINA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CANTINA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"CANTINA_PUBSUB_NOTIFICATION_TOPIC" default:"cantina-notification-events"`
	LedgerTopic              string `envconfig:"CANTINA_PUBSUB_LEDGER_TOPIC" default:"cantina-ledger-events"`
	BillingTopic             string `envconfig:"CANTINA_PUBSUB_BILLING_TOPIC" default:"cantina-billing-events"`
	NotificationSubscription string `envconfig:"CANTINA_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CANTINA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CANTINA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CANTINA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"CANTINA_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CANTINA_CRON_INTERVAL" default:"1h"`
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
