package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable this service reads.
	EnvPrefix = "DISHPATCH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "DISHPATCH_APP_ENV"
	EnvAppPort  = "DISHPATCH_APP_PORT"
	EnvRedisURL = "DISHPATCH_REDIS_URL"

	EnvDBDSN  = "DISHPATCH_DB_DSN"
	EnvDBHost = "DISHPATCH_DB_HOST"
	EnvDBUser = "DISHPATCH_DB_USER"
	EnvDBName = "DISHPATCH_DB_NAME"

	EnvGCPProjectID = "DISHPATCH_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "DISHPATCH_PUBSUB_ORDERS_TOPIC"
	EnvPubSubWalletTopic = "DISHPATCH_PUBSUB_WALLET_TOPIC"
	EnvPubSubDomainSub   = "DISHPATCH_PUBSUB_DOMAIN_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"DISHPATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"DISHPATCH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DISHPATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DISHPATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DISHPATCH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISHPATCH_DB_DSN"`
	Driver string `envconfig:"DISHPATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DISHPATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"DISHPATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DISHPATCH_DB_USER"`
	LegacyPassword string `envconfig:"DISHPATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"DISHPATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"DISHPATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DISHPATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISHPATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISHPATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISHPATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISHPATCH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DISHPATCH_REDIS_ADDR"`
	Password     string        `envconfig:"DISHPATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISHPATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISHPATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISHPATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISHPATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISHPATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISHPATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DISHPATCH_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DISHPATCH_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"DISHPATCH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DISHPATCH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"DISHPATCH_PUBSUB_ORDERS_TOPIC" required:"true"`
	WalletTopic        string `envconfig:"DISHPATCH_PUBSUB_WALLET_TOPIC" required:"true"`
	NotificationTopic  string `envconfig:"DISHPATCH_PUBSUB_NOTIFICATION_TOPIC" default:"dp-notification-events"`
	DomainSubscription string `envconfig:"DISHPATCH_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DISHPATCH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DISHPATCH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DISHPATCH_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"DISHPATCH_OUTBOX_RETENTION_DAYS" default:"14"`
}

type RateLimitConfig struct {
	WriteWindow time.Duration `envconfig:"DISHPATCH_RATE_LIMIT_WRITE_WINDOW" default:"1m"`
	WriteLimit  int           `envconfig:"DISHPATCH_RATE_LIMIT_WRITE_LIMIT" default:"120"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"DISHPATCH_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"DISHPATCH_CRON_LOCK_KEY" default:"cron:leader"`
	LockTTL  time.Duration `envconfig:"DISHPATCH_CRON_LOCK_TTL" default:"55m"`
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
