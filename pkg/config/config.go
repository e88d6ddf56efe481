package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable read by Load.
	EnvPrefix = "PEAKKART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PEAKKART_DB_DSN"
	EnvDBHost = "PEAKKART_DB_HOST"
	EnvDBUser = "PEAKKART_DB_USER"
	EnvDBName = "PEAKKART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Razorpay     RazorpayConfig
	Booking      BookingConfig
	Password     PasswordConfig
	Auth         AuthConfig
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
	Env          string `envconfig:"PEAKKART_APP_ENV" required:"true"`
	Port         string `envconfig:"PEAKKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PEAKKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PEAKKART_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"PEAKKART_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PEAKKART_DB_DSN"`
	Driver string `envconfig:"PEAKKART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PEAKKART_DB_HOST"`
	LegacyPort     int    `envconfig:"PEAKKART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PEAKKART_DB_USER"`
	LegacyPassword string `envconfig:"PEAKKART_DB_PASSWORD"`
	LegacyName     string `envconfig:"PEAKKART_DB_NAME"`
	LegacySSLMode  string `envconfig:"PEAKKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PEAKKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PEAKKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PEAKKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PEAKKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PEAKKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PEAKKART_REDIS_ADDR"`
	Password     string        `envconfig:"PEAKKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"PEAKKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PEAKKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PEAKKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PEAKKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PEAKKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PEAKKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PEAKKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PEAKKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PEAKKART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PEAKKART_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PEAKKART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"PEAKKART_PUBSUB_NOTIFICATION_TOPIC" default:"pk-notification-events"`
	NotificationSubscription string `envconfig:"PEAKKART_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"PEAKKART_RAZORPAY_KEY_ID"`
	KeySecret string `envconfig:"PEAKKART_RAZORPAY_KEY_SECRET"`
}

type BookingConfig struct {
	DefaultLeadDays int `envconfig:"PEAKKART_BOOKING_DEFAULT_LEAD_DAYS" default:"2"`
}

// PasswordConfig tunes the Argon2id hashing parameters. The zero value is
// clamped to safe defaults by pkg/security.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PEAKKART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PEAKKART_ARGON_TIME" default:"1"`
	ArgonParallelism int `envconfig:"PEAKKART_ARGON_PARALLELISM" default:"4"`
	ArgonSaltLen     int `envconfig:"PEAKKART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PEAKKART_ARGON_KEY_LEN" default:"32"`
}

type AuthConfig struct {
	LoginRateLimit       int           `envconfig:"PEAKKART_AUTH_LOGIN_RATE_LIMIT" default:"10"`
	LoginRateLimitWindow time.Duration `envconfig:"PEAKKART_AUTH_LOGIN_RATE_WINDOW" default:"1m"`
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
