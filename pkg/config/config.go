package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	License   LicenseConfig
	Sweep     SweepConfig
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
	Env          string `envconfig:"VPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"VPOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VPOS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VPOS_DB_DSN"`
	Driver string `envconfig:"VPOS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"VPOS_DB_HOST"`
	Port     int    `envconfig:"VPOS_DB_PORT" default:"5432"`
	User     string `envconfig:"VPOS_DB_USER"`
	Password string `envconfig:"VPOS_DB_PASSWORD"`
	Name     string `envconfig:"VPOS_DB_NAME"`
	SSLMode  string `envconfig:"VPOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VPOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VPOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"VPOS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VPOS_REDIS_ADDR"`
	Password     string        `envconfig:"VPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"VPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"VPOS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"VPOS_JWT_ISSUER" required:"true"`
	AdminExpirationMinutes int    `envconfig:"VPOS_JWT_ADMIN_EXPIRATION_MINUTES" default:"480"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VPOS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VPOS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VPOS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VPOS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VPOS_ARGON_KEY_LEN" default:"32"`
}

// RateLimitConfig carries the admission-control tiers. Defaults mirror the
// documented per-tier contract.
type RateLimitConfig struct {
	GeneralWindow time.Duration `envconfig:"VPOS_RATE_LIMIT_GENERAL_WINDOW" default:"1h"`
	GeneralLimit  int           `envconfig:"VPOS_RATE_LIMIT_GENERAL_LIMIT" default:"1000"`

	ActivationWindow time.Duration `envconfig:"VPOS_RATE_LIMIT_ACTIVATION_WINDOW" default:"1h"`
	ActivationLimit  int           `envconfig:"VPOS_RATE_LIMIT_ACTIVATION_LIMIT" default:"20"`

	ValidationWindow time.Duration `envconfig:"VPOS_RATE_LIMIT_VALIDATION_WINDOW" default:"1h"`
	ValidationLimit  int           `envconfig:"VPOS_RATE_LIMIT_VALIDATION_LIMIT" default:"1000"`

	AdminWindow time.Duration `envconfig:"VPOS_RATE_LIMIT_ADMIN_WINDOW" default:"1h"`
	AdminLimit  int           `envconfig:"VPOS_RATE_LIMIT_ADMIN_LIMIT" default:"2000"`

	AdminLoginWindow time.Duration `envconfig:"VPOS_RATE_LIMIT_ADMIN_LOGIN_WINDOW" default:"15m"`
	AdminLoginLimit  int           `envconfig:"VPOS_RATE_LIMIT_ADMIN_LOGIN_LIMIT" default:"20"`

	GenerationWindow time.Duration `envconfig:"VPOS_RATE_LIMIT_GENERATION_WINDOW" default:"1h"`
	GenerationLimit  int           `envconfig:"VPOS_RATE_LIMIT_GENERATION_LIMIT" default:"200"`
}

type LicenseConfig struct {
	GracePeriodDays  int `envconfig:"VPOS_LICENSE_GRACE_PERIOD_DAYS" default:"7"`
	FreeTrialDays    int `envconfig:"VPOS_LICENSE_FREE_TRIAL_DAYS" default:"30"`
	DefaultUserLimit int `envconfig:"VPOS_LICENSE_DEFAULT_USER_LIMIT" default:"5"`
}

type SweepConfig struct {
	Interval time.Duration `envconfig:"VPOS_SWEEP_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"VPOS_SWEEP_LOCK_TTL" default:"30m"`
}
