package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOCKWATCH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Environment variable names referenced outside of struct tags.
const (
	EnvAppEnv            = "STOCKWATCH_APP_ENV"
	EnvDBDSN             = "STOCKWATCH_DB_DSN"
	EnvDBHost            = "STOCKWATCH_DB_HOST"
	EnvDBUser            = "STOCKWATCH_DB_USER"
	EnvDBName            = "STOCKWATCH_DB_NAME"
	EnvRedisURL          = "STOCKWATCH_REDIS_URL"
	EnvSchedulerTimezone = "STOCKWATCH_SCHEDULER_TIMEZONE"
	EnvLowStockSchedule  = "STOCKWATCH_LOW_STOCK_SCHEDULE"
	EnvOverdueSchedule   = "STOCKWATCH_OVERDUE_SCHEDULE"
	EnvRetentionSchedule = "STOCKWATCH_RETENTION_SCHEDULE"
	EnvRetentionDays     = "STOCKWATCH_NOTIFICATION_RETENTION_DAYS"
	EnvMetricsAddr       = "STOCKWATCH_METRICS_ADDR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Scheduler    SchedulerConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKWATCH_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"STOCKWATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKWATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKWATCH_SERVICE_KIND" default:"cron-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKWATCH_DB_DSN"`
	Driver string `envconfig:"STOCKWATCH_DB_DRIVER" default:"postgres" validate:"oneof=postgres sqlite"`

	LegacyHost     string `envconfig:"STOCKWATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKWATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKWATCH_DB_USER"`
	LegacyPassword string `envconfig:"STOCKWATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKWATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKWATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKWATCH_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOCKWATCH_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKWATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKWATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional for the cron worker: without it jobs only guard
// against overlapping runs inside a single process.
type RedisConfig struct {
	URL          string        `envconfig:"STOCKWATCH_REDIS_URL"`
	Address      string        `envconfig:"STOCKWATCH_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKWATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKWATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKWATCH_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOCKWATCH_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STOCKWATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKWATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKWATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKWATCH_AUTO_MIGRATE" default:"false"`
}

type SchedulerConfig struct {
	Timezone          string `envconfig:"STOCKWATCH_SCHEDULER_TIMEZONE" default:"UTC" validate:"required,timezone"`
	LowStockSchedule  string `envconfig:"STOCKWATCH_LOW_STOCK_SCHEDULE" default:"0 * * * *" validate:"required,cron"`
	OverdueSchedule   string `envconfig:"STOCKWATCH_OVERDUE_SCHEDULE" default:"0 */6 * * *" validate:"required,cron"`
	RetentionSchedule string `envconfig:"STOCKWATCH_RETENTION_SCHEDULE" default:"0 2 * * *" validate:"required,cron"`

	LowStockWindow time.Duration `envconfig:"STOCKWATCH_LOW_STOCK_DEDUP_WINDOW" default:"1h" validate:"gt=0"`
	OverdueWindow  time.Duration `envconfig:"STOCKWATCH_OVERDUE_DEDUP_WINDOW" default:"6h" validate:"gt=0"`
	RetentionDays  int           `envconfig:"STOCKWATCH_NOTIFICATION_RETENTION_DAYS" default:"30" validate:"min=1"`

	RunOnStart      bool          `envconfig:"STOCKWATCH_SCHEDULER_RUN_ON_START" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"STOCKWATCH_SCHEDULER_SHUTDOWN_TIMEOUT" default:"30s"`
	LockTTL         time.Duration `envconfig:"STOCKWATCH_SCHEDULER_LOCK_TTL" default:"6h"`
}

// Location resolves the configured scheduler time zone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading scheduler timezone %q: %w", name, err)
	}
	return loc, nil
}

// RetentionMaxAge converts the configured retention days into a duration.
func (s SchedulerConfig) RetentionMaxAge() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

type MetricsConfig struct {
	Addr string `envconfig:"STOCKWATCH_METRICS_ADDR" default:":9090"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DriverSQLite) {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
