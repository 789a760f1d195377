package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const (
	EnvPrefix            = "CAREGIVER"
	IntegrationEnvPrefix = "ECHOCARE"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Tokens    TokenConfig     `mapstructure:"tokens"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`

	// Integrations is read from ECHOCARE_* variables only.
	Integrations IntegrationConfig `mapstructure:"-"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

func (s ServerConfig) Production() bool {
	return s.Environment == "production"
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// RedisConfig configures the cross-instance event relay. An empty URL
// disables it.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	Expiry time.Duration `mapstructure:"expiry"`
}

// TokenConfig controls purging of expired one-time codes.
type TokenConfig struct {
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// SMTPConfig configures outgoing mail. An empty host logs codes instead.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type StorageConfig struct {
	Root           string `mapstructure:"root"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	PublicPath     string `mapstructure:"public_path"`
	MaxAvatarBytes int64  `mapstructure:"max_avatar_bytes"`
}

type DashboardConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	DefaultTimezone string        `mapstructure:"default_timezone"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type CORSConfig struct {
	Origins          []string `mapstructure:"origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// IntegrationConfig holds the external endpoints. Unset URLs leave the
// matching feature unconfigured.
type IntegrationConfig struct {
	WebhookURL  string        `envconfig:"WEBHOOK_URL"`
	QAURL       string        `envconfig:"QA_URL"`
	UploadURL   string        `envconfig:"UPLOAD_URL"`
	SummaryURL  string        `envconfig:"SUMMARY_URL"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", 50<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "caregiver")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "caregiver-api")
	v.SetDefault("jwt.expiry", 24*time.Hour)

	v.SetDefault("tokens.retention", 24*time.Hour)
	v.SetDefault("tokens.cleanup_interval", time.Hour)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "EchoCare <no-reply@echocare.local>")

	v.SetDefault("storage.root", "data/storage")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/storage")
	v.SetDefault("storage.public_path", "/storage")
	v.SetDefault("storage.max_avatar_bytes", 5<<20)

	v.SetDefault("dashboard.idle_ttl", 30*time.Minute)
	v.SetDefault("dashboard.stale_after", 5*time.Minute)
	v.SetDefault("dashboard.refresh_interval", time.Minute)
	v.SetDefault("dashboard.default_timezone", "")

	v.SetDefault("ratelimit.rps", 20.0)
	v.SetDefault("ratelimit.burst", 40)

	v.SetDefault("cors.origins", []string{"*"})
	v.SetDefault("cors.allow_credentials", false)
}

// Load reads config.yaml (optional) and the environment. path overrides
// the search for config.yaml when set.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/caregiver-api")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := envconfig.Process(IntegrationEnvPrefix, &cfg.Integrations); err != nil {
		return nil, fmt.Errorf("failed to read integration settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if len(c.JWT.Secret) < 16 {
		return fmt.Errorf("jwt.secret must be at least 16 characters")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	return nil
}
