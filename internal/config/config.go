package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	cfgName   = "application"
	envPrefix = "DATA_MANAGER"
)

// Config is resolved once at start-up and passed to constructors; nothing
// reads configuration after that.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Orders   Orders   `mapstructure:"orders"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Redis    Redis    `mapstructure:"redis"`
	Auth     Auth     `mapstructure:"auth"`
	Log      Log      `mapstructure:"log"`
}

type Server struct {
	Port        int       `mapstructure:"port"`
	CORSOrigins []string  `mapstructure:"cors_origins"`
	RateLimit   RateLimit `mapstructure:"rate_limit"`
}

// RateLimit configures the per-client limiter. RPS <= 0 disables it.
type RateLimit struct {
	RPS       float64       `mapstructure:"rps"`
	Burst     int           `mapstructure:"burst"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
}

type Orders struct {
	ListLimit   int    `mapstructure:"list_limit"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	Timezone    string `mapstructure:"timezone"`
}

// Location returns the timezone used to date new orders.
func (o Orders) Location() (*time.Location, error) {
	if o.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(o.Timezone)
}

type Auth struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// Apply sets the global zerolog level.
func (l Log) Apply() error {
	if l.Level == "" {
		return nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil {
		return fmt.Errorf("log level %q: %w", l.Level, err)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit.rps", 0)
	v.SetDefault("server.rate_limit.burst", 3)
	v.SetDefault("server.rate_limit.expires_in", 3*time.Minute)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("database.secret_file", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("database.retry_delay", 3*time.Second)

	v.SetDefault("orders.list_limit", 100)
	v.SetDefault("orders.max_attempts", 3)
	v.SetDefault("orders.timezone", "UTC")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "order-topic")
	v.SetDefault("kafka.group_id", "data-manager-watch")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.idempotency_ttl", 24*time.Hour)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("log.level", "info")
}

// Load reads application.yml (from '.' or './config' unless file is given),
// a .env file if present, and DATA_MANAGER_* environment variables, in
// increasing order of precedence.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(cfgName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Database.SecretFile != "" {
		if err := cfg.Database.loadSecret(cfg.Database.SecretFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Orders.ListLimit <= 0 {
		return fmt.Errorf("orders.list_limit must be positive")
	}
	if c.Orders.MaxAttempts <= 0 {
		return fmt.Errorf("orders.max_attempts must be positive")
	}
	if _, err := c.Orders.Location(); err != nil {
		return fmt.Errorf("orders.timezone: %w", err)
	}
	return nil
}
