package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	Host        string   `mapstructure:"host"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CatalogConfig holds upstream catalog API configuration
type CatalogConfig struct {
	BaseURL                 string   `mapstructure:"base_url"`
	UserAgent               string   `mapstructure:"user_agent"`
	Timeout                 int      `mapstructure:"timeout"`
	MaxRetries              int      `mapstructure:"max_retries"`
	CircuitBreakerMinutes   int      `mapstructure:"circuit_breaker_minutes"`
	CircuitBreakerThreshold int      `mapstructure:"circuit_breaker_threshold"` // consecutive 403/429 answers, 0 disables the breaker
	Proxies                 []string `mapstructure:"proxies"`
	CheckProxies            bool     `mapstructure:"check_proxies"` // test each proxy at startup and drop dead ones
}

func (c CatalogConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c CatalogConfig) CircuitBreakerCooldown() time.Duration {
	return time.Duration(c.CircuitBreakerMinutes) * time.Minute
}

// SyncConfig holds synchronization pipeline configuration
type SyncConfig struct {
	OnStartup            bool `mapstructure:"on_startup"`
	MaxConcurrency       int  `mapstructure:"max_concurrency"`
	MinDelayMs           int  `mapstructure:"min_delay_ms"`
	MaxDelayMs           int  `mapstructure:"max_delay_ms"`
	MaxRequestsPerSecond int  `mapstructure:"max_requests_per_second"`
}

func (c SyncConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMs) * time.Millisecond
}

func (c SyncConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

// DatabaseConfig selects and configures the catalog store backend
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // sqlite or postgres
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

func (c DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig selects where carts live
type SessionConfig struct {
	Backend    string `mapstructure:"backend"` // memory or redis
	CookieName string `mapstructure:"cookie_name"`
	TTLHours   int    `mapstructure:"ttl_hours"`
}

func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from an optional config.yaml with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported session backend %q", c.Session.Backend)
	}
	if c.Sync.MaxConcurrency < 1 {
		return fmt.Errorf("sync.max_concurrency must be at least 1")
	}
	if c.Sync.MinDelayMs < 0 || c.Sync.MaxDelayMs < c.Sync.MinDelayMs {
		return fmt.Errorf("sync delay range [%d, %d] ms is invalid", c.Sync.MinDelayMs, c.Sync.MaxDelayMs)
	}
	if c.Catalog.CircuitBreakerThreshold < 0 || c.Catalog.CircuitBreakerMinutes < 0 {
		return fmt.Errorf("catalog circuit breaker settings must not be negative")
	}
	if c.Catalog.Timeout < 1 {
		return fmt.Errorf("catalog.timeout must be at least 1 second")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.cors_origins", []string{"*"})

	viper.SetDefault("catalog.base_url", "https://tienda.mercadona.es/api")
	viper.SetDefault("catalog.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	viper.SetDefault("catalog.timeout", 20)
	viper.SetDefault("catalog.max_retries", 1)
	viper.SetDefault("catalog.circuit_breaker_minutes", 30)
	viper.SetDefault("catalog.circuit_breaker_threshold", 5)
	viper.SetDefault("catalog.proxies", []string{})
	viper.SetDefault("catalog.check_proxies", true)

	viper.SetDefault("sync.on_startup", true)
	viper.SetDefault("sync.max_concurrency", 5)
	viper.SetDefault("sync.min_delay_ms", 500)
	viper.SetDefault("sync.max_delay_ms", 1500)
	viper.SetDefault("sync.max_requests_per_second", 0)

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "./storefront.db")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "storefront")
	viper.SetDefault("database.user", "storefront")
	viper.SetDefault("database.password", "storefront")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.database", 0)

	viper.SetDefault("session.backend", "memory")
	viper.SetDefault("session.cookie_name", "storefront_session")
	viper.SetDefault("session.ttl_hours", 72)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}
