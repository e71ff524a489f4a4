// Package config provides centralized configuration management for Mercury.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
)

// Config is the master configuration struct for the mercuryd daemon.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Detection DetectionConfig `mapstructure:"detection"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString builds a postgres:// connection string from the settings.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// NATSConfig holds NATS message broker configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL        string `mapstructure:"url"`
	Enabled    bool   `mapstructure:"enabled"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

// AuthConfig holds JWT and agent credential configuration
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	RecordSecret   string        `mapstructure:"record_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// DetectionConfig holds detection engine settings
type DetectionConfig struct {
	MaxInputLength   int           `mapstructure:"max_input_length"`
	RateLimitEnabled bool          `mapstructure:"rate_limit_enabled"`
	RateLimitEvents  int           `mapstructure:"rate_limit_events"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window"`
}

// RegistryConfig holds registry behavior settings
type RegistryConfig struct {
	NodeID         string        `mapstructure:"node_id"`
	RecentLimit    int           `mapstructure:"recent_limit"`
	ExampleMaxLen  int           `mapstructure:"example_max_len"`
	DedupEnabled   bool          `mapstructure:"dedup_enabled"`
	DedupTTL       time.Duration `mapstructure:"dedup_ttl"`
	MigrationsPath string        `mapstructure:"migrations_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MustLoad loads the configuration and panics on error.
// This initializes the global singleton.
func MustLoad() {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		globalConfig = cfg
	})
}

// GetConfig returns the global configuration singleton.
// Panics if MustLoad has not been called first.
func GetConfig() *Config {
	if globalConfig == nil {
		panic("config not initialized - call MustLoad first")
	}
	return globalConfig
}

// Load reads configuration from $MERCURY_CONFIG_DIR/config.yaml and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	configDir := os.Getenv("MERCURY_CONFIG_DIR")
	if configDir == "" {
		configDir = "/etc/mercury"
	}

	configPath := fmt.Sprintf("%s/config.yaml", configDir)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Environment variables override with MERCURY_ prefix
	v.SetEnvPrefix("MERCURY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file is optional - defaults and env vars still apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8710)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	// Database defaults
	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "mercury")
	v.SetDefault("database.postgres.user", "mercury")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "disable")

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	// Redis defaults
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "change-this-in-production")
	v.SetDefault("auth.record_secret", "change-this-in-production")
	v.SetDefault("auth.access_token_ttl", "15m")

	// Detection defaults
	v.SetDefault("detection.max_input_length", 1000)
	v.SetDefault("detection.rate_limit_enabled", true)
	v.SetDefault("detection.rate_limit_events", 1000)
	v.SetDefault("detection.rate_limit_window", "1m")

	// Registry defaults
	v.SetDefault("registry.node_id", "")
	v.SetDefault("registry.recent_limit", 15)
	v.SetDefault("registry.example_max_len", 200)
	v.SetDefault("registry.dedup_enabled", true)
	v.SetDefault("registry.dedup_ttl", "10m")
	v.SetDefault("registry.migrations_path", "file://migrations")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
