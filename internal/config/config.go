package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"outfit-db-api/internal/query"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"3000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	MaxBodyBytes    int64         `envconfig:"SERVER_MAX_BODY_BYTES" default:"10485760"` // 10MB
	TrustProxy      bool          `envconfig:"SERVER_TRUST_PROXY" default:"false"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"outfit-db-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// AuthConfig holds the shared secrets accepted on protected routes.
type AuthConfig struct {
	APIKey  string   `envconfig:"API_KEY" default:""`
	APIKeys []string `envconfig:"API_KEYS"` // comma separated, for rotation
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"https://www.roblox.com,https://roblox.com,https://*.roblox.com"`
}

// DatabaseConfig holds outfit database settings.
type DatabaseConfig struct {
	Type string `envconfig:"DB_TYPE" default:"sqlite"` // sqlite, postgres, or mysql
	Path string `envconfig:"DB_PATH" default:"./data/outfits.db"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"0"` // 0 selects the backend default
	Name     string `envconfig:"DB_NAME" default:"outfits"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:""`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	// Pool
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"1m"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Store       string        `envconfig:"RATE_LIMIT_STORE" default:"memory"` // memory or redis
	Window      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`
	MaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"1000"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Keys returns every configured API key, deduplicated, blanks removed.
func (a *AuthConfig) Keys() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, k := range append([]string{a.APIKey}, a.APIKeys...) {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.PortOrDefault(), d.Name, d.SSLMode)
}

// PortOrDefault returns Port, or the standard port for Type when unset.
func (d *DatabaseConfig) PortOrDefault() int {
	if d.Port != 0 {
		return d.Port
	}
	switch d.Type {
	case "mysql":
		return 3306
	default:
		return 5432
	}
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address in host:port format.
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	if _, err := query.DialectFor(c.Database.Type); err != nil {
		return fmt.Errorf("DB_TYPE: %w", err)
	}
	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_STORE %q", c.RateLimit.Store)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("SERVER_MAX_BODY_BYTES must be positive")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
