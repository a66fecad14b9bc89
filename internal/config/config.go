package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ServerOptions configures the HTTP listener.
type ServerOptions struct {
	Port               string        `env:"APP_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	MaxUploadSize      int64         `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// DatabaseOptions configures the Postgres connection pool.
type DatabaseOptions struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

const defaultJWTSecret = "change-me-in-production"

// AuthOptions holds the demo credentials and token settings.
type AuthOptions struct {
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	AdminUsername  string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword  string        `env:"ADMIN_PASSWORD" envDefault:"admin123"`
	UserUsername   string        `env:"DEMO_USERNAME" envDefault:"user"`
	UserPassword   string        `env:"DEMO_PASSWORD" envDefault:"user123"`
	LoginRateLimit string        `env:"LOGIN_RATE_LIMIT" envDefault:"10-M"`
}

type LogOptions struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text or json
}

type MetricsOptions struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// Config is the full application configuration.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	Server      ServerOptions
	Database    DatabaseOptions
	Auth        AuthOptions
	Log         LogOptions
	Metrics     MetricsOptions
}

// Load reads the optional .env files and parses the environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Validate checks the settings required to talk to the database.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.Server.MaxUploadSize)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be 'text' or 'json', got '%s'", c.Log.Format)
	}
	if c.IsProduction() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool { return c.Environment == "production" }
