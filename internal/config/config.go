package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const developmentSecret = "wishdraw-development-secret"

// Config holds all configuration for the application
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server struct {
		Port    string `env:"PORT" envDefault:"8080"`
		GinMode string `env:"GIN_MODE" envDefault:"debug"`
	}

	Storage struct {
		Type       string `env:"STORAGE_TYPE" envDefault:"sqlite"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"./data/wishdraw.db"`
	}

	DB struct {
		Host     string `env:"DB_HOST" envDefault:"localhost"`
		Port     string `env:"DB_PORT" envDefault:"5432"`
		User     string `env:"DB_USER" envDefault:"wishdraw"`
		Password string `env:"DB_PASSWORD" envDefault:"wishdraw_password"`
		Name     string `env:"DB_NAME" envDefault:"wishdraw_db"`
		SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

		MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
		ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
		ConnectRetries  int           `env:"DB_CONNECT_RETRIES" envDefault:"3"`
		SlowQuery       time.Duration `env:"DB_SLOW_QUERY" envDefault:"200ms"`
	}

	Auth struct {
		JWTSecret  string        `env:"JWT_SECRET"`
		JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"1h"`
		BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
	}

	Draw struct {
		Mode             string `env:"DRAW_MODE" envDefault:"closed"`
		MaxClaimAttempts int    `env:"DRAW_MAX_CLAIM_ATTEMPTS" envDefault:"5"`
	}

	CORS struct {
		AllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
		AllowMethods string `env:"CORS_ALLOW_METHODS" envDefault:"GET,POST,OPTIONS"`
		AllowHeaders string `env:"CORS_ALLOW_HEADERS" envDefault:"Origin,Content-Length,Content-Type,Authorization"`
	}

	ObjectStorage struct {
		Endpoint  string        `env:"OBJECT_STORAGE_ENDPOINT"`
		AccessKey string        `env:"OBJECT_STORAGE_ACCESS_KEY"`
		SecretKey string        `env:"OBJECT_STORAGE_SECRET_KEY"`
		Bucket    string        `env:"OBJECT_STORAGE_BUCKET" envDefault:"wishdraw-exports"`
		UseSSL    bool          `env:"OBJECT_STORAGE_USE_SSL" envDefault:"false"`
		URLTTL    time.Duration `env:"OBJECT_STORAGE_URL_TTL" envDefault:"15m"`
	}
}

// Load loads configuration from the environment, reading .env first when present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that env tags cannot express and fills development defaults
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Storage.Type) {
	case "postgres", "postgresql", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type))
	}

	switch strings.ToLower(c.Draw.Mode) {
	case "", "closed", "open":
	default:
		errs = append(errs, fmt.Errorf("unsupported DRAW_MODE %q", c.Draw.Mode))
	}

	if c.Draw.MaxClaimAttempts < 1 {
		errs = append(errs, errors.New("DRAW_MAX_CLAIM_ATTEMPTS must be at least 1"))
	}

	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		} else {
			c.Auth.JWTSecret = developmentSecret
		}
	}

	if c.Auth.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV names a production deployment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "production" || env == "prod"
}

// ObjectStorageEnabled reports whether pick exports go to object storage
func (c *Config) ObjectStorageEnabled() bool {
	return c.ObjectStorage.Endpoint != ""
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     c.DB.Host + ":" + c.DB.Port,
		Path:     "/" + c.DB.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.DB.SSLMode),
	}
	return u.String()
}

// AllowOrigins splits CORS_ALLOW_ORIGINS into a list
func (c *Config) AllowOrigins() []string {
	return splitList(c.CORS.AllowOrigins)
}

// AllowMethods splits CORS_ALLOW_METHODS into a list
func (c *Config) AllowMethods() []string {
	return splitList(c.CORS.AllowMethods)
}

// AllowHeaders splits CORS_ALLOW_HEADERS into a list
func (c *Config) AllowHeaders() []string {
	return splitList(c.CORS.AllowHeaders)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
