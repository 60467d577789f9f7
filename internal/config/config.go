package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/tendant/simple-tenant/pkg/repository"
)

// Config holds application configuration.
type Config struct {
	Environment string `env:"ENVIRONMENT_NAME"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerAddr string `env:"SERVER_ADDR" envDefault:"0.0.0.0"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`

	DB DatabaseConfig `envPrefix:"DB_"`

	// JWT
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"simple-tenant"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`

	// Tenancy
	BaseDomain     string `env:"TENANT_BASE_DOMAIN"`
	SelectorHeader string `env:"TENANT_SELECTOR_HEADER" envDefault:"X-Tenant-ID"`
	// UnscopedDebug only takes effect in binaries built with -tags tenantdebug.
	UnscopedDebug bool `env:"TENANT_UNSCOPED_DEBUG"`

	// HTTP hardening
	MaxBodyBytes int64 `env:"MAX_REQUEST_BODY_BYTES" envDefault:"1048576"`
	HSTSMaxAge   int   `env:"HSTS_MAX_AGE"`

	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// DatabaseConfig selects the store. DB_DRIVER=sqlite3 uses DB_PATH instead
// of the network fields.
type DatabaseConfig struct {
	Driver   string `env:"DRIVER" envDefault:"postgres"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"25432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Name     string `env:"NAME" envDefault:"simple_tenant"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	Path     string `env:"PATH" envDefault:"simple-tenant.db"`
}

// RateLimitConfig bounds login attempts per client IP.
type RateLimitConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"true"`
	LoginRequests int           `env:"LOGIN_REQUESTS" envDefault:"10"`
	LoginWindow   time.Duration `env:"LOGIN_WINDOW" envDefault:"1m"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDatabase reads only the database settings, for tools that never
// serve HTTP.
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	db, err := env.ParseAsWithOptions[DatabaseConfig](env.Options{Prefix: "DB_"})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := db.Validate(); err != nil {
		return nil, err
	}
	return &db, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if err := c.DB.Validate(); err != nil {
		return err
	}
	if c.RateLimit.Enabled && (c.RateLimit.LoginRequests <= 0 || c.RateLimit.LoginWindow <= 0) {
		return errors.New("RATE_LIMIT_LOGIN_REQUESTS and RATE_LIMIT_LOGIN_WINDOW must be positive")
	}
	return nil
}

// Validate rejects unsupported drivers.
func (d DatabaseConfig) Validate() error {
	switch d.Driver {
	case repository.DriverPostgres, repository.DriverSQLite:
		return nil
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", d.Driver)
	}
}

// Repository returns the repository connection settings.
func (d DatabaseConfig) Repository() repository.Config {
	return repository.Config{
		Driver:   d.Driver,
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		DBName:   d.Name,
		SSLMode:  d.SSLMode,
		Path:     d.Path,
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddr, c.ServerPort)
}
