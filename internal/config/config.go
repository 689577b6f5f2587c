package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"

	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"

	EmailProviderSES    = "ses"
	EmailProviderResend = "resend"
	EmailProviderLog    = "log"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Email    EmailConfig
	Limits   RateLimitConfig
}

type ServerConfig struct {
	Port         string `env:"PORT" envDefault:"8080"`
	Env          string `env:"ENV" envDefault:"development"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	FrontURL     string `env:"FRONT_URL" envDefault:"http://localhost:3000"`
	CookieDomain string `env:"COOKIE_DOMAIN"`
	// TrustedProxies lists CIDR ranges whose forwarding headers are honoured.
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"30s"`
}

func (c ServerConfig) IsProduction() bool { return c.Env == "production" }

// StoreConfig selects the backing adapters for credentials and ephemeral keys.
type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER" envDefault:"postgres"`
	CacheDriver string `env:"CACHE_DRIVER" envDefault:"redis"`
}

type DatabaseConfig struct {
	Host              string        `env:"DB_HOST" envDefault:"localhost"`
	Port              int           `env:"DB_PORT" envDefault:"5432"`
	User              string        `env:"DB_USER" envDefault:"postgres"`
	Password          string        `env:"DB_PASSWORD"`
	Name              string        `env:"DB_NAME" envDefault:"warden"`
	SSLMode           string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	MinConns          int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"5m"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"1m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" envDefault:"warden"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type AuthConfig struct {
	JWTSecret          string        `env:"JWT_SECRET,required"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"168h"`
	// UserRevocationTTL bounds how long a revoke-all marker is kept.
	UserRevocationTTL    time.Duration `env:"USER_REVOCATION_TTL" envDefault:"168h"`
	VerificationTokenTTL time.Duration `env:"VERIFICATION_TOKEN_TTL" envDefault:"24h"`
	PasswordResetTTL     time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h"`
	RevokeRotatedRefresh bool          `env:"AUTH_REVOKE_ROTATED_REFRESH" envDefault:"true"`
	HideLockedAccounts   bool          `env:"AUTH_HIDE_LOCKED_ACCOUNTS" envDefault:"false"`
	CleanupSchedule      string        `env:"TOKEN_CLEANUP_SCHEDULE" envDefault:"0 */15 * * * *"`
	AdminEmail           string        `env:"ADMIN_EMAIL"`
	AdminPassword        string        `env:"ADMIN_PASSWORD"`
}

type EmailConfig struct {
	Provider     string `env:"EMAIL_PROVIDER" envDefault:"log"`
	From         string `env:"EMAIL_FROM" envDefault:"no-reply@localhost"`
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	ResendAPIKey string `env:"RESEND_API_KEY"`
}

// RateLimitConfig sets the per-IP budgets for the anonymous endpoints.
type RateLimitConfig struct {
	AuthRequests    int           `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthWindow      time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"15m"`
	RefreshRequests int           `env:"REFRESH_RATE_LIMIT" envDefault:"10"`
	RefreshWindow   time.Duration `env:"REFRESH_RATE_WINDOW" envDefault:"1h"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFrom builds a Config from an explicit variable set instead of the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validateJWTSecret(c.Auth.JWTSecret, c.Server.Env); err != nil {
		return err
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StoreDriverMongo, StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, mongo, memory (got %q)", c.Store.Driver)
	}

	switch c.Store.CacheDriver {
	case CacheDriverRedis, CacheDriverMemory:
	default:
		return fmt.Errorf("CACHE_DRIVER must be one of redis, memory (got %q)", c.Store.CacheDriver)
	}

	switch c.Email.Provider {
	case EmailProviderSES, EmailProviderLog:
	case EmailProviderResend:
		if c.Email.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required when EMAIL_PROVIDER=resend")
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be one of ses, resend, log (got %q)", c.Email.Provider)
	}

	if c.Auth.AccessTokenExpiry <= 0 || c.Auth.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}
	if c.Auth.AccessTokenExpiry >= c.Auth.RefreshTokenExpiry {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRY must be shorter than REFRESH_TOKEN_EXPIRY")
	}
	if c.Limits.AuthRequests <= 0 || c.Limits.RefreshRequests <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
