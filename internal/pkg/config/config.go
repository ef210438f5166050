package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	MailBackendConsole = "console"
	MailBackendSMTP    = "smtp"
)

type Config struct {
	Port          string `env:"PORT,           default=8080"`
	Env           string `env:"ENV,            default=development"`
	LogLevel      string `env:"LOG_LEVEL,      default=info"`
	RatingWorkers int    `env:"RATING_WORKERS, default=8"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	Mail  MailConfig
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,             default=24h"`
	CodeTTL        time.Duration `env:"CONFIRMATION_CODE_TTL, default=24h"`
	SingleUseCodes bool          `env:"SINGLE_USE_CODES,      default=true"`
	CodeHashCost   int           `env:"CODE_HASH_COST,        default=10"`
	SignupCooldown time.Duration `env:"SIGNUP_COOLDOWN,       default=0s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=yamdb"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type MailConfig struct {
	Backend  string `env:"MAIL_BACKEND,   default=console"`
	Host     string `env:"MAIL_SMTP_HOST"`
	Port     int    `env:"MAIL_SMTP_PORT, default=587"`
	Username string `env:"MAIL_SMTP_USER"`
	Password string `env:"MAIL_SMTP_PASS"`
	From     string `env:"MAIL_FROM,      default=noreply@yamdb.local"`
}

// IsDevelopment reports whether the service runs with developer defaults
// (pretty logs, console mail).
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Mail.Backend {
	case MailBackendConsole:
	case MailBackendSMTP:
		if c.Mail.Host == "" {
			errs = append(errs, errors.New("MAIL_SMTP_HOST is required for the smtp backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_BACKEND %q is not one of console, smtp", c.Mail.Backend))
	}
	if c.RatingWorkers <= 0 {
		errs = append(errs, errors.New("RATING_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}
