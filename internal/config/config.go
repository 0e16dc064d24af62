package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration. Packages below cmd/ receive the
// pieces they need and never read the environment themselves.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Engine EngineConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode: disable, require, verify-ca or verify-full. Required in production.
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AccessTokenTTL time.Duration
	// RefreshTokenTTL also bounds how long a revocation marker is kept.
	RefreshTokenTTL time.Duration

	// OIDCIssuer and OIDCClientID identify the provider whose ID tokens
	// the login gate accepts.
	OIDCIssuer   string
	OIDCClientID string
}

// EngineConfig tunes the session and suspension engine.
// Durations are optional; zero values get defaults in Validate.
type EngineConfig struct {
	// SweepInterval drives the periodic housekeeping loop in `serve`.
	// Zero disables it; lazy evaluation is always on.
	SweepInterval time.Duration

	// LowMinutesWarning is the remaining-minutes band that triggers the one-time warning.
	LowMinutesWarning int

	NotifyTimeout time.Duration
}

// Load reads configuration from the environment.
// A .env file in the working directory is applied first when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "err", err)
	}

	var r envReader
	c := Config{
		App: AppConfig{
			Env:  r.str("APP_ENV"),
			Port: r.requiredInt("APP_PORT"),
		},
		DB: DBConfig{
			Host:     r.str("DB_HOST"),
			Port:     r.requiredInt("DB_PORT"),
			User:     r.str("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     r.str("DB_NAME"),
			SSLMode:  r.str("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host: r.str("REDIS_HOST"),
			Port: r.requiredInt("REDIS_PORT"),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			JWTIssuer:       r.str("JWT_ISSUER"),
			JWTAudience:     r.str("JWT_AUDIENCE"),
			AccessTokenTTL:  r.duration("JWT_ACCESS_TTL"),
			RefreshTokenTTL: r.duration("JWT_REFRESH_TTL"),
			OIDCIssuer:      r.str("OIDC_ISSUER"),
			OIDCClientID:    r.str("OIDC_CLIENT_ID"),
		},
		Engine: EngineConfig{
			SweepInterval:     r.duration("SWEEP_INTERVAL"),
			LowMinutesWarning: r.optionalInt("LOW_MINUTES_WARNING"),
			NotifyTimeout:     r.duration("NOTIFY_TIMEOUT"),
		},
	}
	if err := joinErrors(r.errs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the config and fills in environment-dependent defaults.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.validateApp()...)
	errs = append(errs, c.validateStores()...)
	errs = append(errs, c.validateAuth()...)
	errs = append(errs, c.validateEngine()...)
	return joinErrors(errs)
}

func (c *Config) validateApp() []error {
	var errs []error
	switch {
	case c.App.Env == "":
		errs = append(errs, errors.New("APP_ENV is required"))
	case !isValidEnv(c.App.Env):
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	return appendPortErr(errs, "APP_PORT", c.App.Port)
}

func (c *Config) validateStores() []error {
	var errs []error
	for _, req := range []struct{ key, val string }{
		{"DB_HOST", c.DB.Host},
		{"DB_USER", c.DB.User},
		{"DB_NAME", c.DB.Name},
		{"REDIS_HOST", c.Redis.Host},
	} {
		if req.val == "" {
			errs = append(errs, fmt.Errorf("%s is required", req.key))
		}
	}
	errs = appendPortErr(errs, "DB_PORT", c.DB.Port)
	errs = appendPortErr(errs, "REDIS_PORT", c.Redis.Port)

	c.DB.SSLMode = strings.TrimSpace(c.DB.SSLMode)
	switch {
	case c.DB.SSLMode == "" && c.IsProduction():
		errs = append(errs, errors.New("DB_SSLMODE is required in production"))
	case c.DB.SSLMode == "":
		c.DB.SSLMode = "disable"
	case !isValidSSLMode(c.DB.SSLMode):
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c *Config) validateAuth() []error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.OIDCIssuer == "" {
		errs = append(errs, errors.New("OIDC_ISSUER is required"))
	}
	if c.Auth.OIDCClientID == "" {
		errs = append(errs, errors.New("OIDC_CLIENT_ID is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	return errs
}

func (c *Config) validateEngine() []error {
	var errs []error
	if c.Engine.SweepInterval < 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must not be negative"))
	}
	switch {
	case c.Engine.LowMinutesWarning < 0:
		errs = append(errs, fmt.Errorf("LOW_MINUTES_WARNING must not be negative, got %d", c.Engine.LowMinutesWarning))
	case c.Engine.LowMinutesWarning == 0:
		c.Engine.LowMinutesWarning = 3
	}
	if c.Engine.NotifyTimeout <= 0 {
		c.Engine.NotifyTimeout = 2 * time.Second
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// envReader collects parse failures so Load can report them all at once.
type envReader struct {
	errs []error
}

func (r *envReader) str(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (r *envReader) requiredInt(key string) int {
	v := r.str(key)
	if v == "" {
		r.errs = append(r.errs, fmt.Errorf("%s is required", key))
		return 0
	}
	return r.parseInt(key, v)
}

func (r *envReader) optionalInt(key string) int {
	v := r.str(key)
	if v == "" {
		return 0
	}
	return r.parseInt(key, v)
}

func (r *envReader) parseInt(key, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return 0
	}
	return n
}

// duration returns zero for an unset key; Validate applies the default.
func (r *envReader) duration(key string) time.Duration {
	v := r.str(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a duration like 90s or 15m, got %q", key, v))
		return 0
	}
	return d
}

func appendPortErr(errs []error, key string, port int) []error {
	if port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("%s must be a valid port, got %d", key, port))
	}
	return errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
