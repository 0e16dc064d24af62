package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "talkline", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret", OIDCIssuer: "https://id.example.test", OIDCClientID: "talkline"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	// Ensure a clean env by not setting anything and calling validation directly.
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_EngineDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Engine.LowMinutesWarning != 3 {
		t.Fatalf("expected low minutes warning 3, got %d", c.Engine.LowMinutesWarning)
	}
	if c.Engine.NotifyTimeout != 2*time.Second {
		t.Fatalf("expected notify timeout 2s, got %v", c.Engine.NotifyTimeout)
	}
	if c.Engine.SweepInterval != 0 {
		t.Fatalf("expected sweep disabled by default, got %v", c.Engine.SweepInterval)
	}
}

func TestValidate_RejectsNegativeSweep(t *testing.T) {
	c := validLocal()
	c.Engine.SweepInterval = -time.Minute
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative SWEEP_INTERVAL")
	}
}

func TestLoad_ReadsEngineEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "talkline")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OIDC_ISSUER", "https://id.example.test")
	t.Setenv("OIDC_CLIENT_ID", "talkline")
	t.Setenv("SWEEP_INTERVAL", "1m")
	t.Setenv("LOW_MINUTES_WARNING", "5")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Engine.SweepInterval != time.Minute {
		t.Fatalf("expected 1m sweep, got %v", c.Engine.SweepInterval)
	}
	if c.Engine.LowMinutesWarning != 5 {
		t.Fatalf("expected warning band 5, got %d", c.Engine.LowMinutesWarning)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode default, got %q", c.DB.SSLMode)
	}
}

func TestLoad_RejectsMalformedDuration(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "talkline")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OIDC_ISSUER", "https://id.example.test")
	t.Setenv("OIDC_CLIENT_ID", "talkline")
	t.Setenv("NOTIFY_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed NOTIFY_TIMEOUT")
	}
}

func TestValidate_RequiresIdentityProvider(t *testing.T) {
	c := validLocal()
	c.Auth.OIDCIssuer = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error without OIDC_ISSUER")
	}
	c = validLocal()
	c.Auth.OIDCClientID = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error without OIDC_CLIENT_ID")
	}
}
