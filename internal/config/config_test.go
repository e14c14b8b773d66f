package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/janusgate/backend/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := config.LoadConfig()

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "8080", cfg.ApiServicePort)
	assert.Equal(t, "http://janus:8088/janus", cfg.JanusServerURL)
	assert.Equal(t, int64(5), cfg.JanusCallTimeout)
	assert.Equal(t, int64(30), cfg.JanusKeepaliveInterval)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, int64(15), cfg.AccessTokenTTLMinutes)
	assert.Equal(t, int64(7), cfg.RefreshTokenTTLDays)
	assert.Equal(t, "lax", cfg.CookieSameSite)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, int64(10), cfg.LoginRateLimit)
	assert.Equal(t, int64(60), cfg.LoginRateWindow)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("JANUS_SERVER_URL", "http://localhost:8188/janus")
	t.Setenv("JANUS_KEEPALIVE_INTERVAL", "15")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "30")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("COOKIE_SAMESITE", "strict")

	cfg := config.LoadConfig()

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "http://localhost:8188/janus", cfg.JanusServerURL)
	assert.Equal(t, int64(15), cfg.JanusKeepaliveInterval)
	assert.Equal(t, int64(5), cfg.AccessTokenTTLMinutes)
	assert.Equal(t, int64(30), cfg.RefreshTokenTTLDays)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "strict", cfg.CookieSameSite)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "not-a-number")
	t.Setenv("COOKIE_SECURE", "maybe")
	t.Setenv("LOG_LEVEL", "VERBOSE")
	t.Setenv("JWT_ALGORITHM", "none")

	cfg := config.LoadConfig()

	assert.Equal(t, int64(15), cfg.AccessTokenTTLMinutes)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	// An unsigned or unknown algorithm must never be accepted.
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
}

func TestDatabaseDSN(t *testing.T) {
	t.Setenv("POSTGRESQL_HOST", "pg.internal")
	t.Setenv("POSTGRESQL_PORT", "5433")
	t.Setenv("POSTGRESQL_USER", "gateway")
	t.Setenv("POSTGRESQL_PASSWORD", "s3cret")
	t.Setenv("POSTGRESQL_DATABASE", "rooms")

	cfg := config.LoadConfig()

	assert.Equal(t,
		"host=pg.internal user=gateway password=s3cret dbname=rooms port=5433 sslmode=disable TimeZone=UTC",
		cfg.DatabaseDSN(),
	)
}
