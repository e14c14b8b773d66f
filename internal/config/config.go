package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv                 string
	LogLevel               slog.Level
	ApiServicePort         string
	JanusServerURL         string
	JanusCallTimeout       int64 // Outbound Janus call timeout in seconds
	JanusKeepaliveInterval int64 // Keep-alive period in seconds; must stay below Janus' session reaper
	PostgreSQLHost         string
	PostgreSQLPort         int64
	PostgreSQLUser         string
	PostgreSQLPassword     string
	PostgreSQLDatabase     string
	JWTSecret              string
	JWTAlgorithm           string
	AccessTokenTTLMinutes  int64
	RefreshTokenTTLDays    int64
	RefreshTokenPepper     string
	CookieSameSite         string
	CookieSecure           bool
	RedisHost              string
	RedisPort              int64
	RedisPassword          string
	RedisDatabase          int64
	LoginRateLimit         int64 // Attempts per window per client IP
	LoginRateWindow        int64 // Window length in seconds
}

func LoadConfig() *Config {
	// Optional .env for local development; real env vars always win.
	_ = godotenv.Load()

	return &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),                      // Default development
		LogLevel:               getLogLevel(),                                         // Default INFO
		ApiServicePort:         getEnv("API_SERVICE_PORT", "8080"),                    // Default 8080
		JanusServerURL:         getEnv("JANUS_SERVER_URL", "http://janus:8088/janus"), // Janus REST endpoint
		JanusCallTimeout:       getEnvAsInt64("JANUS_CALL_TIMEOUT", 5),                // Default 5 seconds
		JanusKeepaliveInterval: getEnvAsInt64("JANUS_KEEPALIVE_INTERVAL", 30),         // Half of Janus' 60s idle timeout
		PostgreSQLHost:         getEnv("POSTGRESQL_HOST", "db"),                       // Default db
		PostgreSQLPort:         getEnvAsInt64("POSTGRESQL_PORT", 5432),                // Default 5432
		PostgreSQLUser:         getEnv("POSTGRESQL_USER", "janusgate_user"),           // Default user
		PostgreSQLPassword:     getEnv("POSTGRESQL_PASSWORD", "janusgate_password"),   // Default password
		PostgreSQLDatabase:     getEnv("POSTGRESQL_DATABASE", "janusgate_db"),         // Default database name
		JWTSecret:              getEnv("JWT_SECRET", "janusgate_secret"),              // Default secret key
		JWTAlgorithm:           getJWTAlgorithm(),                                     // Default HS256
		AccessTokenTTLMinutes:  getEnvAsInt64("ACCESS_TOKEN_TTL_MINUTES", 15),         // Default 15 minutes
		RefreshTokenTTLDays:    getEnvAsInt64("REFRESH_TOKEN_TTL_DAYS", 7),            // Default 7 days
		RefreshTokenPepper:     getEnv("REFRESH_TOKEN_PEPPER", "janusgate_pepper"),    // Server-side pepper for refresh hashing
		CookieSameSite:         getEnv("COOKIE_SAMESITE", "lax"),                      // Default lax
		CookieSecure:           getEnvAsBool("COOKIE_SECURE", false),                  // Default false for local dev
		RedisHost:              getEnv("REDIS_HOST", "redis"),                         // Default redis
		RedisPort:              getEnvAsInt64("REDIS_PORT", 6379),                     // Default 6379
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),                          // Default empty
		RedisDatabase:          getEnvAsInt64("REDIS_DATABASE", 0),                    // Default 0
		LoginRateLimit:         getEnvAsInt64("LOGIN_RATE_LIMIT", 10),                 // Default 10 attempts
		LoginRateWindow:        getEnvAsInt64("LOGIN_RATE_WINDOW", 60),                // Default 60 seconds
	}
}

// DatabaseDSN builds the Postgres connection string from the individual fields.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.PostgreSQLHost,
		c.PostgreSQLUser,
		c.PostgreSQLPassword,
		c.PostgreSQLDatabase,
		c.PostgreSQLPort,
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getJWTAlgorithm() string {
	alg := strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256"))

	switch alg {
	case "HS256", "HS384", "HS512":
		return alg
	default:
		return "HS256"
	}
}
