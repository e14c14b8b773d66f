package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/janusgate/backend/internal/config"
)

// LoginLimiter throttles credential-guessing on the auth endpoints with a
// fixed per-IP window.
type LoginLimiter interface {
	// Allow reports whether the client may attempt another login this window.
	Allow(ctx context.Context, clientIP string) (bool, error)

	// Close closes the Redis connection
	Close() error
}

type redisLoginLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// NewLoginLimiter creates a Redis-backed login limiter.
func NewLoginLimiter(cfg *config.Config, logger *slog.Logger) (LoginLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       int(cfg.RedisDatabase),
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("❌ [LoginLimiter] Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ [LoginLimiter] Connected to Redis",
		"host", cfg.RedisHost,
		"port", cfg.RedisPort,
	)

	return &redisLoginLimiter{
		client: client,
		limit:  cfg.LoginRateLimit,
		window: time.Duration(cfg.LoginRateWindow) * time.Second,
		logger: logger,
	}, nil
}

// NewLoginLimiterForTesting wraps a provided redis client (for tests).
func NewLoginLimiterForTesting(client *redis.Client, cfg *config.Config, logger *slog.Logger) LoginLimiter {
	return &redisLoginLimiter{
		client: client,
		limit:  cfg.LoginRateLimit,
		window: time.Duration(cfg.LoginRateWindow) * time.Second,
		logger: logger,
	}
}

func loginKey(clientIP string) string {
	return fmt.Sprintf("rate:login:%s", clientIP)
}

func (r *redisLoginLimiter) Allow(ctx context.Context, clientIP string) (bool, error) {
	key := loginKey(clientIP)

	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.window)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("❌ [LoginLimiter] Failed to count attempt", "error", err, "ip", clientIP)
		// On Redis failure, allow the request so auth stays available.
		return true, err
	}

	return incr.Val() <= r.limit, nil
}

func (r *redisLoginLimiter) Close() error {
	return r.client.Close()
}

// Throttle rejects requests over the per-IP limit with 429.
func Throttle(limiter LoginLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("⚠️ [LoginLimiter] Limiter unavailable, letting request through", "error", err)
		}
		if !allowed {
			logger.Warn("⚠️ [LoginLimiter] Too many attempts", "ip", c.ClientIP())
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// NoOpLoginLimiter always allows requests.
// Used when Redis is not available.
type NoOpLoginLimiter struct {
	logger *slog.Logger
}

// NewNoOpLoginLimiter creates a no-op login limiter
func NewNoOpLoginLimiter(logger *slog.Logger) LoginLimiter {
	logger.Warn("⚠️ [LoginLimiter] Using no-op limiter - login throttling is disabled")
	return &NoOpLoginLimiter{logger: logger}
}

func (r *NoOpLoginLimiter) Allow(ctx context.Context, clientIP string) (bool, error) {
	return true, nil
}

func (r *NoOpLoginLimiter) Close() error {
	return nil
}
