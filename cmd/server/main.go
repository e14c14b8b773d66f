package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/janusgate/backend/internal/api"
	"github.com/janusgate/backend/internal/config"
	"github.com/janusgate/backend/internal/database"
	"github.com/janusgate/backend/internal/database/repository"
	"github.com/janusgate/backend/internal/database/service"
	"github.com/janusgate/backend/internal/handler"
	"github.com/janusgate/backend/internal/janus"
	"github.com/janusgate/backend/internal/logger"
	"github.com/janusgate/backend/internal/middleware"
)

func main() {
	// 1. Config
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	appLogger.Info("🚀 [Go] Starting Janus gateway API...",
		"janus_url", cfg.JanusServerURL,
		"environment", cfg.AppEnv,
	)

	// 3. Connect to Database
	if err := database.ConnectDatabase(cfg, appLogger); err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}

	db := database.GetDatabase()

	// 4. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	// 5. Initialize Services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, cfg, appLogger)

	// 6. Janus client, shared session and room operations
	janusClient := janus.NewClient(cfg, appLogger)
	sessionManager := janus.NewManager(janusClient, cfg, appLogger)
	defer sessionManager.Close()
	roomService := janus.NewRoomService(sessionManager, janusClient, appLogger)

	// 7. Login rate limiter (Redis, with no-op fallback)
	loginLimiter, err := middleware.NewLoginLimiter(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis, using no-op login limiter", "error", err)
		loginLimiter = middleware.NewNoOpLoginLimiter(appLogger)
	}
	defer loginLimiter.Close()

	// 8. Initialize Handlers & Middleware
	authHandler := handler.NewAuthHandler(authService, cfg, appLogger)
	userHandler := handler.NewUserHandler(authService, appLogger)
	roomHandler := handler.NewRoomHandler(roomService, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(authService, appLogger)

	r := api.SetupRouter(authHandler, userHandler, roomHandler, authMiddleware, loginLimiter, appLogger)

	// 9. Start HTTP server with graceful shutdown so the keep-alive loop and
	// in-flight requests get a clean stop.
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ApiServicePort),
		Handler: r,
	}

	go func() {
		appLogger.Info("🌍 [Go] HTTP Server running...", "port", cfg.ApiServicePort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("❌ HTTP Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("🛑 [Go] Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("❌ HTTP Server shutdown failed", "error", err)
	}

	appLogger.Info("✅ [Go] Server stopped")
}
