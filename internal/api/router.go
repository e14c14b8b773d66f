package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/janusgate/backend/internal/handler"
	"github.com/janusgate/backend/internal/middleware"
)

func SetupRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	roomHandler *handler.RoomHandler,
	authMiddleware *middleware.AuthMiddleware,
	loginLimiter middleware.LoginLimiter,
	logger *slog.Logger,
) *gin.Engine {
	r := gin.Default()
	r.SetTrustedProxies(nil)

	// Public routes
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Auth routes (public; login and refresh are throttled per client IP)
	throttled := middleware.Throttle(loginLimiter, logger)
	authGroup := r.Group("/api/v1/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", throttled, authHandler.Login)
		authGroup.POST("/refresh", throttled, authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Room routes (Janus is the authority; no local auth on the room surface)
	roomGroup := r.Group("/api/v1/rooms")
	{
		roomGroup.POST("", roomHandler.CreateRoom)
		roomGroup.GET("", roomHandler.ListRooms)
		roomGroup.GET("/:room_id/participants", roomHandler.ListParticipants)
		roomGroup.PATCH("/:room_id", roomHandler.UpdateRoom)
		roomGroup.DELETE("/:room_id", roomHandler.DestroyRoom)
	}

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/me", userHandler.Me)
	}

	return r
}
