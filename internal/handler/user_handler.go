package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janusgate/backend/internal/database/service"
)

// UserHandler serves the authenticated user's own profile.
type UserHandler struct {
	service service.AuthService
	logger  *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(service service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// Me returns the profile of the bearer-token owner
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetUint("userID")

	user, err := h.service.CurrentUser(userID)
	if err != nil {
		h.logger.Warn("⚠️ [Handler] Current user lookup failed", "user_id", userID, "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"user_id":   user.UserID,
		"user_name": user.UserName,
	})
}
