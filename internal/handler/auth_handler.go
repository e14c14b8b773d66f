package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/janusgate/backend/internal/config"
	"github.com/janusgate/backend/internal/database/service"
)

const refreshCookieName = "refresh_token"

// AuthHandler handles HTTP requests for authentication. The refresh secret
// only ever travels in an HTTP-only cookie; JSON bodies carry the access
// token alone so a script-accessible context can never read the secret.
type AuthHandler struct {
	service service.AuthService
	logger  *slog.Logger

	cookieSecure   bool
	cookieSameSite http.SameSite
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(service service.AuthService, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:        service,
		logger:         logger,
		cookieSecure:   cfg.CookieSecure,
		cookieSameSite: parseSameSite(cfg.CookieSameSite),
	}
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Request/Response DTOs
type RegisterRequest struct {
	UserID     string  `json:"user_id" binding:"required,min=3,max=50"`
	UserName   string  `json:"user_name" binding:"required,min=1,max=100"`
	Password   string  `json:"user_pwd" binding:"required,min=6"`
	UserNumber *string `json:"user_number"`
	UserGender *int    `json:"user_gender"`
}

type LoginRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Password string `json:"user_pwd" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid registration request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. user_id, user_name and user_pwd (min 6 chars) required."})
		return
	}

	if err := h.service.Register(req.UserID, req.UserName, req.Password, req.UserNumber, req.UserGender); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// Login handles user login and sets the refresh cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. user_id and user_pwd required."})
		return
	}

	pair, err := h.service.Login(req.UserID, req.Password, h.clientMeta(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshSecret, int(pair.RefreshTTL))
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   pair.AccessTTL,
	})
}

// Refresh rotates the refresh cookie and returns a fresh access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	secret, err := c.Cookie(refreshCookieName)
	if err != nil || secret == "" {
		h.logger.Warn("⚠️ [Handler] Refresh without cookie")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No refresh token"})
		return
	}

	pair, err := h.service.Rotate(secret, h.clientMeta(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshSecret, int(pair.RefreshTTL))
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   pair.AccessTTL,
	})
}

// Logout revokes the refresh token if one is presented and always clears the
// cookie. It never fails.
func (h *AuthHandler) Logout(c *gin.Context) {
	if secret, err := c.Cookie(refreshCookieName); err == nil && secret != "" {
		if err := h.service.Logout(secret); err != nil {
			h.logger.Error("❌ [Handler] Logout revocation failed", "error", err)
		}
	}

	h.setRefreshCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) clientMeta(c *gin.Context) service.ClientMeta {
	return service.ClientMeta{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.cookieSameSite)
	c.SetCookie(refreshCookieName, value, maxAge, "/", "", h.cookieSecure, true)
}

// handleServiceError maps service errors to HTTP responses
func (h *AuthHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrIDAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "ID already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid id or password"})
	case errors.Is(err, service.ErrInvalidRefreshToken), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
	default:
		h.logger.Error("❌ [Handler] Internal server error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
