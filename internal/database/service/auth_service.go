package service

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/janusgate/backend/internal/config"
	"github.com/janusgate/backend/internal/database/models"
	"github.com/janusgate/backend/internal/database/repository"
	"github.com/janusgate/backend/internal/token"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(userID, userName, password string, userNumber *string, userGender *int) error
	Login(userID, password string, meta ClientMeta) (*TokenPair, error)
	Rotate(refreshSecret string, meta ClientMeta) (*TokenPair, error)
	Logout(refreshSecret string) error
	ValidateAccessToken(tokenString string) (uint, error)
	CurrentUser(id uint) (*models.User, error)
}

// ClientMeta is best-effort metadata recorded with each refresh token row.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// TokenPair is what a successful login or rotation hands back: a signed
// access token plus the plaintext refresh secret the handler must move into
// an HTTP-only cookie. TTLs are in seconds.
type TokenPair struct {
	AccessToken   string
	AccessTTL     int64
	RefreshSecret string
	RefreshTTL    int64
}

type authService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	codec            *token.Codec
	refreshTTL       time.Duration
	logger           *slog.Logger
}

// NewAuthService creates a new authentication service instance
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	cfg *config.Config,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		codec:            token.NewCodec(cfg),
		refreshTTL:       time.Duration(cfg.RefreshTokenTTLDays) * 24 * time.Hour,
		logger:           logger,
	}
}

func (s *authService) Register(userID, userName, password string, userNumber *string, userGender *int) error {
	s.logger.Info("📝 [AuthService] Registration attempt", "user_id", userID)

	existing, err := s.userRepo.FindByUserID(userID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return err
	}
	if existing != nil {
		s.logger.Warn("⚠️ [AuthService] ID already registered", "user_id", userID)
		return ErrIDAlreadyExists
	}

	hashed, err := token.HashPassword(password)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return err
	}

	user := &models.User{
		UserID:     userID,
		UserName:   userName,
		Password:   hashed,
		UserNumber: userNumber,
		UserGender: userGender,
		IsActive:   true,
	}

	if err := s.userRepo.Create(user); err != nil {
		s.logger.Error("❌ [AuthService] Failed to create user", "error", err)
		return err
	}

	s.logger.Info("✅ [AuthService] User registered successfully", "id", user.ID)
	return nil
}

func (s *authService) Login(userID, password string, meta ClientMeta) (*TokenPair, error) {
	s.logger.Info("🔐 [AuthService] Login attempt", "user_id", userID)

	user, err := s.userRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Same error as a bad password so callers cannot enumerate ids.
			s.logger.Warn("⚠️ [AuthService] User not found", "user_id", userID)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, err
	}

	if !user.IsActive || !token.VerifyPassword(password, user.Password) {
		s.logger.Warn("⚠️ [AuthService] Invalid credentials", "user_id", userID)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user.ID, meta, s.refreshTokenRepo.Create)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to issue tokens", "error", err)
		return nil, err
	}

	s.logger.Info("✅ [AuthService] User logged in successfully", "id", user.ID)
	return pair, nil
}

func (s *authService) Rotate(refreshSecret string, meta ClientMeta) (*TokenPair, error) {
	s.logger.Info("🔄 [AuthService] Token rotation attempt")

	oldHash := s.codec.HashRefreshSecret(refreshSecret)

	var userID uint
	pair, err := s.issueTokens(0, meta, func(next *models.RefreshToken) error {
		// Revoke-old and insert-new share one transaction; a replayed secret
		// (unknown, expired, or already rotated away) fails the whole call.
		id, err := s.refreshTokenRepo.Rotate(oldHash, next)
		if err != nil {
			return err
		}
		userID = id
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			s.logger.Warn("⚠️ [AuthService] Invalid refresh token")
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("❌ [AuthService] Failed to rotate tokens", "error", err)
		return nil, err
	}

	access, err := s.codec.NewAccessToken(userID)
	if err != nil {
		return nil, err
	}
	pair.AccessToken = access

	s.logger.Info("✅ [AuthService] Token rotated successfully", "id", userID)
	return pair, nil
}

func (s *authService) Logout(refreshSecret string) error {
	s.logger.Info("👋 [AuthService] Logout attempt")

	hash := s.codec.HashRefreshSecret(refreshSecret)
	if err := s.refreshTokenRepo.RevokeByHash(hash); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			// Idempotent: logging out an unknown or already-revoked secret is fine.
			return nil
		}
		return err
	}

	s.logger.Info("✅ [AuthService] Refresh token revoked")
	return nil
}

func (s *authService) ValidateAccessToken(tokenString string) (uint, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		return 0, ErrInvalidToken
	}

	// Token type is an explicit claim, never inferred from context.
	if claims.TokenType != "access" {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, ErrInvalidToken
	}

	return uint(userID), nil
}

func (s *authService) CurrentUser(id uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// issueTokens builds the refresh row and access token shared by login and
// rotation. store decides how the row reaches the database (plain insert on
// login, transactional rotate on refresh). When userID is 0 the access token
// is left empty for the caller to fill after store resolves the owner.
func (s *authService) issueTokens(userID uint, meta ClientMeta, store func(*models.RefreshToken) error) (*TokenPair, error) {
	secret, err := token.NewRefreshSecret()
	if err != nil {
		return nil, err
	}
	jti, err := token.NewTokenID()
	if err != nil {
		return nil, err
	}

	row := &models.RefreshToken{
		JTI:       jti,
		UserID:    userID,
		TokenHash: s.codec.HashRefreshSecret(secret),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if meta.UserAgent != "" {
		row.UserAgent = &meta.UserAgent
	}
	if meta.IP != "" {
		row.IP = &meta.IP
	}

	if err := store(row); err != nil {
		return nil, err
	}

	pair := &TokenPair{
		AccessTTL:     s.codec.AccessTTLSeconds(),
		RefreshSecret: secret,
		RefreshTTL:    int64(s.refreshTTL / time.Second),
	}

	if userID != 0 {
		access, err := s.codec.NewAccessToken(userID)
		if err != nil {
			return nil, err
		}
		pair.AccessToken = access
	}

	return pair, nil
}

// Service errors
var (
	ErrIDAlreadyExists     = errors.New("id already registered")
	ErrInvalidCredentials  = errors.New("invalid id or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidToken        = errors.New("invalid or expired token")
)
