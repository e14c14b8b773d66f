package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/janusgate/backend/internal/database/models"
)

// RefreshTokenRepository defines the interface for refresh token operations.
// Lookups are by peppered hash; the plaintext secret never reaches this layer.
type RefreshTokenRepository interface {
	Create(token *models.RefreshToken) error
	FindActiveByHash(hash string) (*models.RefreshToken, error)
	// Rotate revokes the active row matching oldHash and inserts next in the
	// same transaction, returning the owning user id. A replayed hash (already
	// revoked, expired or unknown) fails with ErrTokenNotFound and inserts
	// nothing.
	Rotate(oldHash string, next *models.RefreshToken) (uint, error)
	RevokeByHash(hash string) error
	RevokeAllUserTokens(userID uint) error
	DeleteExpiredTokens() error
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository instance
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(token *models.RefreshToken) error {
	return r.db.Create(token).Error
}

func (r *refreshTokenRepository) FindActiveByHash(hash string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	err := r.db.Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", hash, time.Now()).
		First(&refreshToken).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return &refreshToken, nil
}

func (r *refreshTokenRepository) Rotate(oldHash string, next *models.RefreshToken) (uint, error) {
	var userID uint

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var current models.RefreshToken
		err := tx.Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", oldHash, time.Now()).
			First(&current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenNotFound
			}
			return err
		}

		// Compare-and-swap on revoked_at so two concurrent rotations of the
		// same secret cannot both succeed.
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", current.ID).
			Update("revoked_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenNotFound
		}

		next.UserID = current.UserID
		if err := tx.Create(next).Error; err != nil {
			return err
		}

		userID = current.UserID
		return nil
	})
	if err != nil {
		return 0, err
	}

	return userID, nil
}

func (r *refreshTokenRepository) RevokeByHash(hash string) error {
	result := r.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", time.Now())

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}

	return nil
}

func (r *refreshTokenRepository) RevokeAllUserTokens(userID uint) error {
	return r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
}

func (r *refreshTokenRepository) DeleteExpiredTokens() error {
	return r.db.Where("expires_at < ?", time.Now()).
		Delete(&models.RefreshToken{}).Error
}

// Repository errors
var (
	ErrTokenNotFound = errors.New("token not found")
)
