package models

import (
	"time"
)

// RefreshToken is one issued refresh credential. Only the peppered SHA-256
// hash of the secret is stored; the plaintext leaves the process exactly once,
// inside the Set-Cookie header. A row is valid while RevokedAt is null and
// ExpiresAt is in the future.
type RefreshToken struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	JTI       string     `gorm:"uniqueIndex;size:32;not null" json:"jti"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	TokenHash string     `gorm:"index;size:64;not null" json:"-"`
	UserAgent *string    `gorm:"size:255" json:"user_agent,omitempty"`
	IP        *string    `gorm:"size:45" json:"ip,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

// TableName overrides the table name
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// Active reports whether the row is usable at the given instant.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
