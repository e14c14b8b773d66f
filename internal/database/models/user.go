package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. UserID is the external-facing login
// identifier; ID is the internal numeric key access tokens are bound to.
type User struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	UserID     string         `gorm:"uniqueIndex;not null" json:"user_id"`
	UserName   string         `gorm:"not null" json:"user_name"`
	Password   string         `gorm:"not null" json:"-"`
	UserNumber *string        `json:"user_number,omitempty"`
	UserGender *int           `json:"user_gender,omitempty"`
	IsActive   bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}
