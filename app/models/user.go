package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User is the authenticated principal the core consumes. Registration,
// sessions and 2FA live outside this service; requests arrive carrying a
// user API key that resolves to a row here.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"type:varchar(150)" json:"name"`
	Email      string         `gorm:"uniqueIndex;type:varchar(200)" json:"email"`
	Role       string         `gorm:"type:varchar(50);default:'user'" json:"role"`
	Status     string         `gorm:"type:varchar(50);default:'active'" json:"status"`
	APIKeyHash string         `gorm:"type:varchar(64);index" json:"-"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
