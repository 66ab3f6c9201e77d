package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ContentStatusPublished = "published"
	ContentStatusDraft     = "draft"
	ContentStatusArchived  = "archived"
)

// Content is the narrow slice of the catalog the payment core needs: price,
// free flag and the view counter. Catalog management itself lives elsewhere.
type Content struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"index" json:"user_id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Currency    string          `gorm:"type:varchar(8);not null;default:'XOF'" json:"currency"`
	IsFree      bool            `gorm:"default:false" json:"is_free"`
	Status      string          `gorm:"type:varchar(20);default:'published';index" json:"status"`
	ViewCount   int             `gorm:"default:0" json:"view_count"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}
