package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a durable grant of access to one content item for one user.
// The unique (user_id, content_id) index is the idempotency anchor: a second
// successful payment for already-owned content must not create a second row.
type Purchase struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index:ux_purchases_user_content,unique,priority:1" json:"user_id"`
	ContentID     uint            `gorm:"not null;index:ux_purchases_user_content,unique,priority:2;index" json:"content_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(8);not null" json:"currency"`
	TransactionID string          `gorm:"type:varchar(36);not null;index" json:"transaction_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
