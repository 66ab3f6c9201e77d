package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"

	ProviderCinetPay = "cinetpay"
	ProviderPayDunya = "paydunya"

	ProductTypeContent      = "content"
	ProductTypeSubscription = "subscription"
)

// Transaction records one payment attempt against an external provider.
// Rows are never deleted; terminal rows are never re-opened. The metadata
// blob accumulates audit snapshots (initiation payload, raw callbacks,
// authoritative status fetches) via shallow merge.
type Transaction struct {
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`
	// ExternalID stays NULL until the provider session exists. NULL never
	// collides under the unique (provider, external_id) index, so any number
	// of not-yet-attached rows can coexist per provider.
	ExternalID    *string         `gorm:"type:varchar(191);index:ux_transactions_provider_external,unique,priority:2" json:"external_id,omitempty"`
	UserID        uint            `gorm:"index;not null" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(8);not null" json:"currency"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod string          `gorm:"type:varchar(50)" json:"payment_method"`
	Provider      string          `gorm:"type:varchar(20);not null;index:ux_transactions_provider_external,unique,priority:1" json:"provider"`
	ProductType   string          `gorm:"type:varchar(20);not null" json:"product_type"`
	ProductID     uint            `gorm:"not null;index" json:"product_id"`
	Metadata      JSON            `gorm:"type:longtext" json:"metadata"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ExternalRef returns the provider transaction id, or "" when none is attached.
func (t *Transaction) ExternalRef() string {
	if t.ExternalID == nil {
		return ""
	}
	return *t.ExternalID
}

// IsTerminal reports whether the transaction has reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// IsKnownProvider reports whether the provider tag is one we can route to.
func IsKnownProvider(provider string) bool {
	switch provider {
	case ProviderCinetPay, ProviderPayDunya:
		return true
	default:
		return false
	}
}
