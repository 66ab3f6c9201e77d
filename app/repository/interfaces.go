package repository

import (
	"github.com/YaoKonate/SikaMarket/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
}

// ContentRepository defines the interface for content catalog operations.
// The payment core only reads price/free information and bumps counters; the
// catalog itself is managed elsewhere.
type ContentRepository interface {
	Create(content *models.Content) error
	GetByID(id uint) (*models.Content, error)
	IncrementViewCount(id uint) error
	CreateViewIfNotExists(view *models.ContentView) (bool, error)
	CountViews(contentID uint) (int64, error)
}

// TransactionRepository defines the persistence primitives of the payment
// ledger. Status flips use compare-and-swap semantics so that concurrent
// callbacks for the same transaction serialize at the storage layer.
type TransactionRepository interface {
	Create(tx *models.Transaction) error
	GetByID(id string) (*models.Transaction, error)
	GetByExternalID(provider, externalID string) (*models.Transaction, error)
	// SetExternalIDIfEmpty attaches the provider transaction id to a row
	// whose external_id is still NULL. It reports whether a row was updated;
	// zero rows means the id was already set.
	SetExternalIDIfEmpty(id, externalID string) (bool, error)
	// CompareAndSwapStatus moves a transaction from one status to another
	// and writes the merged metadata in the same statement. It reports
	// whether the swap happened.
	CompareAndSwapStatus(id, fromStatus, toStatus string, metadata models.JSON) (bool, error)
	// UpdateMetadata replaces the stored metadata blob without touching status.
	UpdateMetadata(id string, metadata models.JSON) error
}

// PurchaseRepository defines access-grant persistence. CreateIfNotExists is
// the idempotency primitive: the unique (user_id, content_id) index decides,
// not application-level lookups.
type PurchaseRepository interface {
	CreateIfNotExists(purchase *models.Purchase) (bool, *models.Purchase, error)
	GetByUserAndContent(userID, contentID uint) (*models.Purchase, error)
	ListByUser(userID uint, offset, limit int) ([]models.Purchase, error)
	CountByUser(userID uint) (int64, error)
}

// WebhookEventRepository stores inbound callbacks for audit and dedup.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Repositories bundles all repository implementations
type Repositories struct {
	User         UserRepository
	Content      ContentRepository
	Transaction  TransactionRepository
	Purchase     PurchaseRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates all repositories with the given database connection
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Content:      NewContentRepository(db),
		Transaction:  NewTransactionRepository(db),
		Purchase:     NewPurchaseRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
