package repository

import (
	"github.com/YaoKonate/SikaMarket/app/models"
	"gorm.io/gorm"
)

// transactionRepository implements the TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create inserts a new transaction row
func (r *transactionRepository) Create(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

// GetByID retrieves a transaction by its internal id
func (r *transactionRepository) GetByID(id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetByExternalID retrieves a transaction by provider and external id
func (r *transactionRepository) GetByExternalID(provider, externalID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Where("provider = ? AND external_id = ?", provider, externalID).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// SetExternalIDIfEmpty attaches the provider transaction id only while the
// column is still NULL. Zero affected rows means the id was already set,
// which the ledger distinguishes into idempotent no-op vs. conflict.
func (r *transactionRepository) SetExternalIDIfEmpty(id, externalID string) (bool, error) {
	tx := r.db.Model(&models.Transaction{}).
		Where("id = ? AND external_id IS NULL", id).
		UpdateColumn("external_id", externalID)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// CompareAndSwapStatus flips status and writes metadata in one UPDATE guarded
// by the expected current status. Two concurrent callbacks for the same
// transaction cannot both win this swap.
func (r *transactionRepository) CompareAndSwapStatus(id, fromStatus, toStatus string, metadata models.JSON) (bool, error) {
	tx := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":   toStatus,
			"metadata": metadata,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// UpdateMetadata replaces the metadata blob for a transaction
func (r *transactionRepository) UpdateMetadata(id string, metadata models.JSON) error {
	return r.db.Model(&models.Transaction{}).Where("id = ?", id).
		UpdateColumn("metadata", metadata).Error
}
