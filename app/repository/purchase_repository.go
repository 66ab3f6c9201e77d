package repository

import (
	"github.com/YaoKonate/SikaMarket/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// purchaseRepository implements the PurchaseRepository interface
type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates a new purchase repository instance
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// CreateIfNotExists inserts a purchase unless the user already owns the
// content. The unique (user_id, content_id) index arbitrates concurrent
// grant attempts; the boolean reports whether this call created the row.
func (r *purchaseRepository) CreateIfNotExists(purchase *models.Purchase) (bool, *models.Purchase, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "content_id"},
		},
		DoNothing: true,
	}).Create(purchase)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Purchase
	if err := r.db.Where("user_id = ? AND content_id = ?", purchase.UserID, purchase.ContentID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// GetByUserAndContent retrieves the purchase granting a user access to a content item
func (r *purchaseRepository) GetByUserAndContent(userID, contentID uint) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.Where("user_id = ? AND content_id = ?", userID, contentID).First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// ListByUser returns a page of the user's purchases, newest first
func (r *purchaseRepository) ListByUser(userID uint, offset, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&purchases).Error
	return purchases, err
}

// CountByUser returns the total number of purchases for a user
func (r *purchaseRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Purchase{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
