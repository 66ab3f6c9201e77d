package repository

import (
	"github.com/YaoKonate/SikaMarket/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// contentRepository implements the ContentRepository interface
type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository instance
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

// Create creates a new content row in the database
func (r *contentRepository) Create(content *models.Content) error {
	return r.db.Create(content).Error
}

// GetByID retrieves a content item by its ID
func (r *contentRepository) GetByID(id uint) (*models.Content, error) {
	var content models.Content
	if err := r.db.First(&content, id).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

// IncrementViewCount increments the view counter for a content item
func (r *contentRepository) IncrementViewCount(id uint) error {
	return r.db.Model(&models.Content{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// CreateViewIfNotExists inserts a ContentView row unless the (user, content)
// pair already has one. The unique index decides; RowsAffected tells the
// caller whether this call was the one that actually created the row.
func (r *contentRepository) CreateViewIfNotExists(view *models.ContentView) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "content_id"},
		},
		DoNothing: true,
	}).Create(view)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// CountViews returns the number of recorded view rows for a content item
func (r *contentRepository) CountViews(contentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ContentView{}).Where("content_id = ?", contentID).Count(&count).Error
	return count, err
}
