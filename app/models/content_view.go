package models

import "time"

// ContentView records that a user viewed a content item, at most once per
// (user, content) pair for the lifetime of the pair. The unique index is the
// sole correctness mechanism behind view-count deduplication; in-memory or
// Redis fast paths only shortcut the common case.
type ContentView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_content_views_user_content,unique,priority:1" json:"user_id"`
	ContentID uint      `gorm:"not null;index:ux_content_views_user_content,unique,priority:2;index" json:"content_id"`
	ViewedAt  time.Time `gorm:"autoCreateTime" json:"viewed_at"`
}
