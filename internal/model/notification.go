package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationBadgeUnlocked = "badge_unlocked"
	NotificationRankUp        = "rank_up"
)

type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Type        string    `gorm:"size:50;not null" json:"type"`
	Title       string    `gorm:"size:150;not null" json:"title"`
	Body        string    `gorm:"type:text" json:"body"`
	ReferenceID string    `gorm:"size:100" json:"reference_id"`
	IsRead      bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
