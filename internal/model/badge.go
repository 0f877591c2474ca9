package model

import (
	"time"

	"github.com/google/uuid"
)

// Badge is static catalog data, seeded once and upserted by name on reseed.
// Condition is a symbolic key ("7_days_streak") resolved by the evaluator's
// closed condition set, not by dynamic dispatch.
type Badge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"size:255" json:"icon"`
	Condition   string    `gorm:"size:50;index;not null" json:"condition"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type UserBadge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_badge,priority:1;not null" json:"user_id"`
	BadgeID    uint      `gorm:"uniqueIndex:idx_user_badge,priority:2;not null" json:"badge_id"`
	Badge      Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
	UnlockedAt time.Time `gorm:"not null" json:"unlocked_at"`
}
