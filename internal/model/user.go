package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	XP           int       `gorm:"not null;default:0" json:"xp"`
	Streak       int       `gorm:"not null;default:0" json:"streak"`
	BestStreak   int       `gorm:"not null;default:0" json:"best_streak"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	// UpdatedAt doubles as the last-qualifying-action timestamp for the
	// day-guarded streak rule; only reward-bearing writes touch this row.
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
