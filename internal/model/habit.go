package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FrequencyDaily  = "DAILY"
	FrequencyWeekly = "WEEKLY"
)

type Habit struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Title       string    `gorm:"size:150;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Category    string    `gorm:"size:50;not null" json:"category"`
	Frequency   string    `gorm:"size:10;not null;default:DAILY" json:"frequency"`
	// XPReward is fixed at creation, same contract as Goal.XPReward.
	XPReward         int         `gorm:"not null;default:5" json:"xp_reward"`
	IsCompletedToday bool        `gorm:"not null;default:false" json:"is_completed_today"`
	CurrentStreak    int         `gorm:"not null;default:0" json:"current_streak"`
	LastCompletedAt  *time.Time  `json:"last_completed_at,omitempty"`
	Steps            []HabitStep `gorm:"constraint:OnDelete:CASCADE" json:"steps"`
	Logs             []HabitLog  `gorm:"constraint:OnDelete:CASCADE" json:"habit_logs"`
	CreatedAt        time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

type HabitStep struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HabitID     uuid.UUID `gorm:"type:uuid;index;not null" json:"habit_id"`
	Title       string    `gorm:"size:150;not null" json:"title"`
	Order       int       `gorm:"not null;default:0" json:"order"`
	IsCompleted bool      `gorm:"not null;default:false" json:"is_completed"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *HabitStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// HabitLog records one completed calendar day per habit. The unique index on
// (habit_id, date) is what makes same-day completion idempotent at the store
// level.
type HabitLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	HabitID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_habit_day,priority:1;not null" json:"habit_id"`
	Date        time.Time `gorm:"type:date;uniqueIndex:idx_habit_day,priority:2;not null" json:"date"`
	IsCompleted bool      `gorm:"not null;default:true" json:"is_completed"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
