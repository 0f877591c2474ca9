package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GoalStatusTodo       = "TODO"
	GoalStatusInProgress = "IN_PROGRESS"
	GoalStatusDone       = "DONE"
	GoalStatusCancelled  = "CANCELLED"
)

const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

type Goal struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Title       string     `gorm:"size:150;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	Category    *string    `gorm:"size:50" json:"category,omitempty"`
	Priority    string     `gorm:"size:10;not null;default:MEDIUM" json:"priority"`
	Status      string     `gorm:"size:15;not null;default:TODO" json:"status"`
	// XPReward is fixed at creation; the reward ledger relies on it never
	// changing so completion and reversal move XP by the same amount.
	XPReward  int        `gorm:"not null;default:50" json:"xp_reward"`
	StartDate time.Time  `json:"start_date"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Steps     []Step     `gorm:"constraint:OnDelete:CASCADE" json:"steps"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// IsDone reports whether the goal currently holds completed status.
func (g *Goal) IsDone() bool {
	return g.Status == GoalStatusDone
}

type Step struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GoalID      uuid.UUID `gorm:"type:uuid;index;not null" json:"goal_id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Title       string    `gorm:"size:150;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	// Order is unique within a goal and drives display/validation precedence
	// only; completion logic never consults it.
	Order       int       `gorm:"not null;default:0" json:"order"`
	IsCompleted bool      `gorm:"not null;default:false" json:"is_completed"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Step) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
