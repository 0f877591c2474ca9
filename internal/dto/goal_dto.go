package dto

import (
	"time"

	"github.com/arisehq/levelup/internal/model"
)

type StepInput struct {
	Title       string  `json:"title" binding:"required,min=1,max=150"`
	Description *string `json:"description"`
}

type CreateGoalRequest struct {
	Title       string      `json:"title" binding:"required,min=1,max=150"`
	Description *string     `json:"description"`
	Category    *string     `json:"category"`
	Priority    string      `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	StartDate   *time.Time  `json:"start_date"`
	Deadline    *time.Time  `json:"deadline"`
	Steps       []StepInput `json:"steps" binding:"omitempty,dive"`
}

type UpdateGoalRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=150"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Priority    *string    `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	Status      *string    `json:"status" binding:"omitempty,oneof=TODO IN_PROGRESS DONE CANCELLED"`
	StartDate   *time.Time `json:"start_date"`
	Deadline    *time.Time `json:"deadline"`
}

type AddStepRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=150"`
	Description *string `json:"description"`
}

type RenameStepRequest struct {
	Title string `json:"title" binding:"required,min=1,max=150"`
}

// GoalMutationResponse is the fully-hydrated parent snapshot returned by
// every completion-affecting operation, so the caller can render consistent
// state without a second round trip.
type GoalMutationResponse struct {
	Goal           *model.Goal   `json:"goal"`
	UnlockedBadges []model.Badge `json:"unlocked_badges,omitempty"`
}
