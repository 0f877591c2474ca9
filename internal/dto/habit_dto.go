package dto

import "github.com/arisehq/levelup/internal/model"

type CreateHabitRequest struct {
	Title       string      `json:"title" binding:"required,min=1,max=150"`
	Description *string     `json:"description"`
	Category    string      `json:"category" binding:"required,min=1,max=50"`
	Frequency   string      `json:"frequency" binding:"omitempty,oneof=DAILY WEEKLY"`
	Steps       []StepInput `json:"steps" binding:"omitempty,dive"`
}

type UpdateHabitRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=150"`
	Description *string `json:"description"`
	Category    *string `json:"category" binding:"omitempty,min=1,max=50"`
	Frequency   *string `json:"frequency" binding:"omitempty,oneof=DAILY WEEKLY"`
}

type HabitMutationResponse struct {
	Habit          *model.Habit  `json:"habit"`
	UnlockedBadges []model.Badge `json:"unlocked_badges,omitempty"`
}
