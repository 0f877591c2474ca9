package dto

import "github.com/arisehq/levelup/internal/rules"

type UserStatusResponse struct {
	XP         int              `json:"xp"`
	Streak     int              `json:"streak"`
	BestStreak int              `json:"best_streak"`
	Rank       rules.RankStatus `json:"rank"`
}

type SearchHit struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"` // "goal" or "habit"
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
}
