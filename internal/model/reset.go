package model

import "time"

// ResetRun marks that the daily reset batch already ran for a calendar day
// (Day is "2006-01-02"). The batch inserts it first; a re-run for the same
// day sees the row and becomes a no-op, so a crashed batch is safe to retry.
type ResetRun struct {
	Day   string    `gorm:"size:10;primaryKey" json:"day"`
	RanAt time.Time `gorm:"not null" json:"ran_at"`
}
