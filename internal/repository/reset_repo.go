package repository

import (
	"context"
	"time"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/rules"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResetRepository interface {
	// ResetDay runs the daily reset for now's calendar day and reports
	// whether it actually ran. Re-running for an already-marked day is a
	// no-op, so a batch that crashed mid-run is safe to retry.
	ResetDay(ctx context.Context, now time.Time) (bool, error)
}

type resetRepository struct {
	db *gorm.DB
}

func NewResetRepository(db *gorm.DB) ResetRepository {
	return &resetRepository{db: db}
}

func (r *resetRepository) ResetDay(ctx context.Context, now time.Time) (bool, error) {
	ran := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The marker insert and the resets commit together; either the whole
		// day's reset is durable or none of it is.
		marker := model.ResetRun{Day: rules.DayKey(now), RanAt: now}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}},
			DoNothing: true,
		}).Create(&marker)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already ran for this day.
			return nil
		}
		ran = true

		// Streaks break for habits not completed yesterday or today. The
		// zeroing is absolute, not arithmetic, so re-runs cannot
		// double-decrement.
		cutoff := rules.StartOfDay(now).AddDate(0, 0, -1)
		if err := tx.Model(&model.Habit{}).
			Where("last_completed_at IS NULL OR last_completed_at < ?", cutoff).
			Where("current_streak > 0").
			Update("current_streak", 0).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Habit{}).
			Where("is_completed_today = ?", true).
			Update("is_completed_today", false).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.HabitStep{}).
			Where("is_completed = ?", true).
			Update("is_completed", false).Error; err != nil {
			return err
		}

		// User streaks decay the same way: no qualifying action since
		// yesterday means the run is over.
		if err := tx.Model(&model.User{}).
			Where("updated_at < ?", cutoff).
			Where("streak > 0").
			UpdateColumn("streak", 0).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return false, translateTxError(err)
	}
	return ran, nil
}
