package repository

import (
	"context"
	"errors"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HabitRepository interface {
	Create(ctx context.Context, habit *model.Habit) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Habit, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*model.Habit, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountCompletedLogs(ctx context.Context, userID uuid.UUID) (int64, error)

	CreateStep(ctx context.Context, step *model.HabitStep) error
	FindStepByID(ctx context.Context, id uuid.UUID) (*model.HabitStep, error)
	UpdateStepTitle(ctx context.Context, id uuid.UUID, title string) error
	DeleteStep(ctx context.Context, id uuid.UUID) error
}

type habitRepository struct {
	db *gorm.DB
}

func NewHabitRepository(db *gorm.DB) HabitRepository {
	return &habitRepository{db: db}
}

func (r *habitRepository) Create(ctx context.Context, habit *model.Habit) error {
	return r.db.WithContext(ctx).Create(habit).Error
}

func (r *habitRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Habit, error) {
	var habit model.Habit
	if err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Preload("Logs", func(db *gorm.DB) *gorm.DB {
			return db.Order("date DESC")
		}).
		Where("id = ?", id).
		First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &habit, nil
}

func (r *habitRepository) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*model.Habit, error) {
	var habits []*model.Habit
	if err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Preload("Logs", func(db *gorm.DB) *gorm.DB {
			return db.Order("date DESC")
		}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&habits).Error; err != nil {
		return nil, err
	}
	return habits, nil
}

// UpdateFields applies non-completion edits (title, description, category,
// frequency). Completion transitions go through the coordinator.
func (r *habitRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Habit{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *habitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", id).Delete(&model.HabitStep{}).Error; err != nil {
			return err
		}
		if err := tx.Where("habit_id = ?", id).Delete(&model.HabitLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Habit{}, "id = ?", id).Error
	})
}

func (r *habitRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Habit{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *habitRepository) CountCompletedLogs(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.HabitLog{}).
		Joins("JOIN habits ON habits.id = habit_logs.habit_id").
		Where("habits.user_id = ? AND habit_logs.is_completed = ?", userID, true).
		Count(&count).Error
	return count, err
}

func (r *habitRepository) CreateStep(ctx context.Context, step *model.HabitStep) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder *int
		if err := tx.Model(&model.HabitStep{}).
			Where("habit_id = ?", step.HabitID).
			Select("MAX(\"order\")").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		if maxOrder != nil {
			step.Order = *maxOrder + 1
		}
		return tx.Create(step).Error
	})
}

func (r *habitRepository) FindStepByID(ctx context.Context, id uuid.UUID) (*model.HabitStep, error) {
	var step model.HabitStep
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &step, nil
}

func (r *habitRepository) UpdateStepTitle(ctx context.Context, id uuid.UUID, title string) error {
	return r.db.WithContext(ctx).
		Model(&model.HabitStep{}).
		Where("id = ?", id).
		Update("title", title).Error
}

func (r *habitRepository) DeleteStep(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.HabitStep{}, "id = ?", id).Error
}
