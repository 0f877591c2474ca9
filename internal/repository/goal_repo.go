package repository

import (
	"context"
	"errors"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Goal, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID, status string) ([]*model.Goal, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountCompleted(ctx context.Context, userID uuid.UUID) (int64, error)

	CreateStep(ctx context.Context, step *model.Step) error
	FindStepByID(ctx context.Context, id uuid.UUID) (*model.Step, error)
	UpdateStepTitle(ctx context.Context, id uuid.UUID, title string) error
	DeleteStep(ctx context.Context, id uuid.UUID) error
}

type goalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(ctx context.Context, goal *model.Goal) error {
	// Steps are created through the association so the goal and its ordered
	// children land in one transaction.
	return r.db.WithContext(ctx).Create(goal).Error
}

func (r *goalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Goal, error) {
	var goal model.Goal
	if err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Where("id = ?", id).
		First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepository) FindAllByUser(ctx context.Context, userID uuid.UUID, status string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Where("user_id = ?", userID)

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Order("created_at DESC").Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *goalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", id).Delete(&model.Step{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Goal{}, "id = ?", id).Error
	})
}

func (r *goalRepository) CountCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Where("user_id = ? AND status = ?", userID, model.GoalStatusDone).
		Count(&count).Error
	return count, err
}

func (r *goalRepository) CreateStep(ctx context.Context, step *model.Step) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Next order slot within the goal; display precedence only.
		var maxOrder *int
		if err := tx.Model(&model.Step{}).
			Where("goal_id = ?", step.GoalID).
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

func (r *goalRepository) FindStepByID(ctx context.Context, id uuid.UUID) (*model.Step, error) {
	var step model.Step
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &step, nil
}

func (r *goalRepository) UpdateStepTitle(ctx context.Context, id uuid.UUID, title string) error {
	return r.db.WithContext(ctx).
		Model(&model.Step{}).
		Where("id = ?", id).
		Update("title", title).Error
}

func (r *goalRepository) DeleteStep(ctx context.Context, id uuid.UUID) error {
	// Deleting the last incomplete step does NOT flip the parent; the parent
	// flag only moves on toggles.
	return r.db.WithContext(ctx).Delete(&model.Step{}, "id = ?", id).Error
}
