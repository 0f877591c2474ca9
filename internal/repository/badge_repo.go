package repository

import (
	"context"
	"time"

	"github.com/arisehq/levelup/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository interface {
	FindByConditions(ctx context.Context, conditions []string) ([]model.Badge, error)
	ListUserBadges(ctx context.Context, userID uuid.UUID) ([]model.UserBadge, error)
	HasUserBadge(ctx context.Context, userID uuid.UUID, badgeID uint) (bool, error)
	Unlock(ctx context.Context, userID uuid.UUID, badgeID uint, at time.Time) (bool, error)
	UpsertCatalog(ctx context.Context, badges []model.Badge) error
}

type badgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) FindByConditions(ctx context.Context, conditions []string) ([]model.Badge, error) {
	var badges []model.Badge
	if len(conditions) == 0 {
		return badges, nil
	}
	if err := r.db.WithContext(ctx).
		Where("condition IN ?", conditions).
		Find(&badges).Error; err != nil {
		return nil, err
	}
	return badges, nil
}

func (r *badgeRepository) ListUserBadges(ctx context.Context, userID uuid.UUID) ([]model.UserBadge, error) {
	var unlocked []model.UserBadge
	if err := r.db.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("unlocked_at DESC").
		Find(&unlocked).Error; err != nil {
		return nil, err
	}
	return unlocked, nil
}

func (r *badgeRepository) HasUserBadge(ctx context.Context, userID uuid.UUID, badgeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Unlock inserts the (user, badge) pair if absent and reports whether a row
// was actually created. The unique index absorbs concurrent evaluators, so
// re-running with the same counters never double-unlocks.
func (r *badgeRepository) Unlock(ctx context.Context, userID uuid.UUID, badgeID uint, at time.Time) (bool, error) {
	userBadge := model.UserBadge{
		UserID:     userID,
		BadgeID:    badgeID,
		UnlockedAt: at,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(&userBadge)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpsertCatalog seeds the static badge catalog; reseeding an existing name
// is a no-op.
func (r *badgeRepository) UpsertCatalog(ctx context.Context, badges []model.Badge) error {
	for i := range badges {
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).
			Create(&badges[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
