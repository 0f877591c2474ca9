package service

import (
	"context"
	"testing"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedBadgeCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	repo := repository.NewBadgeRepository(db)
	require.NoError(t, repo.UpsertCatalog(context.Background(), []model.Badge{
		{Name: "First Goal", Condition: "first_goal_completed"},
		{Name: "Five Goals", Condition: "5_goals_completed"},
		{Name: "Two Day Run", Condition: "2_days_streak"},
		{Name: "Week Run", Condition: "7_days_streak"},
	}))
}

func testUserID(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	user := &model.User{
		Username:     "hunter-" + uuid.NewString()[:8],
		Email:        uuid.NewString() + "@test.local",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}

func TestBadgeEvaluate_UnlocksSatisfiedConditions(t *testing.T) {
	db := testutil.OpenTestDB(t)
	seedBadgeCatalog(t, db)
	svc := NewBadgeService(repository.NewBadgeRepository(db), nil)
	userID := testUserID(t, db)

	unlocked, err := svc.Evaluate(context.Background(), userID, BadgeTrigger{CompletedGoals: 1})
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_goal_completed", unlocked[0].Condition)
}

func TestBadgeEvaluate_Idempotent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	seedBadgeCatalog(t, db)
	svc := NewBadgeService(repository.NewBadgeRepository(db), nil)
	userID := testUserID(t, db)

	unlocked, err := svc.Evaluate(context.Background(), userID, BadgeTrigger{CompletedGoals: 2})
	require.NoError(t, err)
	require.Len(t, unlocked, 1)

	// Same or higher counters never re-unlock.
	unlocked, err = svc.Evaluate(context.Background(), userID, BadgeTrigger{CompletedGoals: 3})
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}

func TestBadgeEvaluate_ThresholdJumpUnlocksEveryTier(t *testing.T) {
	db := testutil.OpenTestDB(t)
	seedBadgeCatalog(t, db)
	svc := NewBadgeService(repository.NewBadgeRepository(db), nil)
	userID := testUserID(t, db)

	unlocked, err := svc.Evaluate(context.Background(), userID, BadgeTrigger{Streak: 7})
	require.NoError(t, err)
	assert.Len(t, unlocked, 2)
}

func TestBadgeEvaluate_ZeroTriggerIsNoOp(t *testing.T) {
	db := testutil.OpenTestDB(t)
	seedBadgeCatalog(t, db)
	svc := NewBadgeService(repository.NewBadgeRepository(db), nil)
	userID := testUserID(t, db)

	unlocked, err := svc.Evaluate(context.Background(), userID, BadgeTrigger{})
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}
