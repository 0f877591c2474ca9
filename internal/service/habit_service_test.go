package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arisehq/levelup/internal/dto"
	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newHabitService(t *testing.T, db *gorm.DB) HabitService {
	t.Helper()
	badges := NewBadgeService(repository.NewBadgeRepository(db), nil)
	return NewHabitService(
		repository.NewHabitRepository(db),
		repository.NewCompletionRepository(db),
		badges,
		nil, // search
		nil, // notifier
		nil, // redis
		time.Second,
	)
}

func TestHabitService_ToggleUnlocksFirstHabitBadge(t *testing.T) {
	db := testutil.OpenTestDB(t)
	require.NoError(t, repository.NewBadgeRepository(db).UpsertCatalog(context.Background(), []model.Badge{
		{Name: "First Habit", Condition: "first_habit_completed"},
	}))
	svc := newHabitService(t, db)
	userID := testUserID(t, db)

	created, err := svc.Create(context.Background(), userID, dto.CreateHabitRequest{
		Title:    "cold shower",
		Category: "health",
	})
	require.NoError(t, err)

	resp, err := svc.Toggle(context.Background(), userID, created.Habit.ID)
	require.NoError(t, err)

	assert.True(t, resp.Habit.IsCompletedToday)
	require.Len(t, resp.UnlockedBadges, 1)
	assert.Equal(t, "first_habit_completed", resp.UnlockedBadges[0].Condition)
}

func TestHabitService_FifthCreateUnlocksCollectorBadge(t *testing.T) {
	db := testutil.OpenTestDB(t)
	require.NoError(t, repository.NewBadgeRepository(db).UpsertCatalog(context.Background(), []model.Badge{
		{Name: "Collector", Condition: "5_habits_created"},
	}))
	svc := newHabitService(t, db)
	userID := testUserID(t, db)

	for i := 0; i < 4; i++ {
		resp, err := svc.Create(context.Background(), userID, dto.CreateHabitRequest{
			Title:    fmt.Sprintf("habit %d", i),
			Category: "misc",
		})
		require.NoError(t, err)
		assert.Empty(t, resp.UnlockedBadges)
	}

	resp, err := svc.Create(context.Background(), userID, dto.CreateHabitRequest{
		Title:    "habit 5",
		Category: "misc",
	})
	require.NoError(t, err)
	require.Len(t, resp.UnlockedBadges, 1)
	assert.Equal(t, "5_habits_created", resp.UnlockedBadges[0].Condition)
}

func TestHabitService_UpdateNeverTouchesCompletionState(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := newHabitService(t, db)
	userID := testUserID(t, db)

	created, err := svc.Create(context.Background(), userID, dto.CreateHabitRequest{
		Title:    "read",
		Category: "mind",
	})
	require.NoError(t, err)

	_, err = svc.Toggle(context.Background(), userID, created.Habit.ID)
	require.NoError(t, err)

	newTitle := "read fiction"
	updated, err := svc.Update(context.Background(), userID, created.Habit.ID, dto.UpdateHabitRequest{Title: &newTitle})
	require.NoError(t, err)

	assert.Equal(t, "read fiction", updated.Title)
	assert.True(t, updated.IsCompletedToday)
	assert.Equal(t, 1, updated.CurrentStreak)
}
