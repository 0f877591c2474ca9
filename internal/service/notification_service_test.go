package service

import (
	"context"
	"testing"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/internal/testutil"
	"github.com/arisehq/levelup/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyRankUp_CreatesNotificationOnCrossing(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil)
	userID := testUserID(t, db)

	// 450 -> 550 crosses the Rank D threshold.
	notifyRankUp(context.Background(), svc, userID, 450, 550)

	notifications, err := svc.GetNotifications(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationRankUp, notifications[0].Type)
	assert.Contains(t, notifications[0].Body, "Rank D")
}

func TestNotifyRankUp_NoNotificationWithinRank(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil)
	userID := testUserID(t, db)

	notifyRankUp(context.Background(), svc, userID, 100, 200)

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotifyRankUp_ReversalNeverNotifies(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil)
	userID := testUserID(t, db)

	notifyRankUp(context.Background(), svc, userID, 550, 450)

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAsRead_ScopedToOwner(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil)
	ownerID := testUserID(t, db)
	intruderID := testUserID(t, db)

	notification := &model.Notification{
		UserID: ownerID,
		Type:   model.NotificationBadgeUnlocked,
		Title:  "Badge unlocked",
	}
	require.NoError(t, svc.CreateNotification(context.Background(), notification))

	// Another user's id on the same notification reads as not found and
	// leaves it unread.
	err := svc.MarkAsRead(context.Background(), notification.ID, intruderID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	count, err := svc.UnreadCount(context.Background(), ownerID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, svc.MarkAsRead(context.Background(), notification.ID, ownerID))

	count, err = svc.UnreadCount(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAllAsRead(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil)
	userID := testUserID(t, db)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.CreateNotification(context.Background(), &model.Notification{
			UserID: userID,
			Type:   model.NotificationBadgeUnlocked,
			Title:  "Badge unlocked",
		}))
	}

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	require.NoError(t, svc.MarkAllAsRead(context.Background(), userID))

	count, err = svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
