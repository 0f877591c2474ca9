package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/internal/rules"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *model.Notification) error
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, id uint, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

// NotificationChannel is the per-user Redis pub/sub channel the websocket
// handler subscribes to.
func NotificationChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

func (s *notificationService) CreateNotification(ctx context.Context, notification *model.Notification) error {
	// 1. Save to DB
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	// 2. Publish to Redis if Redis is available
	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err == nil {
			s.redisClient.Publish(ctx, NotificationChannel(notification.UserID), payload)
		}
	}

	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id uint, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// notifyRankUp emits a rank_up notification when the XP move crossed a rank
// threshold upward. Best effort: a failed write never rolls back the toggle.
func notifyRankUp(ctx context.Context, notifier NotificationService, userID uuid.UUID, xpBefore, xpAfter int) {
	if notifier == nil || xpAfter <= xpBefore {
		return
	}
	before := rules.GetRankStatus(xpBefore)
	after := rules.GetRankStatus(xpAfter)
	if before.RankName == after.RankName {
		return
	}

	notification := &model.Notification{
		UserID: userID,
		Type:   model.NotificationRankUp,
		Title:  "Rank up!",
		Body:   fmt.Sprintf("You advanced from %s to %s.", before.RankName, after.RankName),
	}
	if err := notifier.CreateNotification(ctx, notification); err != nil {
		log.Printf("failed to create rank up notification for user %s: %v", userID, err)
	}
}
