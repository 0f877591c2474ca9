package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/google/uuid"
)

// BadgeTrigger carries the counters a committed completion produced. Only
// the fields relevant to the trigger need to be set; zero values never
// satisfy any condition.
type BadgeTrigger struct {
	Streak             int
	CompletedGoals     int64
	CompletedHabitLogs int64
	CreatedHabits      int64
}

// The condition catalog is a closed, enumerable set keyed by the symbolic
// strings stored on Badge rows. Thresholds live here, not in the database.
var conditionChecks = []struct {
	key       string
	satisfied func(BadgeTrigger) bool
}{
	{"first_habit_completed", func(t BadgeTrigger) bool { return t.CompletedHabitLogs >= 1 }},
	{"first_goal_completed", func(t BadgeTrigger) bool { return t.CompletedGoals >= 1 }},
	{"5_goals_completed", func(t BadgeTrigger) bool { return t.CompletedGoals >= 5 }},
	{"10_goals_completed", func(t BadgeTrigger) bool { return t.CompletedGoals >= 10 }},
	{"2_days_streak", func(t BadgeTrigger) bool { return t.Streak >= 2 }},
	{"7_days_streak", func(t BadgeTrigger) bool { return t.Streak >= 7 }},
	{"30_days_streak", func(t BadgeTrigger) bool { return t.Streak >= 30 }},
	{"5_habits_created", func(t BadgeTrigger) bool { return t.CreatedHabits >= 5 }},
}

type BadgeService interface {
	// Evaluate unlocks every badge whose condition the trigger satisfies and
	// returns only the newly unlocked ones. Re-running with the same or
	// higher counters is a no-op.
	Evaluate(ctx context.Context, userID uuid.UUID, trigger BadgeTrigger) ([]model.Badge, error)
	ListUserBadges(ctx context.Context, userID uuid.UUID) ([]model.UserBadge, error)
}

type badgeService struct {
	repo     repository.BadgeRepository
	notifier NotificationService
}

func NewBadgeService(repo repository.BadgeRepository, notifier NotificationService) BadgeService {
	return &badgeService{repo: repo, notifier: notifier}
}

func (s *badgeService) Evaluate(ctx context.Context, userID uuid.UUID, trigger BadgeTrigger) ([]model.Badge, error) {
	var conditions []string
	for _, check := range conditionChecks {
		if check.satisfied(trigger) {
			conditions = append(conditions, check.key)
		}
	}
	if len(conditions) == 0 {
		return nil, nil
	}

	eligible, err := s.repo.FindByConditions(ctx, conditions)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var unlocked []model.Badge
	for _, badge := range eligible {
		created, err := s.repo.Unlock(ctx, userID, badge.ID, now)
		if err != nil {
			return unlocked, err
		}
		if !created {
			continue
		}
		unlocked = append(unlocked, badge)

		if s.notifier != nil {
			notification := &model.Notification{
				UserID:      userID,
				Type:        model.NotificationBadgeUnlocked,
				Title:       "Badge unlocked!",
				Body:        fmt.Sprintf("%s: %s", badge.Name, badge.Description),
				ReferenceID: fmt.Sprintf("%d", badge.ID),
			}
			if err := s.notifier.CreateNotification(ctx, notification); err != nil {
				// Best effort; the unlock itself is already durable.
				log.Printf("failed to notify badge unlock for user %s: %v", userID, err)
			}
		}
	}

	return unlocked, nil
}

func (s *badgeService) ListUserBadges(ctx context.Context, userID uuid.UUID) ([]model.UserBadge, error) {
	return s.repo.ListUserBadges(ctx, userID)
}
