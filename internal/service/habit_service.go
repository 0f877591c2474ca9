package service

import (
	"context"
	"log"
	"time"

	"github.com/arisehq/levelup/internal/dto"
	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/internal/rules"
	"github.com/arisehq/levelup/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type HabitService interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.CreateHabitRequest) (*dto.HabitMutationResponse, error)
	List(ctx context.Context, userID uuid.UUID) ([]*model.Habit, error)
	Get(ctx context.Context, userID, habitID uuid.UUID) (*model.Habit, error)
	Update(ctx context.Context, userID, habitID uuid.UUID, req dto.UpdateHabitRequest) (*model.Habit, error)
	Toggle(ctx context.Context, userID, habitID uuid.UUID) (*dto.HabitMutationResponse, error)
	Delete(ctx context.Context, userID, habitID uuid.UUID) error

	AddStep(ctx context.Context, userID, habitID uuid.UUID, req dto.AddStepRequest) (*model.HabitStep, error)
	ToggleStep(ctx context.Context, userID, stepID uuid.UUID) (*dto.HabitMutationResponse, error)
	RenameStep(ctx context.Context, userID, stepID uuid.UUID, title string) error
	DeleteStep(ctx context.Context, userID, stepID uuid.UUID) error
}

type habitService struct {
	habitRepo      repository.HabitRepository
	completionRepo repository.CompletionRepository
	badges         BadgeService
	search         SearchService
	notifier       NotificationService
	rdb            *redis.Client
	toggleLimit    time.Duration
}

func NewHabitService(
	habitRepo repository.HabitRepository,
	completionRepo repository.CompletionRepository,
	badges BadgeService,
	search SearchService,
	notifier NotificationService,
	rdb *redis.Client,
	toggleLimit time.Duration,
) HabitService {
	return &habitService{
		habitRepo:      habitRepo,
		completionRepo: completionRepo,
		badges:         badges,
		search:         search,
		notifier:       notifier,
		rdb:            rdb,
		toggleLimit:    toggleLimit,
	}
}

func (s *habitService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateHabitRequest) (*dto.HabitMutationResponse, error) {
	habit := &model.Habit{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Frequency != "" {
		habit.Frequency = req.Frequency
	}
	for i, step := range req.Steps {
		habit.Steps = append(habit.Steps, model.HabitStep{
			Title: step.Title,
			Order: i,
		})
	}

	if err := s.habitRepo.Create(ctx, habit); err != nil {
		return nil, err
	}

	s.indexHabit(habit)

	resp := &dto.HabitMutationResponse{Habit: habit}

	// Creating habits is itself a badge trigger (collection-building).
	if s.badges != nil {
		count, err := s.habitRepo.CountByUser(ctx, userID)
		if err == nil {
			unlocked, evalErr := s.badges.Evaluate(ctx, userID, BadgeTrigger{CreatedHabits: count})
			if evalErr != nil {
				log.Printf("badge evaluation failed for user %s: %v", userID, evalErr)
			} else {
				resp.UnlockedBadges = unlocked
			}
		}
	}

	return resp, nil
}

func (s *habitService) List(ctx context.Context, userID uuid.UUID) ([]*model.Habit, error) {
	return s.habitRepo.FindAllByUser(ctx, userID)
}

func (s *habitService) Get(ctx context.Context, userID, habitID uuid.UUID) (*model.Habit, error) {
	habit, err := s.habitRepo.FindByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return habit, nil
}

// Update applies non-completion edits only; the completion flag and its
// reward bookkeeping always go through Toggle/ToggleStep.
func (s *habitService) Update(ctx context.Context, userID, habitID uuid.UUID, req dto.UpdateHabitRequest) (*model.Habit, error) {
	habit, err := s.habitRepo.FindByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, apperror.ErrForbidden
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.Frequency != nil {
		fields["frequency"] = *req.Frequency
	}

	if len(fields) > 0 {
		if err := s.habitRepo.UpdateFields(ctx, habitID, fields); err != nil {
			return nil, err
		}
	}

	updated, err := s.habitRepo.FindByID(ctx, habitID)
	if err != nil {
		return nil, err
	}

	s.indexHabit(updated)
	return updated, nil
}

func (s *habitService) Toggle(ctx context.Context, userID, habitID uuid.UUID) (*dto.HabitMutationResponse, error) {
	if err := s.guardToggle(ctx, userID); err != nil {
		return nil, err
	}

	outcome, err := s.completionRepo.ToggleHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	return s.afterMutation(ctx, userID, outcome), nil
}

func (s *habitService) Delete(ctx context.Context, userID, habitID uuid.UUID) error {
	habit, err := s.habitRepo.FindByID(ctx, habitID)
	if err != nil {
		return err
	}
	if habit.UserID != userID {
		return apperror.ErrForbidden
	}

	if err := s.habitRepo.Delete(ctx, habitID); err != nil {
		return err
	}

	if s.search != nil {
		if err := s.search.DeleteHabit(habitID.String()); err != nil {
			log.Printf("failed to remove habit %s from search index: %v", habitID, err)
		}
	}
	return nil
}

func (s *habitService) AddStep(ctx context.Context, userID, habitID uuid.UUID, req dto.AddStepRequest) (*model.HabitStep, error) {
	habit, err := s.habitRepo.FindByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, apperror.ErrForbidden
	}

	step := &model.HabitStep{
		HabitID: habitID,
		Title:   req.Title,
	}
	if err := s.habitRepo.CreateStep(ctx, step); err != nil {
		return nil, err
	}
	return step, nil
}

func (s *habitService) ToggleStep(ctx context.Context, userID, stepID uuid.UUID) (*dto.HabitMutationResponse, error) {
	if err := s.guardToggle(ctx, userID); err != nil {
		return nil, err
	}

	outcome, err := s.completionRepo.ToggleHabitStep(ctx, stepID, userID)
	if err != nil {
		return nil, err
	}

	return s.afterMutation(ctx, userID, outcome), nil
}

func (s *habitService) RenameStep(ctx context.Context, userID, stepID uuid.UUID, title string) error {
	step, err := s.habitRepo.FindStepByID(ctx, stepID)
	if err != nil {
		return err
	}
	habit, err := s.habitRepo.FindByID(ctx, step.HabitID)
	if err != nil {
		return err
	}
	if habit.UserID != userID {
		return apperror.ErrForbidden
	}
	return s.habitRepo.UpdateStepTitle(ctx, stepID, title)
}

func (s *habitService) DeleteStep(ctx context.Context, userID, stepID uuid.UUID) error {
	step, err := s.habitRepo.FindStepByID(ctx, stepID)
	if err != nil {
		return err
	}
	habit, err := s.habitRepo.FindByID(ctx, step.HabitID)
	if err != nil {
		return err
	}
	if habit.UserID != userID {
		return apperror.ErrForbidden
	}
	return s.habitRepo.DeleteStep(ctx, stepID)
}

func (s *habitService) guardToggle(ctx context.Context, userID uuid.UUID) error {
	allowed, err := CheckAndSetRateLimit(ctx, s.rdb, userID, "habit_toggle", s.toggleLimit)
	if err != nil {
		log.Printf("rate limit check failed for user %s: %v", userID, err)
		return nil
	}
	if !allowed {
		return apperror.ErrRateLimitExceeded
	}
	return nil
}

func (s *habitService) afterMutation(ctx context.Context, userID uuid.UUID, outcome *repository.HabitOutcome) *dto.HabitMutationResponse {
	resp := &dto.HabitMutationResponse{Habit: outcome.Habit}

	s.indexHabit(outcome.Habit)

	if outcome.Transition == rules.TransitionCompleted {
		notifyRankUp(ctx, s.notifier, userID, outcome.XPBefore, outcome.XPAfter)
	}

	if outcome.Transition == rules.TransitionCompleted && s.badges != nil {
		logs, err := s.habitRepo.CountCompletedLogs(ctx, userID)
		if err != nil {
			log.Printf("failed to count habit logs for user %s: %v", userID, err)
			return resp
		}
		unlocked, err := s.badges.Evaluate(ctx, userID, BadgeTrigger{
			Streak:             outcome.Habit.CurrentStreak,
			CompletedHabitLogs: logs,
		})
		if err != nil {
			log.Printf("badge evaluation failed for user %s: %v", userID, err)
			return resp
		}
		resp.UnlockedBadges = unlocked
	}

	return resp
}

func (s *habitService) indexHabit(habit *model.Habit) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexHabit(habit); err != nil {
		log.Printf("failed to index habit %s: %v", habit.ID, err)
	}
}
