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

type GoalService interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.CreateGoalRequest) (*model.Goal, error)
	List(ctx context.Context, userID uuid.UUID, status string) ([]*model.Goal, error)
	Get(ctx context.Context, userID, goalID uuid.UUID) (*model.Goal, error)
	Update(ctx context.Context, userID, goalID uuid.UUID, req dto.UpdateGoalRequest) (*dto.GoalMutationResponse, error)
	Toggle(ctx context.Context, userID, goalID uuid.UUID) (*dto.GoalMutationResponse, error)
	Delete(ctx context.Context, userID, goalID uuid.UUID) error

	AddStep(ctx context.Context, userID, goalID uuid.UUID, req dto.AddStepRequest) (*model.Step, error)
	ToggleStep(ctx context.Context, userID, stepID uuid.UUID) (*dto.GoalMutationResponse, error)
	RenameStep(ctx context.Context, userID, stepID uuid.UUID, title string) error
	DeleteStep(ctx context.Context, userID, stepID uuid.UUID) error
}

type goalService struct {
	goalRepo       repository.GoalRepository
	completionRepo repository.CompletionRepository
	badges         BadgeService
	search         SearchService
	notifier       NotificationService
	rdb            *redis.Client
	toggleLimit    time.Duration
}

func NewGoalService(
	goalRepo repository.GoalRepository,
	completionRepo repository.CompletionRepository,
	badges BadgeService,
	search SearchService,
	notifier NotificationService,
	rdb *redis.Client,
	toggleLimit time.Duration,
) GoalService {
	return &goalService{
		goalRepo:       goalRepo,
		completionRepo: completionRepo,
		badges:         badges,
		search:         search,
		notifier:       notifier,
		rdb:            rdb,
		toggleLimit:    toggleLimit,
	}
}

func (s *goalService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateGoalRequest) (*model.Goal, error) {
	goal := &model.Goal{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Deadline:    req.Deadline,
		StartDate:   time.Now(),
	}
	if req.Priority != "" {
		goal.Priority = req.Priority
	}
	if req.StartDate != nil {
		goal.StartDate = *req.StartDate
	}
	for i, step := range req.Steps {
		goal.Steps = append(goal.Steps, model.Step{
			UserID:      userID,
			Title:       step.Title,
			Description: step.Description,
			Order:       i,
		})
	}

	if err := s.goalRepo.Create(ctx, goal); err != nil {
		return nil, err
	}

	s.indexGoal(goal)
	return goal, nil
}

func (s *goalService) List(ctx context.Context, userID uuid.UUID, status string) ([]*model.Goal, error) {
	return s.goalRepo.FindAllByUser(ctx, userID, status)
}

func (s *goalService) Get(ctx context.Context, userID, goalID uuid.UUID) (*model.Goal, error) {
	goal, err := s.goalRepo.FindByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return goal, nil
}

func (s *goalService) Update(ctx context.Context, userID, goalID uuid.UUID, req dto.UpdateGoalRequest) (*dto.GoalMutationResponse, error) {
	patch := repository.GoalPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      req.Status,
		StartDate:   req.StartDate,
		Deadline:    req.Deadline,
	}

	outcome, err := s.completionRepo.UpdateGoal(ctx, goalID, userID, patch)
	if err != nil {
		return nil, err
	}

	return s.afterMutation(ctx, userID, outcome), nil
}

func (s *goalService) Toggle(ctx context.Context, userID, goalID uuid.UUID) (*dto.GoalMutationResponse, error) {
	if err := s.guardToggle(ctx, userID); err != nil {
		return nil, err
	}

	outcome, err := s.completionRepo.ToggleGoal(ctx, goalID, userID)
	if err != nil {
		return nil, err
	}

	return s.afterMutation(ctx, userID, outcome), nil
}

func (s *goalService) Delete(ctx context.Context, userID, goalID uuid.UUID) error {
	goal, err := s.goalRepo.FindByID(ctx, goalID)
	if err != nil {
		return err
	}
	if goal.UserID != userID {
		return apperror.ErrForbidden
	}

	if err := s.goalRepo.Delete(ctx, goalID); err != nil {
		return err
	}

	if s.search != nil {
		if err := s.search.DeleteGoal(goalID.String()); err != nil {
			log.Printf("failed to remove goal %s from search index: %v", goalID, err)
		}
	}
	return nil
}

func (s *goalService) AddStep(ctx context.Context, userID, goalID uuid.UUID, req dto.AddStepRequest) (*model.Step, error) {
	goal, err := s.goalRepo.FindByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, apperror.ErrForbidden
	}

	step := &model.Step{
		GoalID:      goalID,
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.goalRepo.CreateStep(ctx, step); err != nil {
		return nil, err
	}
	return step, nil
}

func (s *goalService) ToggleStep(ctx context.Context, userID, stepID uuid.UUID) (*dto.GoalMutationResponse, error) {
	if err := s.guardToggle(ctx, userID); err != nil {
		return nil, err
	}

	outcome, err := s.completionRepo.ToggleGoalStep(ctx, stepID, userID)
	if err != nil {
		return nil, err
	}

	return s.afterMutation(ctx, userID, outcome), nil
}

func (s *goalService) RenameStep(ctx context.Context, userID, stepID uuid.UUID, title string) error {
	step, err := s.goalRepo.FindStepByID(ctx, stepID)
	if err != nil {
		return err
	}
	if step.UserID != userID {
		return apperror.ErrForbidden
	}
	return s.goalRepo.UpdateStepTitle(ctx, stepID, title)
}

func (s *goalService) DeleteStep(ctx context.Context, userID, stepID uuid.UUID) error {
	step, err := s.goalRepo.FindStepByID(ctx, stepID)
	if err != nil {
		return err
	}
	if step.UserID != userID {
		return apperror.ErrForbidden
	}
	return s.goalRepo.DeleteStep(ctx, stepID)
}

func (s *goalService) guardToggle(ctx context.Context, userID uuid.UUID) error {
	allowed, err := CheckAndSetRateLimit(ctx, s.rdb, userID, "goal_toggle", s.toggleLimit)
	if err != nil {
		// Redis being down must not block the engine.
		log.Printf("rate limit check failed for user %s: %v", userID, err)
		return nil
	}
	if !allowed {
		return apperror.ErrRateLimitExceeded
	}
	return nil
}

// afterMutation reacts to a committed coordinator outcome: refresh the
// search index and, on a completion, evaluate badges. Both are best effort
// and never undo the committed transaction.
func (s *goalService) afterMutation(ctx context.Context, userID uuid.UUID, outcome *repository.GoalOutcome) *dto.GoalMutationResponse {
	resp := &dto.GoalMutationResponse{Goal: outcome.Goal}

	s.indexGoal(outcome.Goal)

	if outcome.Transition == rules.TransitionCompleted {
		notifyRankUp(ctx, s.notifier, userID, outcome.XPBefore, outcome.XPAfter)
	}

	if outcome.Transition == rules.TransitionCompleted && s.badges != nil {
		count, err := s.goalRepo.CountCompleted(ctx, userID)
		if err != nil {
			log.Printf("failed to count completed goals for user %s: %v", userID, err)
			return resp
		}
		unlocked, err := s.badges.Evaluate(ctx, userID, BadgeTrigger{CompletedGoals: count})
		if err != nil {
			log.Printf("badge evaluation failed for user %s: %v", userID, err)
			return resp
		}
		resp.UnlockedBadges = unlocked
	}

	return resp
}

func (s *goalService) indexGoal(goal *model.Goal) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexGoal(goal); err != nil {
		log.Printf("failed to index goal %s: %v", goal.ID, err)
	}
}
