package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/rules"
	"github.com/arisehq/levelup/pkg/apperror"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GoalPatch carries non-nil fields of an update request. XPReward is absent
// on purpose: it is fixed at creation so the reward ledger stays symmetric.
type GoalPatch struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *string
	Status      *string
	StartDate   *time.Time
	Deadline    *time.Time
}

// XPBefore/XPAfter are the user's totals around the reward write; both are
// zero when the transition moved no XP. Callers use them to detect rank
// crossings without re-reading the user row.
type GoalOutcome struct {
	Goal       *model.Goal
	Transition rules.Transition
	XPBefore   int
	XPAfter    int
}

type HabitOutcome struct {
	Habit      *model.Habit
	Transition rules.Transition
	XPBefore   int
	XPAfter    int
}

// CompletionRepository is the transaction coordinator: each method makes one
// rules-engine decision durable across the child row, parent row, user
// counters and log row in a single database transaction. A caller never
// observes XP moved without the matching flag flip, or vice versa.
type CompletionRepository interface {
	ToggleGoalStep(ctx context.Context, stepID, requestorID uuid.UUID) (*GoalOutcome, error)
	ToggleGoal(ctx context.Context, goalID, requestorID uuid.UUID) (*GoalOutcome, error)
	UpdateGoal(ctx context.Context, goalID, requestorID uuid.UUID, patch GoalPatch) (*GoalOutcome, error)
	ToggleHabitStep(ctx context.Context, stepID, requestorID uuid.UUID) (*HabitOutcome, error)
	ToggleHabit(ctx context.Context, habitID, requestorID uuid.UUID) (*HabitOutcome, error)
}

type completionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCompletionRepository(db *gorm.DB) CompletionRepository {
	return &completionRepository{db: db, now: time.Now}
}

func (r *completionRepository) ToggleGoalStep(ctx context.Context, stepID, requestorID uuid.UUID) (*GoalOutcome, error) {
	now := r.now()
	var out GoalOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ref model.Step
		if err := tx.Select("goal_id").Where("id = ?", stepID).First(&ref).Error; err != nil {
			return err
		}

		goal, err := loadGoalLocked(tx, ref.GoalID)
		if err != nil {
			return err
		}
		if goal.UserID != requestorID {
			return apperror.ErrForbidden
		}
		if goal.Status == model.GoalStatusCancelled {
			return fmt.Errorf("%w: goal is cancelled", apperror.ErrPreconditionFailed)
		}

		var target *model.Step
		for i := range goal.Steps {
			if goal.Steps[i].ID == stepID {
				target = &goal.Steps[i]
				break
			}
		}
		if target == nil {
			return apperror.ErrNotFound
		}

		requested := !target.IsCompleted
		parentComplete, _ := rules.DecideChildToggle(stepStates(goal.Steps), stepID, requested)
		transition := rules.Classify(goal.IsDone(), parentComplete)

		if err := tx.Model(&model.Step{}).
			Where("id = ?", stepID).
			Update("is_completed", requested).Error; err != nil {
			return err
		}

		var xpBefore, xpAfter int
		newStatus := goal.Status
		switch transition {
		case rules.TransitionCompleted:
			newStatus = model.GoalStatusDone
			if xpBefore, xpAfter, err = applyUserReward(tx, goal.UserID, goal.XPReward, true, now); err != nil {
				return err
			}
		case rules.TransitionReverted:
			newStatus = model.GoalStatusInProgress
			if xpBefore, xpAfter, err = applyUserReward(tx, goal.UserID, -goal.XPReward, false, now); err != nil {
				return err
			}
		default:
			if goal.Status == model.GoalStatusTodo && requested {
				newStatus = model.GoalStatusInProgress
			}
		}

		if newStatus != goal.Status {
			if err := tx.Model(&model.Goal{}).
				Where("id = ?", goal.ID).
				Update("status", newStatus).Error; err != nil {
				return err
			}
		}

		fresh, err := findGoalTx(tx, goal.ID)
		if err != nil {
			return err
		}
		out = GoalOutcome{Goal: fresh, Transition: transition, XPBefore: xpBefore, XPAfter: xpAfter}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return &out, nil
}

func (r *completionRepository) ToggleGoal(ctx context.Context, goalID, requestorID uuid.UUID) (*GoalOutcome, error) {
	now := r.now()
	var out GoalOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		goal, err := loadGoalLocked(tx, goalID)
		if err != nil {
			return err
		}
		if goal.UserID != requestorID {
			return apperror.ErrForbidden
		}
		if goal.Status == model.GoalStatusCancelled {
			return fmt.Errorf("%w: goal is cancelled", apperror.ErrPreconditionFailed)
		}

		var transition rules.Transition
		var newStatus string
		var xpBefore, xpAfter int

		if goal.IsDone() {
			// Reversal is always allowed and does not touch child flags.
			transition = rules.TransitionReverted
			newStatus = model.GoalStatusInProgress
			if xpBefore, xpAfter, err = applyUserReward(tx, goal.UserID, -goal.XPReward, false, now); err != nil {
				return err
			}
		} else {
			allowed, remaining := rules.DecideParentToggle(stepStates(goal.Steps), false)
			if !allowed {
				return apperror.NewPrecondition(remaining)
			}
			transition = rules.TransitionCompleted
			newStatus = model.GoalStatusDone
			if xpBefore, xpAfter, err = applyUserReward(tx, goal.UserID, goal.XPReward, true, now); err != nil {
				return err
			}
		}

		if err := tx.Model(&model.Goal{}).
			Where("id = ?", goal.ID).
			Update("status", newStatus).Error; err != nil {
			return err
		}

		fresh, err := findGoalTx(tx, goal.ID)
		if err != nil {
			return err
		}
		out = GoalOutcome{Goal: fresh, Transition: transition, XPBefore: xpBefore, XPAfter: xpAfter}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return &out, nil
}

func (r *completionRepository) UpdateGoal(ctx context.Context, goalID, requestorID uuid.UUID, patch GoalPatch) (*GoalOutcome, error) {
	now := r.now()
	var out GoalOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		goal, err := loadGoalLocked(tx, goalID)
		if err != nil {
			return err
		}
		if goal.UserID != requestorID {
			return apperror.ErrForbidden
		}

		updates := map[string]interface{}{}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Category != nil {
			updates["category"] = *patch.Category
		}
		if patch.Priority != nil {
			updates["priority"] = *patch.Priority
		}
		if patch.StartDate != nil {
			updates["start_date"] = *patch.StartDate
		}
		if patch.Deadline != nil {
			updates["deadline"] = *patch.Deadline
		}

		transition := rules.TransitionNone

		// A status change in the patch delegates to the same invariant check
		// as a direct toggle; it is rejected before any field is written.
		if patch.Status != nil && *patch.Status != goal.Status {
			if goal.Status == model.GoalStatusCancelled {
				return fmt.Errorf("%w: goal is cancelled", apperror.ErrPreconditionFailed)
			}

			switch *patch.Status {
			case model.GoalStatusDone:
				allowed, remaining := rules.DecideParentToggle(stepStates(goal.Steps), false)
				if !allowed {
					return apperror.NewPrecondition(remaining)
				}
				transition = rules.TransitionCompleted
			case model.GoalStatusCancelled:
				if goal.IsDone() {
					return fmt.Errorf("%w: revert completion before cancelling", apperror.ErrPreconditionFailed)
				}
			default:
				if goal.IsDone() {
					transition = rules.TransitionReverted
				}
			}
			updates["status"] = *patch.Status
		}

		var xpBefore, xpAfter int
		switch transition {
		case rules.TransitionCompleted:
			if xpBefore, xpAfter, err = applyUserReward(tx, goal.UserID, goal.XPReward, true, now); err != nil {
				return err
			}
		case rules.TransitionReverted:
			if xpBefore, xpAfter, err = applyUserReward(tx, goal.UserID, -goal.XPReward, false, now); err != nil {
				return err
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&model.Goal{}).
				Where("id = ?", goal.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		fresh, err := findGoalTx(tx, goal.ID)
		if err != nil {
			return err
		}
		out = GoalOutcome{Goal: fresh, Transition: transition, XPBefore: xpBefore, XPAfter: xpAfter}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return &out, nil
}

func (r *completionRepository) ToggleHabitStep(ctx context.Context, stepID, requestorID uuid.UUID) (*HabitOutcome, error) {
	now := r.now()
	var out HabitOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ref model.HabitStep
		if err := tx.Select("habit_id").Where("id = ?", stepID).First(&ref).Error; err != nil {
			return err
		}

		habit, err := loadHabitLocked(tx, ref.HabitID)
		if err != nil {
			return err
		}
		if habit.UserID != requestorID {
			return apperror.ErrForbidden
		}

		var target *model.HabitStep
		for i := range habit.Steps {
			if habit.Steps[i].ID == stepID {
				target = &habit.Steps[i]
				break
			}
		}
		if target == nil {
			return apperror.ErrNotFound
		}

		requested := !target.IsCompleted
		parentComplete, _ := rules.DecideChildToggle(habitStepStates(habit.Steps), stepID, requested)
		transition := rules.Classify(habit.IsCompletedToday, parentComplete)

		if err := tx.Model(&model.HabitStep{}).
			Where("id = ?", stepID).
			Update("is_completed", requested).Error; err != nil {
			return err
		}

		xpBefore, xpAfter, err := applyHabitTransition(tx, habit, transition, now)
		if err != nil {
			return err
		}

		fresh, err := findHabitTx(tx, habit.ID)
		if err != nil {
			return err
		}
		out = HabitOutcome{Habit: fresh, Transition: transition, XPBefore: xpBefore, XPAfter: xpAfter}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return &out, nil
}

func (r *completionRepository) ToggleHabit(ctx context.Context, habitID, requestorID uuid.UUID) (*HabitOutcome, error) {
	now := r.now()
	var out HabitOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		habit, err := loadHabitLocked(tx, habitID)
		if err != nil {
			return err
		}
		if habit.UserID != requestorID {
			return apperror.ErrForbidden
		}

		var transition rules.Transition
		if habit.IsCompletedToday {
			transition = rules.TransitionReverted
		} else {
			allowed, remaining := rules.DecideParentToggle(habitStepStates(habit.Steps), false)
			if !allowed {
				return apperror.NewPrecondition(remaining)
			}
			transition = rules.TransitionCompleted
		}

		xpBefore, xpAfter, err := applyHabitTransition(tx, habit, transition, now)
		if err != nil {
			return err
		}

		fresh, err := findHabitTx(tx, habit.ID)
		if err != nil {
			return err
		}
		out = HabitOutcome{Habit: fresh, Transition: transition, XPBefore: xpBefore, XPAfter: xpAfter}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return &out, nil
}

// applyHabitTransition moves the habit flag, its streak, today's log row and
// the user counters together. Same-day idempotence comes from transition
// gating: a completion only fires when IsCompletedToday was false.
func applyHabitTransition(tx *gorm.DB, habit *model.Habit, transition rules.Transition, now time.Time) (int, int, error) {
	switch transition {
	case rules.TransitionCompleted:
		log := model.HabitLog{
			HabitID:     habit.ID,
			Date:        rules.StartOfDay(now),
			IsCompleted: true,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "habit_id"}, {Name: "date"}},
			DoNothing: true,
		}).Create(&log).Error; err != nil {
			return 0, 0, err
		}

		if err := tx.Model(&model.Habit{}).
			Where("id = ?", habit.ID).
			Updates(map[string]interface{}{
				"is_completed_today": true,
				"current_streak":     habit.CurrentStreak + 1,
				"last_completed_at":  now,
			}).Error; err != nil {
			return 0, 0, err
		}

		return applyUserReward(tx, habit.UserID, habit.XPReward, true, now)

	case rules.TransitionReverted:
		if err := tx.Where("habit_id = ? AND date = ?", habit.ID, rules.StartOfDay(now)).
			Delete(&model.HabitLog{}).Error; err != nil {
			return 0, 0, err
		}

		newStreak := habit.CurrentStreak - 1
		if newStreak < 0 {
			newStreak = 0
		}
		if err := tx.Model(&model.Habit{}).
			Where("id = ?", habit.ID).
			Updates(map[string]interface{}{
				"is_completed_today": false,
				"current_streak":     newStreak,
			}).Error; err != nil {
			return 0, 0, err
		}

		return applyUserReward(tx, habit.UserID, -habit.XPReward, false, now)
	}

	return 0, 0, nil
}

// applyUserReward moves the user's counters inside the caller's transaction
// and returns the XP totals before and after. XP is symmetric; the streak
// only moves on qualifying completions and is day-guarded by UpdatedAt, with
// BestStreak as a monotone high-water mark.
func applyUserReward(tx *gorm.DB, userID uuid.UUID, deltaXP int, qualifying bool, now time.Time) (int, int, error) {
	var user model.User
	if err := forUpdate(tx).Where("id = ?", userID).First(&user).Error; err != nil {
		return 0, 0, err
	}

	newXP := user.XP + deltaXP

	// UpdatedAt is the qualifying-action day guard. A reversal moves XP only;
	// UpdateColumn keeps the auto timestamp from stamping the day as counted.
	if !qualifying {
		if err := tx.Model(&model.User{}).Where("id = ?", userID).
			UpdateColumn("xp", newXP).Error; err != nil {
			return 0, 0, err
		}
		return user.XP, newXP, nil
	}

	updates := map[string]interface{}{
		"xp":         newXP,
		"updated_at": now,
	}
	if !rules.SameDay(user.UpdatedAt, now) {
		newStreak := 1
		if rules.IsYesterday(user.UpdatedAt, now) {
			newStreak = user.Streak + 1
		}
		updates["streak"] = newStreak
		if newStreak > user.BestStreak {
			updates["best_streak"] = newStreak
		}
	}

	if err := tx.Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return 0, 0, err
	}
	return user.XP, newXP, nil
}

// forUpdate takes row locks on postgres so concurrent toggles on one parent
// serialize. The sqlite dialect has no FOR UPDATE; its single-writer model
// gives the tests the same guarantee.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// loadGoalLocked locks the parent row first, then reads the children, so the
// all-complete check never sees a stale child set.
func loadGoalLocked(tx *gorm.DB, id uuid.UUID) (*model.Goal, error) {
	var goal model.Goal
	if err := forUpdate(tx).Where("id = ?", id).First(&goal).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("goal_id = ?", id).Order("\"order\" ASC").Find(&goal.Steps).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func loadHabitLocked(tx *gorm.DB, id uuid.UUID) (*model.Habit, error) {
	var habit model.Habit
	if err := forUpdate(tx).Where("id = ?", id).First(&habit).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("habit_id = ?", id).Order("\"order\" ASC").Find(&habit.Steps).Error; err != nil {
		return nil, err
	}
	return &habit, nil
}

func findGoalTx(tx *gorm.DB, id uuid.UUID) (*model.Goal, error) {
	var goal model.Goal
	if err := tx.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Where("id = ?", id).
		First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func findHabitTx(tx *gorm.DB, id uuid.UUID) (*model.Habit, error) {
	var habit model.Habit
	if err := tx.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Preload("Logs", func(db *gorm.DB) *gorm.DB {
			return db.Order("date DESC")
		}).
		Where("id = ?", id).
		First(&habit).Error; err != nil {
		return nil, err
	}
	return &habit, nil
}

func stepStates(steps []model.Step) []rules.ChildState {
	return rules.Snapshot(steps, func(s model.Step) rules.ChildState {
		return rules.ChildState{ID: s.ID, Completed: s.IsCompleted}
	})
}

func habitStepStates(steps []model.HabitStep) []rules.ChildState {
	return rules.Snapshot(steps, func(s model.HabitStep) rules.ChildState {
		return rules.ChildState{ID: s.ID, Completed: s.IsCompleted}
	})
}

// translateTxError maps store-level failures onto the error taxonomy.
// Serialization failures and deadlocks become Conflict: the operation is
// idempotent with respect to final state, so callers may retry.
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", apperror.ErrConflict, err)
		}
	}
	return err
}
