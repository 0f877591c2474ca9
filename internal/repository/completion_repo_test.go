package repository

import (
	"context"
	"testing"
	"time"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/rules"
	"github.com/arisehq/levelup/internal/testutil"
	"github.com/arisehq/levelup/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var day1 = time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local)

func newFrozenRepo(t *testing.T, db *gorm.DB, at time.Time) *completionRepository {
	t.Helper()
	return &completionRepository{db: db, now: func() time.Time { return at }}
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := &model.User{
		Username:     "hunter-" + uuid.NewString()[:8],
		Email:        uuid.NewString() + "@test.local",
		PasswordHash: "x",
		XP:           100,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedGoal(t *testing.T, db *gorm.DB, userID uuid.UUID, status string, stepFlags ...bool) *model.Goal {
	t.Helper()
	goal := &model.Goal{
		UserID:    userID,
		Title:     "clear the dungeon",
		Status:    status,
		Priority:  model.PriorityMedium,
		XPReward:  50,
		StartDate: day1,
	}
	for i, done := range stepFlags {
		goal.Steps = append(goal.Steps, model.Step{
			UserID:      userID,
			Title:       "step",
			Order:       i,
			IsCompleted: done,
		})
	}
	require.NoError(t, db.Create(goal).Error)
	return goal
}

func seedHabit(t *testing.T, db *gorm.DB, userID uuid.UUID, stepFlags ...bool) *model.Habit {
	t.Helper()
	habit := &model.Habit{
		UserID:    userID,
		Title:     "morning run",
		Category:  "health",
		Frequency: model.FrequencyDaily,
		XPReward:  5,
	}
	for i, done := range stepFlags {
		habit.Steps = append(habit.Steps, model.HabitStep{
			Title:       "step",
			Order:       i,
			IsCompleted: done,
		})
	}
	require.NoError(t, db.Create(habit).Error)
	return habit
}

func getUser(t *testing.T, db *gorm.DB, id uuid.UUID) *model.User {
	t.Helper()
	var user model.User
	require.NoError(t, db.First(&user, "id = ?", id).Error)
	return &user
}

func getGoal(t *testing.T, db *gorm.DB, id uuid.UUID) *model.Goal {
	t.Helper()
	var goal model.Goal
	require.NoError(t, db.Preload("Steps").First(&goal, "id = ?", id).Error)
	return &goal
}

func countLogs(t *testing.T, db *gorm.DB, habitID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.HabitLog{}).Where("habit_id = ?", habitID).Count(&n).Error)
	return n
}

func TestToggleGoalStep_LastStepCompletesGoal(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusInProgress, true, false)

	out, err := repo.ToggleGoalStep(context.Background(), goal.Steps[1].ID, user.ID)
	require.NoError(t, err)

	assert.Equal(t, rules.TransitionCompleted, out.Transition)
	assert.Equal(t, model.GoalStatusDone, out.Goal.Status)
	for _, step := range out.Goal.Steps {
		assert.True(t, step.IsCompleted)
	}

	after := getUser(t, db, user.ID)
	assert.Equal(t, 150, after.XP)
	assert.Equal(t, 1, after.Streak)
	assert.Equal(t, 1, after.BestStreak)
}

func TestToggleGoalStep_ReversalRestoresXP(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusInProgress, true, false)

	_, err := repo.ToggleGoalStep(context.Background(), goal.Steps[1].ID, user.ID)
	require.NoError(t, err)

	out, err := repo.ToggleGoalStep(context.Background(), goal.Steps[1].ID, user.ID)
	require.NoError(t, err)

	assert.Equal(t, rules.TransitionReverted, out.Transition)
	assert.Equal(t, model.GoalStatusInProgress, out.Goal.Status)

	after := getUser(t, db, user.ID)
	assert.Equal(t, 100, after.XP)
	// The streak records qualifying days and is never clawed back.
	assert.Equal(t, 1, after.Streak)
	assert.Equal(t, 1, after.BestStreak)
}

func TestToggleGoalStep_FirstStepStartsProgress(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusTodo, false, false)

	out, err := repo.ToggleGoalStep(context.Background(), goal.Steps[0].ID, user.ID)
	require.NoError(t, err)

	assert.Equal(t, rules.TransitionNone, out.Transition)
	assert.Equal(t, model.GoalStatusInProgress, out.Goal.Status)
	assert.Equal(t, 100, getUser(t, db, user.ID).XP)
}

func TestToggleGoalStep_OtherUsersGoalForbidden(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	owner := seedUser(t, db)
	intruder := seedUser(t, db)
	goal := seedGoal(t, db, owner.ID, model.GoalStatusInProgress, false)

	_, err := repo.ToggleGoalStep(context.Background(), goal.Steps[0].ID, intruder.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestToggleGoalStep_CancelledGoalRejected(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusCancelled, false)

	_, err := repo.ToggleGoalStep(context.Background(), goal.Steps[0].ID, user.ID)
	assert.ErrorIs(t, err, apperror.ErrPreconditionFailed)

	after := getGoal(t, db, goal.ID)
	assert.False(t, after.Steps[0].IsCompleted)
}

func TestToggleGoal_ChildlessGoalCompletes(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusTodo)

	out, err := repo.ToggleGoal(context.Background(), goal.ID, user.ID)
	require.NoError(t, err)

	assert.Equal(t, rules.TransitionCompleted, out.Transition)
	assert.Equal(t, model.GoalStatusDone, out.Goal.Status)
	assert.Equal(t, 150, getUser(t, db, user.ID).XP)
}

func TestToggleGoal_IncompleteStepsRejected(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusInProgress, true, false, false)

	_, err := repo.ToggleGoal(context.Background(), goal.ID, user.ID)
	require.Error(t, err)

	var precondition *apperror.PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, 2, precondition.RemainingSteps)

	// A rejected request leaves every row untouched.
	assert.Equal(t, model.GoalStatusInProgress, getGoal(t, db, goal.ID).Status)
	assert.Equal(t, 100, getUser(t, db, user.ID).XP)
}

func TestToggleGoal_ReversalIgnoresChildFlags(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusDone, true, true)

	out, err := repo.ToggleGoal(context.Background(), goal.ID, user.ID)
	require.NoError(t, err)

	assert.Equal(t, rules.TransitionReverted, out.Transition)
	assert.Equal(t, model.GoalStatusInProgress, out.Goal.Status)
	// Steps keep their flags on a parent reversal.
	for _, step := range out.Goal.Steps {
		assert.True(t, step.IsCompleted)
	}
	assert.Equal(t, 50, getUser(t, db, user.ID).XP)
}

func TestUpdateGoal_DoneStatusRequiresAllSteps(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusInProgress, false)

	newTitle := "renamed"
	done := model.GoalStatusDone
	_, err := repo.UpdateGoal(context.Background(), goal.ID, user.ID, GoalPatch{
		Title:  &newTitle,
		Status: &done,
	})
	assert.ErrorIs(t, err, apperror.ErrPreconditionFailed)

	// The precondition check runs before any field is written, so the
	// title edit is rejected along with the status change.
	assert.Equal(t, "clear the dungeon", getGoal(t, db, goal.ID).Title)
}

func TestUpdateGoal_CancelFromDoneRejected(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusDone)

	cancelled := model.GoalStatusCancelled
	_, err := repo.UpdateGoal(context.Background(), goal.ID, user.ID, GoalPatch{Status: &cancelled})
	assert.ErrorIs(t, err, apperror.ErrPreconditionFailed)
}

func TestUpdateGoal_CancelledIsTerminal(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusCancelled)

	todo := model.GoalStatusTodo
	_, err := repo.UpdateGoal(context.Background(), goal.ID, user.ID, GoalPatch{Status: &todo})
	assert.ErrorIs(t, err, apperror.ErrPreconditionFailed)
}

func TestUpdateGoal_StatusPatchRevertsCompletion(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	goal := seedGoal(t, db, user.ID, model.GoalStatusDone)

	inProgress := model.GoalStatusInProgress
	out, err := repo.UpdateGoal(context.Background(), goal.ID, user.ID, GoalPatch{Status: &inProgress})
	require.NoError(t, err)

	assert.Equal(t, rules.TransitionReverted, out.Transition)
	assert.Equal(t, 50, getUser(t, db, user.ID).XP)
}

func TestToggleHabit_CompleteAndRevertSameDay(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	habit := seedHabit(t, db, user.ID)

	out, err := repo.ToggleHabit(context.Background(), habit.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.TransitionCompleted, out.Transition)
	assert.True(t, out.Habit.IsCompletedToday)
	assert.Equal(t, 1, out.Habit.CurrentStreak)
	require.NotNil(t, out.Habit.LastCompletedAt)
	assert.EqualValues(t, 1, countLogs(t, db, habit.ID))
	assert.Equal(t, 105, getUser(t, db, user.ID).XP)

	out, err = repo.ToggleHabit(context.Background(), habit.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.TransitionReverted, out.Transition)
	assert.False(t, out.Habit.IsCompletedToday)
	assert.Equal(t, 0, out.Habit.CurrentStreak)
	assert.EqualValues(t, 0, countLogs(t, db, habit.ID))
	assert.Equal(t, 100, getUser(t, db, user.ID).XP)
}

func TestToggleHabit_IncompleteStepsRejected(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	habit := seedHabit(t, db, user.ID, false)

	_, err := repo.ToggleHabit(context.Background(), habit.ID, user.ID)
	require.Error(t, err)

	var precondition *apperror.PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, 1, precondition.RemainingSteps)
	assert.EqualValues(t, 0, countLogs(t, db, habit.ID))
}

func TestToggleHabitStep_TwoStepLifecycle(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	habit := seedHabit(t, db, user.ID, false, false)

	// First step: habit not yet complete, nothing moves.
	out, err := repo.ToggleHabitStep(context.Background(), habit.Steps[0].ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.TransitionNone, out.Transition)
	assert.False(t, out.Habit.IsCompletedToday)
	assert.Equal(t, 100, getUser(t, db, user.ID).XP)

	// Second step completes the habit for today.
	out, err = repo.ToggleHabitStep(context.Background(), habit.Steps[1].ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.TransitionCompleted, out.Transition)
	assert.True(t, out.Habit.IsCompletedToday)
	assert.Equal(t, 1, out.Habit.CurrentStreak)
	assert.EqualValues(t, 1, countLogs(t, db, habit.ID))
	assert.Equal(t, 105, getUser(t, db, user.ID).XP)

	// Unchecking it reverses everything for the day.
	out, err = repo.ToggleHabitStep(context.Background(), habit.Steps[1].ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.TransitionReverted, out.Transition)
	assert.False(t, out.Habit.IsCompletedToday)
	assert.Equal(t, 0, out.Habit.CurrentStreak)
	assert.EqualValues(t, 0, countLogs(t, db, habit.ID))
	assert.Equal(t, 100, getUser(t, db, user.ID).XP)
}

func TestUserStreak_ReversalDoesNotConsumeTheDay(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	first := seedGoal(t, db, user.ID, model.GoalStatusTodo)
	second := seedGoal(t, db, user.ID, model.GoalStatusTodo)

	_, err := repo.ToggleGoal(context.Background(), first.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, getUser(t, db, user.ID).Streak)

	// Day two: an uncheck must not stamp the day as already counted, so
	// the later legitimate completion still extends the run.
	day2 := day1.AddDate(0, 0, 1)
	repo.now = func() time.Time { return day2 }

	_, err = repo.ToggleGoal(context.Background(), first.ID, user.ID)
	require.NoError(t, err)

	_, err = repo.ToggleGoal(context.Background(), second.ID, user.ID)
	require.NoError(t, err)

	after := getUser(t, db, user.ID)
	assert.Equal(t, 2, after.Streak)
	assert.Equal(t, 2, after.BestStreak)
}

func TestUserStreak_SingleQualifyingDayAndNextDayGrowth(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := newFrozenRepo(t, db, day1)
	user := seedUser(t, db)
	first := seedHabit(t, db, user.ID)
	second := seedHabit(t, db, user.ID)

	_, err := repo.ToggleHabit(context.Background(), first.ID, user.ID)
	require.NoError(t, err)
	_, err = repo.ToggleHabit(context.Background(), second.ID, user.ID)
	require.NoError(t, err)

	after := getUser(t, db, user.ID)
	assert.Equal(t, 110, after.XP)
	// Two completions on one day count once toward the streak.
	assert.Equal(t, 1, after.Streak)

	// The nightly reset clears the daily flags, then a qualifying
	// completion on day two extends the run.
	day2 := day1.AddDate(0, 0, 1)
	_, err = NewResetRepository(db).ResetDay(context.Background(), day2)
	require.NoError(t, err)
	repo.now = func() time.Time { return day2 }

	out, err := repo.ToggleHabit(context.Background(), first.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Habit.CurrentStreak)

	after = getUser(t, db, user.ID)
	assert.Equal(t, 2, after.Streak)
	assert.Equal(t, 2, after.BestStreak)
}
