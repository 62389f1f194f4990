package service

import (
	"testing"
	"time"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteHabit_FirstCompletion(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	habit := env.createHabit(t, "Read", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	result, err := env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Streak)
	assert.Equal(t, 10, result.PointsAwarded)
	assert.Zero(t, result.MilestoneBonus)

	balance, err := env.points.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance.TotalPoints)

	// open 连击记录建立
	open, err := env.streaks.FindOpen(uh.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, 1, open.StreakLength)
}

func TestCompleteHabit_DuplicateSameDay(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "bob")
	habit := env.createHabit(t, "Run", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(5))

	_, err := env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	require.NoError(t, err)

	_, err = env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	assert.ErrorIs(t, err, util.ErrDuplicateCompletion)

	// 重复不产生第二笔积分
	balance, err := env.points.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance.TotalPoints)
}

func TestCompleteHabit_DuplicateSameWeek(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "carol")
	habit := env.createHabit(t, "Review", model.Weekly)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(30))

	// 同一 ISO 周内的两天
	monday := mondayOfWeek(time.Now())
	_, err := env.habits.CompleteHabit(user.ID, uh.ID, monday)
	require.NoError(t, err)

	_, err = env.habits.CompleteHabit(user.ID, uh.ID, monday)
	assert.ErrorIs(t, err, util.ErrDuplicateCompletion)
}

func TestCompleteHabit_FutureDate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "dave")
	habit := env.createHabit(t, "Write", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(1))

	_, err := env.habits.CompleteHabit(user.ID, uh.ID, time.Now().AddDate(0, 0, 1))
	assert.ErrorIs(t, err, util.ErrFutureCompletion)
}

func TestCompleteHabit_Inactive(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "erin")
	habit := env.createHabit(t, "Stretch", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(5))

	require.NoError(t, env.habits.AbandonHabit(user.ID, uh.ID))

	_, err := env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	assert.ErrorIs(t, err, util.ErrHabitInactive)
}

func TestCompleteHabit_NotOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "frank")
	other := env.createUser(t, "grace")
	habit := env.createHabit(t, "Meditate", model.Daily)
	uh := env.adopt(t, owner.ID, habit.ID, daysAgo(5))

	_, err := env.habits.CompleteHabit(other.ID, uh.ID, time.Now())
	assert.ErrorIs(t, err, util.ErrHabitNotFound)
}

func TestCompleteHabit_StreakContinues(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "heidi")
	habit := env.createHabit(t, "Journal", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	for i := 3; i >= 1; i-- {
		_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(i))
		require.NoError(t, err)
	}

	result, err := env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Streak)

	open, err := env.streaks.FindOpen(uh.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, 4, open.StreakLength)
}

func TestCompleteHabit_GapResetsToOne(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ivan")
	habit := env.createHabit(t, "Swim", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(4))
	require.NoError(t, err)
	_, err = env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(3))
	require.NoError(t, err)

	// 跳过两天，连击从头再来
	result, err := env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Streak)

	// 旧连击被归档，新 open 记录长度为 1
	runs, err := env.streaks.ListByUserHabit(uh.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	open, err := env.streaks.FindOpen(uh.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, 1, open.StreakLength)
}

// 断档归档的连击记录：结束日期是最后一次打卡当天，而非新周期前一天
func TestCompleteHabit_ArchivedRunEndsAtLastCompletion(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "nadia")
	habit := env.createHabit(t, "Stretch", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(6))
	require.NoError(t, err)
	_, err = env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(5))
	require.NoError(t, err)

	_, err = env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	require.NoError(t, err)

	runs, err := env.streaks.ListByUserHabit(uh.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	var closed *model.HabitStreak
	for i := range runs {
		if runs[i].EndDate != nil {
			closed = &runs[i]
		}
	}
	require.NotNil(t, closed)
	assert.Equal(t, 2, closed.StreakLength)
	assert.True(t, closed.StartDate.Equal(daysAgo(6)))
	assert.True(t, closed.EndDate.Equal(daysAgo(5)))
}

// 连续打卡第7天：15分完成奖励 + 25分里程碑 = 当日40分
func TestCompleteHabit_SeventhDayAwardsFortyPoints(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "judy")
	habit := env.createHabit(t, "Code", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	for i := 6; i >= 1; i-- {
		_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(i))
		require.NoError(t, err)
	}

	result, err := env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 7, result.Streak)
	assert.Equal(t, 15, result.PointsAwarded)
	assert.Equal(t, 25, result.MilestoneBonus)
	assert.Equal(t, 40, result.PointsAwarded+result.MilestoneBonus)

	// 前6天每天10分，第7天40分
	balance, err := env.points.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, balance.TotalPoints)
}

func TestCompleteHabit_WeeklyStreak(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "kate")
	habit := env.createHabit(t, "Plan", model.Weekly)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(30))

	thisMonday := mondayOfWeek(time.Now())
	lastTuesday := thisMonday.AddDate(0, 0, -6)

	_, err := env.habits.CompleteHabit(user.ID, uh.ID, lastTuesday)
	require.NoError(t, err)

	// 本周任意一天都延续连击
	result, err := env.habits.CompleteHabit(user.ID, uh.ID, thisMonday)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Streak)
}

func TestAdoptAndAbandonHabit(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "leo")
	habit := env.createHabit(t, "Sleep early", model.Daily)

	uh, err := env.habits.AdoptHabit(user.ID, habit.ID)
	require.NoError(t, err)
	assert.True(t, uh.IsActive)
	assert.Zero(t, uh.Streak)

	// 同一模板不能重复领取
	_, err = env.habits.AdoptHabit(user.ID, habit.ID)
	assert.Error(t, err)

	require.NoError(t, env.habits.AbandonHabit(user.ID, uh.ID))

	reloaded, err := env.userHabitRepo.FindByID(uh.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)

	// 重复停用报错
	assert.ErrorIs(t, env.habits.AbandonHabit(user.ID, uh.ID), util.ErrHabitInactive)
}

func TestListUserHabits_PeriodStatus(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "mallory")
	done := env.createHabit(t, "Done today", model.Daily)
	pending := env.createHabit(t, "Still pending", model.Daily)

	uhDone := env.adopt(t, user.ID, done.ID, daysAgo(3))
	env.adopt(t, user.ID, pending.ID, daysAgo(3))

	_, err := env.habits.CompleteHabit(user.ID, uhDone.ID, time.Now())
	require.NoError(t, err)

	statuses, err := env.habits.ListUserHabits(user.ID, true)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byHabit := map[string]bool{}
	for _, s := range statuses {
		byHabit[s.UserHabit.HabitID] = s.CompletedThisPeriod
	}
	assert.True(t, byHabit[done.ID])
	assert.False(t, byHabit[pending.ID])
}

// mondayOfWeek 返回 t 所在 ISO 周的周一
func mondayOfWeek(t time.Time) time.Time {
	d := DateOnly(t)
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return d.AddDate(0, 0, -(weekday - 1))
}
