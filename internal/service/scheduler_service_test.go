package service

import (
	"context"
	"testing"
	"time"

	"habit_tracker_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 停摆3天场景：连续打卡3天后停摆，补扫描应记3次漏打并归零连击
func TestRunMissDetection_DowntimeGap(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	habit := env.createHabit(t, "Read", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	for i := 6; i >= 4; i-- {
		_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(i))
		require.NoError(t, err)
	}

	before, err := env.userHabitRepo.FindByID(uh.ID)
	require.NoError(t, err)
	require.Equal(t, 3, before.Streak)

	report, err := env.scheduler.RunMissDetection(context.Background(), time.Now())
	require.NoError(t, err)

	// daysAgo(3)、(2)、(1) 三个已结束周期都没有完成记录
	assert.Equal(t, 3, report.MissesCreated)
	assert.Equal(t, 1, report.StreaksReset)
	assert.Equal(t, 1, report.HabitsSwept)
	assert.Zero(t, report.Errors)

	after, err := env.userHabitRepo.FindByID(uh.ID)
	require.NoError(t, err)
	assert.Zero(t, after.Streak)

	// 原连击归档：长度3，结束于最后一次完成当天
	runs, err := env.streaks.ListByUserHabit(uh.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].StreakLength)
	require.NotNil(t, runs[0].EndDate)
	assert.True(t, runs[0].EndDate.Equal(daysAgo(4)))

	misses, err := env.missed.ListByUserHabit(uh.ID, 10)
	require.NoError(t, err)
	assert.Len(t, misses, 3)
}

func TestRunMissDetection_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "bob")
	habit := env.createHabit(t, "Run", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(3))
	require.NoError(t, err)

	first, err := env.scheduler.RunMissDetection(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, first.MissesCreated)
	assert.Equal(t, 1, first.StreaksReset)

	// 第二轮什么都不该改
	second, err := env.scheduler.RunMissDetection(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, second.MissesCreated)
	assert.Zero(t, second.StreaksReset)

	after, err := env.userHabitRepo.FindByID(uh.ID)
	require.NoError(t, err)
	assert.Zero(t, after.Streak)
}

// 已完成的周期绝不会被记为漏打
func TestRunMissDetection_CompletedPeriodsExcluded(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "carol")
	habit := env.createHabit(t, "Write", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(5))

	_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(5))
	require.NoError(t, err)
	_, err = env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(3))
	require.NoError(t, err)

	// 扫描从最后一次完成之后的周期开始：daysAgo(2)、(1) 漏打
	report, err := env.scheduler.RunMissDetection(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, report.MissesCreated)

	misses, err := env.missed.ListByUserHabit(uh.ID, 10)
	require.NoError(t, err)
	require.Len(t, misses, 2)

	completions, err := env.completions.ListByUserHabit(uh.ID, 10)
	require.NoError(t, err)
	for _, c := range completions {
		for _, m := range misses {
			same, serr := SamePeriod(c.CompletionDate, m.MissedDate, model.Daily)
			require.NoError(t, serr)
			assert.False(t, same)
		}
	}
}

func TestRunMissDetection_NeverCompleted(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "dave")
	habit := env.createHabit(t, "Meditate", model.Daily)
	env.adopt(t, user.ID, habit.ID, daysAgo(4))

	report, err := env.scheduler.RunMissDetection(context.Background(), time.Now())
	require.NoError(t, err)

	// 从 StartDate 所在周期扫到昨天，共4个已结束周期
	assert.Equal(t, 4, report.MissesCreated)
	// 连击本来就是0，不计重置
	assert.Zero(t, report.StreaksReset)
}

func TestRunMissDetection_WeeklySweep(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "erin")
	habit := env.createHabit(t, "Review", model.Weekly)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(21))

	_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(21))
	require.NoError(t, err)

	report, err := env.scheduler.RunMissDetection(context.Background(), time.Now())
	require.NoError(t, err)

	// 完成周期之后、当前周之前的整周才算漏打
	lastPeriod, perr := PeriodContaining(daysAgo(21), model.Weekly)
	require.NoError(t, perr)
	elapsed, perr := ElapsedPeriods(lastPeriod.Boundary.AddDate(0, 0, 1), time.Now(), model.Weekly)
	require.NoError(t, perr)
	assert.Equal(t, len(elapsed), report.MissesCreated)
}

func TestRunMissDetection_InactiveSkipped(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "frank")
	habit := env.createHabit(t, "Swim", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(5))

	require.NoError(t, env.habits.AbandonHabit(user.ID, uh.ID))

	report, err := env.scheduler.RunMissDetection(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, report.HabitsSwept)
	assert.Zero(t, report.MissesCreated)
}

func TestRunMissDetection_ConcurrentRunRejected(t *testing.T) {
	env := newTestEnv(t)

	env.scheduler.mu.Lock()
	env.scheduler.running = true
	env.scheduler.mu.Unlock()

	_, err := env.scheduler.RunMissDetection(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	env.scheduler.mu.Lock()
	env.scheduler.running = false
	env.scheduler.mu.Unlock()

	_, err = env.scheduler.RunMissDetection(context.Background(), time.Now())
	assert.NoError(t, err)
}

func TestNextRunAt(t *testing.T) {
	env := newTestEnv(t)
	env.scheduler.cfg.CheckHour = 2
	env.scheduler.cfg.CheckMinute = 30

	now := time.Date(2025, 6, 10, 1, 0, 0, 0, time.Local)
	next := env.scheduler.NextRunAt(now)
	assert.Equal(t, time.Date(2025, 6, 10, 2, 30, 0, 0, time.Local), next)

	// 已过今日触发时间则排到明天
	later := time.Date(2025, 6, 10, 3, 0, 0, 0, time.Local)
	next = env.scheduler.NextRunAt(later)
	assert.Equal(t, time.Date(2025, 6, 11, 2, 30, 0, 0, time.Local), next)
}
