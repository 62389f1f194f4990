package service

import (
	"testing"
	"time"

	"habit_tracker_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAchievements_UnlocksOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	habit := env.createHabit(t, "Read", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	require.NoError(t, env.achieveRepo.CreateDefinition(&model.Achievement{
		Name:          "Getting Started",
		StrategyType:  model.StrategyCompletionCount,
		Required:      3,
		PointsAwarded: 50,
	}))

	for i := 2; i >= 0; i-- {
		_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(i))
		require.NoError(t, err)
	}

	// CompleteHabit 已经在第三次打卡后触发过评估
	earned, err := env.achieveRepo.ListEarned(user.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, "Getting Started", earned[0].Achievement.Name)

	// 三天打卡30分 + 成就奖励50分
	balance, err := env.points.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, balance.TotalPoints)

	// 再评估一次不会重复解锁
	unlocked, err := env.achievements.EvaluateAchievements(user.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	balance, err = env.points.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, balance.TotalPoints)
}

func TestEvaluateAchievements_BelowThreshold(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "bob")

	require.NoError(t, env.achieveRepo.CreateDefinition(&model.Achievement{
		Name:         "Centurion",
		StrategyType: model.StrategyCompletionCount,
		Required:     100,
	}))

	unlocked, err := env.achievements.EvaluateAchievements(user.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}

func TestEvaluateAchievements_MaxStreakCountsArchivedRuns(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "carol")
	habit := env.createHabit(t, "Run", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(30))

	require.NoError(t, env.achieveRepo.CreateDefinition(&model.Achievement{
		Name:         "Streak Three",
		StrategyType: model.StrategyMaxStreak,
		Required:     3,
	}))

	// 3天连击后断档，当前连击回到1
	for _, n := range []int{10, 9, 8, 5} {
		_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(n))
		require.NoError(t, err)
	}

	reloaded, err := env.userHabitRepo.FindByID(uh.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Streak)

	// 历史最长连击是3，成就应已解锁
	earned, err := env.achieveRepo.ListEarned(user.ID)
	require.NoError(t, err)
	assert.Len(t, earned, 1)
}

func TestEvaluateAchievements_HabitDiversity(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "dave")

	require.NoError(t, env.achieveRepo.CreateDefinition(&model.Achievement{
		Name:         "Well Rounded",
		StrategyType: model.StrategyHabitDiversity,
		Required:     2,
	}))

	first := env.createHabit(t, "Read", model.Daily)
	second := env.createHabit(t, "Run", model.Daily)
	env.adopt(t, user.ID, first.ID, daysAgo(5))

	// 只跟踪一个习惯时未达标
	unlocked, err := env.achievements.EvaluateAchievements(user.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	env.adopt(t, user.ID, second.ID, daysAgo(5))

	unlocked, err = env.achievements.EvaluateAchievements(user.ID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "Well Rounded", unlocked[0].Name)
}

func TestProgress_CapsAtRequired(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "erin")
	habit := env.createHabit(t, "Write", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	require.NoError(t, env.achieveRepo.CreateDefinition(&model.Achievement{
		Name:         "First Steps",
		StrategyType: model.StrategyCompletionCount,
		Required:     2,
	}))
	require.NoError(t, env.achieveRepo.CreateDefinition(&model.Achievement{
		Name:         "Marathon",
		StrategyType: model.StrategyCompletionCount,
		Required:     100,
	}))

	for i := 3; i >= 0; i-- {
		_, err := env.habits.CompleteHabit(user.ID, uh.ID, daysAgo(i))
		require.NoError(t, err)
	}

	progress, err := env.achievements.Progress(user.ID)
	require.NoError(t, err)
	require.Len(t, progress, 2)

	byName := map[string]AchievementProgress{}
	for _, p := range progress {
		byName[p.Achievement.Name] = p
	}

	first := byName["First Steps"]
	assert.True(t, first.Earned)
	assert.Equal(t, 2, first.Current)
	require.NotNil(t, first.EarnedAt)

	marathon := byName["Marathon"]
	assert.False(t, marathon.Earned)
	assert.Equal(t, 4, marathon.Current)
	assert.Nil(t, marathon.EarnedAt)
}

func TestEvaluateBadges_LevelMilestone(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "frank")

	require.NoError(t, env.badgeRepo.CreateDefinition(&model.Badge{
		Name:      "Level Two",
		BadgeType: model.BadgeLevelMilestone,
		Required:  2,
	}))

	awarded, err := env.achievements.EvaluateBadges(user.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	_, err = env.points.Award(user.ID, 1200, model.TxBonus, "", "")
	require.NoError(t, err)

	awarded, err = env.achievements.EvaluateBadges(user.ID)
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, "Level Two", awarded[0].Name)

	// 幂等
	awarded, err = env.achievements.EvaluateBadges(user.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)
}

func TestEvaluateBadges_AchievementCount(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "grace")
	habit := env.createHabit(t, "Read", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(5))

	require.NoError(t, env.achieveRepo.CreateDefinition(&model.Achievement{
		Name:         "First Completion",
		StrategyType: model.StrategyCompletionCount,
		Required:     1,
	}))
	require.NoError(t, env.badgeRepo.CreateDefinition(&model.Badge{
		Name:      "Collector",
		BadgeType: model.BadgeAchievementCount,
		Required:  1,
	}))

	// 打卡解锁成就，成就数达标后同一轮评估授予徽章
	result, err := env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	require.NoError(t, err)
	require.Len(t, result.NewAchievements, 1)
	require.Len(t, result.NewBadges, 1)
	assert.Equal(t, "Collector", result.NewBadges[0].Name)
}
