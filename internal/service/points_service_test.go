package service

import (
	"context"
	"testing"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAward_UpdatesBalanceAndLedger(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")

	result, err := env.points.Award(user.ID, 10, model.TxCompletion, "daily completion", "")
	require.NoError(t, err)
	assert.Equal(t, 10, result.Balance.TotalPoints)
	assert.Equal(t, 1, result.Balance.Level)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 10, result.Transaction.Amount)

	history, err := env.points.History(user.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.TxCompletion, history[0].TransactionType)
}

func TestAward_RejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "bob")

	_, err := env.points.Award(user.ID, 0, model.TxCompletion, "", "")
	assert.Error(t, err)
	_, err = env.points.Award(user.ID, -5, model.TxCompletion, "", "")
	assert.Error(t, err)
}

func TestAward_LevelUpAtThousand(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "carol")

	result, err := env.points.Award(user.ID, 999, model.TxBonus, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Balance.Level)
	assert.False(t, result.LeveledUp)

	result, err = env.points.Award(user.ID, 1, model.TxBonus, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Balance.Level)
	assert.True(t, result.LeveledUp)
}

func TestSpend_InsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "dave")

	_, err := env.points.Award(user.ID, 30, model.TxCompletion, "", "")
	require.NoError(t, err)

	_, err = env.points.Spend(user.ID, 50, model.TxRedemption, "", "")
	assert.ErrorIs(t, err, util.ErrInsufficientBalance)

	// 失败的消费不落流水
	balance, err := env.points.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, balance.TotalPoints)

	history, err := env.points.History(user.ID, "", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSpend_RecordsNegativeTransaction(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "erin")

	_, err := env.points.Award(user.ID, 100, model.TxCompletion, "", "")
	require.NoError(t, err)

	balance, err := env.points.Spend(user.ID, 40, model.TxRedemption, "coffee", "")
	require.NoError(t, err)
	assert.Equal(t, 60, balance.TotalPoints)

	history, err := env.points.History(user.ID, model.TxRedemption, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, -40, history[0].Amount)
}

func TestAwardStreakMilestone_OncePerHabit(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "frank")
	habit := env.createHabit(t, "Read", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(10))

	amount, err := env.points.AwardStreakMilestone(user.ID, uh.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 25, amount)

	// 同一义务重复到达同一里程碑不再发放
	amount, err = env.points.AwardStreakMilestone(user.ID, uh.ID, 7)
	require.NoError(t, err)
	assert.Zero(t, amount)

	// 非里程碑连击静默跳过
	amount, err = env.points.AwardStreakMilestone(user.ID, uh.ID, 8)
	require.NoError(t, err)
	assert.Zero(t, amount)

	// 更高的里程碑仍然可以发
	amount, err = env.points.AwardStreakMilestone(user.ID, uh.ID, 14)
	require.NoError(t, err)
	assert.Equal(t, 50, amount)
}

func TestAwardStreakMilestone_PerHabitIndependent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "grace")
	habitA := env.createHabit(t, "Read", model.Daily)
	habitB := env.createHabit(t, "Run", model.Daily)
	uhA := env.adopt(t, user.ID, habitA.ID, daysAgo(10))
	uhB := env.adopt(t, user.ID, habitB.ID, daysAgo(10))

	amount, err := env.points.AwardStreakMilestone(user.ID, uhA.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 25, amount)

	amount, err = env.points.AwardStreakMilestone(user.ID, uhB.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 25, amount)
}

func TestSummary_LifetimeTotals(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "heidi")

	_, err := env.points.Award(user.ID, 100, model.TxCompletion, "", "")
	require.NoError(t, err)
	_, err = env.points.Award(user.ID, 25, model.TxStreak, "", "")
	require.NoError(t, err)
	_, err = env.points.Spend(user.ID, 40, model.TxRedemption, "", "")
	require.NoError(t, err)

	summary, err := env.points.Summary(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 125, summary.LifetimeEarn)
	assert.Equal(t, 40, summary.LifetimeSpent)
	assert.Equal(t, 85, summary.Balance.TotalPoints)
}

func TestReconcile_RepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ivan")

	_, err := env.points.Award(user.ID, 100, model.TxCompletion, "", "")
	require.NoError(t, err)

	// 人为制造余额与流水的偏差
	require.NoError(t, env.db.Model(&model.UserPoints{}).
		Where("user_id = ?", user.ID).
		Update("total_points", 250).Error)

	drift, err := env.points.Reconcile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, drift)

	balance, err := env.points.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, balance.TotalPoints)

	// 再跑一次应无偏差
	drift, err = env.points.Reconcile(user.ID)
	require.NoError(t, err)
	assert.Zero(t, drift)
}

func TestReconcileAll(t *testing.T) {
	env := newTestEnv(t)
	good := env.createUser(t, "judy")
	bad := env.createUser(t, "kate")

	_, err := env.points.Award(good.ID, 50, model.TxCompletion, "", "")
	require.NoError(t, err)
	_, err = env.points.Award(bad.ID, 50, model.TxCompletion, "", "")
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.UserPoints{}).
		Where("user_id = ?", bad.ID).
		Update("total_points", 999).Error)

	report, err := env.points.ReconcileAll()
	require.NoError(t, err)
	assert.Equal(t, 2, report.UsersChecked)
	assert.Equal(t, 1, report.UsersRepaired)
	assert.Zero(t, report.Errors)
}

func TestLeaderboard_WithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	first := env.createUser(t, "leo")
	second := env.createUser(t, "mallory")

	_, err := env.points.Award(first.ID, 200, model.TxCompletion, "", "")
	require.NoError(t, err)
	_, err = env.points.Award(second.ID, 100, model.TxCompletion, "", "")
	require.NoError(t, err)

	entries, err := env.points.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].UserID)
	assert.Equal(t, 200, entries[0].Points)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, second.ID, entries[1].UserID)
}
