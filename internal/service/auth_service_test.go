package service

import (
	"context"
	"testing"
	"time"

	"habit_tracker_backend/internal/config"
	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(env *testEnv) *AuthService {
	return NewAuthService(env.userRepo, config.JWTConfig{
		Secret:     "test-secret-key-for-unit-tests-only",
		ExpireTime: 24 * time.Hour,
	})
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(env)

	user, err := auth.Register("Alice", "alice@example.com", "correct horse battery", "Asia/Shanghai")
	require.NoError(t, err)
	assert.Equal(t, model.Member, user.Role)
	assert.Equal(t, "Asia/Shanghai", user.Timezone)
	// 密码只存哈希
	assert.NotEqual(t, "correct horse battery", user.Password)

	token, loggedIn, err := auth.Login("alice@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := util.ParseJWT(token, "test-secret-key-for-unit-tests-only")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(env)

	_, err := auth.Register("Bob", "bob@example.com", "password123", "UTC")
	require.NoError(t, err)

	_, err = auth.Register("Bobby", "bob@example.com", "password456", "UTC")
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestRegister_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(env)

	user, err := auth.Register("Carol", "carol@example.com", "password123", "Not/AZone")
	require.NoError(t, err)
	assert.Equal(t, "UTC", user.Timezone)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(env)

	_, err := auth.Register("Dave", "dave@example.com", "password123", "UTC")
	require.NoError(t, err)

	_, _, err = auth.Login("dave@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	_, _, err = auth.Login("nobody@example.com", "password123")
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestLogin_DisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(env)

	user, err := auth.Register("Erin", "erin@example.com", "password123", "UTC")
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.User{}).
		Where("id = ?", user.ID).
		Update("disabled", true).Error)

	_, _, err = auth.Login("erin@example.com", "password123")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(env)

	user, err := auth.Register("Frank", "frank@example.com", "oldpassword1", "UTC")
	require.NoError(t, err)

	assert.Error(t, auth.ChangePassword(user.ID, "not-the-password", "newpassword1"))
	require.NoError(t, auth.ChangePassword(user.ID, "oldpassword1", "newpassword1"))

	_, _, err = auth.Login("frank@example.com", "oldpassword1")
	assert.Error(t, err)
	_, _, err = auth.Login("frank@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestUserProfileLifecycle(t *testing.T) {
	env := newTestEnv(t)
	users := NewUserService(env.userRepo, env.userHabitRepo, env.completions,
		repository.NewAchievementRepository(env.db), env.pointRepo)

	user := env.createUser(t, "grace")
	habit := env.createHabit(t, "Read", model.Daily)
	uh := env.adopt(t, user.ID, habit.ID, daysAgo(3))
	_, err := env.habits.CompleteHabit(user.ID, uh.ID, time.Now())
	require.NoError(t, err)

	profile, err := users.GetProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.ActiveHabits)
	assert.Equal(t, int64(1), profile.TotalCompletions)
	assert.Equal(t, 10, profile.Points.TotalPoints)

	newName := "Grace Hopper"
	hide := false
	updated, err := users.UpdateProfile(user.ID, ProfileUpdate{Name: &newName, ShowOnLeaderboard: &hide})
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", updated.Name)
	assert.False(t, updated.ShowOnLeaderboard)

	// 隐身用户不再出现在排行榜
	entries, err := env.points.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
