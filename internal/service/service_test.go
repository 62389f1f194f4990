package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"habit_tracker_backend/internal/config"
	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv 内存 SQLite 上的完整服务栈,无 Redis
type testEnv struct {
	db *gorm.DB

	userRepo      *repository.UserRepository
	habitRepo     *repository.HabitRepository
	userHabitRepo *repository.UserHabitRepository
	completions   *repository.CompletionRepository
	missed        *repository.MissedHabitRepository
	streaks       *repository.StreakRepository
	pointRepo     *repository.PointRepository
	rewardRepo    *repository.RewardRepository
	achieveRepo   *repository.AchievementRepository
	badgeRepo     *repository.BadgeRepository

	points       *PointsService
	achievements *AchievementService
	analytics    *AnalyticsService
	habits       *HabitService
	scheduler    *SchedulerService
	rewards      *RewardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	env := &testEnv{
		db:            db,
		userRepo:      repository.NewUserRepository(db),
		habitRepo:     repository.NewHabitRepository(db),
		userHabitRepo: repository.NewUserHabitRepository(db),
		completions:   repository.NewCompletionRepository(db),
		missed:        repository.NewMissedHabitRepository(db),
		streaks:       repository.NewStreakRepository(db),
		pointRepo:     repository.NewPointRepository(db),
		rewardRepo:    repository.NewRewardRepository(db),
	}

	env.achieveRepo = repository.NewAchievementRepository(db)
	env.badgeRepo = repository.NewBadgeRepository(db)
	achievementRepo := env.achieveRepo
	badgeRepo := env.badgeRepo
	analyticsRepo := repository.NewAnalyticsRepository(db)

	env.points = NewPointsService(db, env.pointRepo, nil)
	env.achievements = NewAchievementService(db, achievementRepo, badgeRepo,
		env.completions, env.userHabitRepo, env.streaks, env.pointRepo, env.points)
	env.analytics = NewAnalyticsService(analyticsRepo, env.completions, env.missed,
		env.streaks, env.userHabitRepo, env.habitRepo, env.userRepo)
	env.habits = NewHabitService(db, env.habitRepo, env.userHabitRepo, env.completions,
		env.missed, env.streaks, env.points, env.achievements, env.analytics)
	env.scheduler = NewSchedulerService(db, env.userHabitRepo, env.completions,
		env.missed, env.streaks, env.analytics, nil, config.SchedulerConfig{LockTTLSec: 600})
	env.rewards = NewRewardService(db, env.rewardRepo, env.points)

	return env
}

func (e *testEnv) createUser(t *testing.T, name string) *model.User {
	t.Helper()
	user := &model.User{
		Name:     name,
		Email:    name + "@example.com",
		Password: "not-a-real-hash",
		Role:     model.Member,
		Timezone: "UTC",
	}
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *testEnv) createHabit(t *testing.T, name string, periodicity model.Periodicity) *model.Habit {
	t.Helper()
	habit := &model.Habit{Name: name, Periodicity: periodicity}
	require.NoError(t, e.habitRepo.CreateHabit(habit))
	return habit
}

func (e *testEnv) adopt(t *testing.T, userID uint, habitID string, start time.Time) *model.UserHabit {
	t.Helper()
	userHabit := &model.UserHabit{
		UserID:    userID,
		HabitID:   habitID,
		IsActive:  true,
		StartDate: DateOnly(start),
	}
	require.NoError(t, e.userHabitRepo.Create(userHabit))
	loaded, err := e.userHabitRepo.FindByID(userHabit.ID)
	require.NoError(t, err)
	return loaded
}

func daysAgo(n int) time.Time {
	return DateOnly(time.Now()).AddDate(0, 0, -n)
}
