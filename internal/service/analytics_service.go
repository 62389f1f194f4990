package service

import (
	"fmt"
	"time"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/pkg/logger"

	"go.uber.org/zap"
)

type AnalyticsService struct {
	analyticsRepo  *repository.AnalyticsRepository
	completionRepo *repository.CompletionRepository
	missedRepo     *repository.MissedHabitRepository
	streakRepo     *repository.StreakRepository
	userHabitRepo  *repository.UserHabitRepository
	habitRepo      *repository.HabitRepository
	userRepo       *repository.UserRepository
}

func NewAnalyticsService(
	analyticsRepo *repository.AnalyticsRepository,
	completionRepo *repository.CompletionRepository,
	missedRepo *repository.MissedHabitRepository,
	streakRepo *repository.StreakRepository,
	userHabitRepo *repository.UserHabitRepository,
	habitRepo *repository.HabitRepository,
	userRepo *repository.UserRepository,
) *AnalyticsService {
	return &AnalyticsService{
		analyticsRepo:  analyticsRepo,
		completionRepo: completionRepo,
		missedRepo:     missedRepo,
		streakRepo:     streakRepo,
		userHabitRepo:  userHabitRepo,
		habitRepo:      habitRepo,
		userRepo:       userRepo,
	}
}

// RefreshUserHabit 重算单个义务的统计快照
// 所有字段都从完成/漏打/连击流水推导，可重复执行
func (s *AnalyticsService) RefreshUserHabit(userHabit *model.UserHabit) error {
	analytics, err := s.analyticsRepo.GetOrCreate(userHabit.UserID, userHabit.HabitID)
	if err != nil {
		return err
	}

	completions, err := s.completionRepo.CountByUserHabit(userHabit.ID)
	if err != nil {
		return err
	}
	misses, err := s.missedRepo.CountByUserHabit(userHabit.ID)
	if err != nil {
		return err
	}
	longest, err := s.streakRepo.MaxLengthByUserHabit(userHabit.ID)
	if err != nil {
		return err
	}
	if userHabit.Streak > longest {
		longest = userHabit.Streak
	}

	analytics.LongestStreak = longest
	analytics.MissedCount = int(misses)
	analytics.CompletionRate = rate(completions, completions+misses)
	return s.analyticsRepo.Save(analytics)
}

type RecalculateReport struct {
	HabitsProcessed int `json:"habitsProcessed"`
	Errors          int `json:"errors"`
}

// RecalculateAll 全量重算所有义务的统计快照，单条失败不中断
func (s *AnalyticsService) RecalculateAll() (*RecalculateReport, error) {
	userHabits, err := s.analyticsRepo.ListAllUserHabits()
	if err != nil {
		return nil, err
	}

	report := &RecalculateReport{}
	for i := range userHabits {
		if err := s.RefreshUserHabit(&userHabits[i]); err != nil {
			report.Errors++
			logger.Log.Error("analytics recalculation failed",
				zap.String("user_habit_id", userHabits[i].ID),
				zap.Error(err))
			continue
		}
		report.HabitsProcessed++
	}
	return report, nil
}

func (s *AnalyticsService) ListUserAnalytics(userID uint) ([]model.HabitAnalytics, error) {
	return s.analyticsRepo.ListByUser(userID)
}

// CompletionStats 用户最近 N 天的完成情况
func (s *AnalyticsService) CompletionStats(userID uint, days int) (*model.CompletionStats, error) {
	if days <= 0 {
		days = 30
	}
	end := DateOnly(time.Now())
	start := end.AddDate(0, 0, -(days - 1))

	completions, err := s.completionRepo.CountByUserInRange(userID, start, end)
	if err != nil {
		return nil, err
	}
	misses, err := s.missedRepo.CountByUserInRange(userID, start, end)
	if err != nil {
		return nil, err
	}

	return &model.CompletionStats{
		Completions:    completions,
		Misses:         misses,
		CompletionRate: rate(completions, completions+misses),
	}, nil
}

func (s *AnalyticsService) GlobalStats() (*model.GlobalStats, error) {
	stats, err := s.analyticsRepo.GlobalStats()
	if err != nil {
		return nil, err
	}
	today, err := s.completionRepo.CountOnDate(DateOnly(time.Now()))
	if err != nil {
		return nil, err
	}
	stats.CompletedToday = today
	return stats, nil
}

// HabitUsage 每个习惯模板的采用与放弃情况
func (s *AnalyticsService) HabitUsage() ([]model.HabitUsageStats, error) {
	habits, err := s.habitRepo.ListHabits("")
	if err != nil {
		return nil, err
	}

	stats := make([]model.HabitUsageStats, 0, len(habits))
	for _, habit := range habits {
		total, err := s.userHabitRepo.CountByHabit(habit.ID, false)
		if err != nil {
			return nil, err
		}
		active, err := s.userHabitRepo.CountByHabit(habit.ID, true)
		if err != nil {
			return nil, err
		}

		entry := model.HabitUsageStats{
			HabitID:     habit.ID,
			HabitName:   habit.Name,
			TotalUsers:  total,
			ActiveUsers: active,
		}
		if total > 0 {
			entry.AbandonmentRate = float64(total-active) / float64(total)
		}
		stats = append(stats, entry)
	}
	return stats, nil
}

// StreakDistribution 当前连击的直方图，固定区间
func (s *AnalyticsService) StreakDistribution() ([]model.StreakBucket, error) {
	buckets := []model.StreakBucket{
		{Label: "0", Min: 0, Max: 0},
		{Label: "1-6", Min: 1, Max: 6},
		{Label: "7-29", Min: 7, Max: 29},
		{Label: "30-89", Min: 30, Max: 89},
		{Label: "90+", Min: 90, Max: -1},
	}
	return s.analyticsRepo.StreakDistribution(buckets)
}

// CohortRetention 按注册月分组的30天留存率
// 留存口径：注册满30天后仍有完成记录
func (s *AnalyticsService) CohortRetention(months int) ([]model.CohortRetention, error) {
	if months <= 0 || months > 24 {
		months = 6
	}

	now := time.Now().UTC()
	cohorts := make([]model.CohortRetention, 0, months)
	for i := months - 1; i >= 0; i-- {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		monthEnd := monthStart.AddDate(0, 1, 0)

		users, err := s.analyticsRepo.ListUsersRegisteredBetween(monthStart, monthEnd)
		if err != nil {
			return nil, err
		}

		cohort := model.CohortRetention{
			Period:     fmt.Sprintf("%04d-%02d", monthStart.Year(), monthStart.Month()),
			CohortSize: int64(len(users)),
		}

		var retained int64
		for _, user := range users {
			cutoff := user.CreatedAt.AddDate(0, 0, 30)
			if cutoff.After(now) {
				continue
			}
			active, err := s.completionRepo.ExistsForUserAfter(user.ID, cutoff)
			if err != nil {
				return nil, err
			}
			if active {
				retained++
			}
		}
		if cohort.CohortSize > 0 {
			cohort.Retention30d = float64(retained) / float64(cohort.CohortSize)
		}
		cohorts = append(cohorts, cohort)
	}
	return cohorts, nil
}

func rate(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
