package repository

import (
	"habit_tracker_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type AnalyticsRepository struct {
	DB *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{DB: db}
}

func (r *AnalyticsRepository) GetOrCreate(userID uint, habitID string) (*model.HabitAnalytics, error) {
	var analytics model.HabitAnalytics
	err := r.DB.Where("user_id = ? AND habit_id = ?", userID, habitID).First(&analytics).Error
	if err == gorm.ErrRecordNotFound {
		analytics = model.HabitAnalytics{UserID: userID, HabitID: habitID}
		if err := r.DB.Create(&analytics).Error; err != nil {
			return nil, err
		}
		return &analytics, nil
	}
	if err != nil {
		return nil, err
	}
	return &analytics, nil
}

func (r *AnalyticsRepository) Save(analytics *model.HabitAnalytics) error {
	analytics.LastCalculated = time.Now()
	return r.DB.Save(analytics).Error
}

func (r *AnalyticsRepository) ListByUser(userID uint) ([]model.HabitAnalytics, error) {
	var analytics []model.HabitAnalytics
	err := r.DB.Where("user_id = ?", userID).Find(&analytics).Error
	return analytics, err
}

// StreakDistribution 当前连击的直方图分布
func (r *AnalyticsRepository) StreakDistribution(buckets []model.StreakBucket) ([]model.StreakBucket, error) {
	for i := range buckets {
		query := r.DB.Model(&model.UserHabit{}).
			Where("is_active = ? AND streak >= ?", true, buckets[i].Min)
		if buckets[i].Max >= 0 {
			query = query.Where("streak <= ?", buckets[i].Max)
		}
		if err := query.Count(&buckets[i].Count).Error; err != nil {
			return nil, err
		}
	}
	return buckets, nil
}

func (r *AnalyticsRepository) GlobalStats() (*model.GlobalStats, error) {
	var stats model.GlobalStats

	if err := r.DB.Model(&model.User{}).Where("disabled = ?", false).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := r.DB.Model(&model.UserHabit{}).Count(&stats.TotalHabits).Error; err != nil {
		return nil, err
	}
	if err := r.DB.Model(&model.HabitCompletion{}).Count(&stats.TotalCompletions).Error; err != nil {
		return nil, err
	}

	var maxStreak *int
	if err := r.DB.Model(&model.UserHabit{}).Select("MAX(streak)").Scan(&maxStreak).Error; err != nil {
		return nil, err
	}
	if maxStreak != nil {
		stats.MaxStreak = *maxStreak
	}

	var avgStreak *float64
	if err := r.DB.Model(&model.UserHabit{}).Where("is_active = ?", true).Select("AVG(streak)").Scan(&avgStreak).Error; err != nil {
		return nil, err
	}
	if avgStreak != nil {
		stats.AvgStreak = *avgStreak
	}

	return &stats, nil
}

// ListUsersRegisteredBetween 留存分析的群组查询
func (r *AnalyticsRepository) ListUsersRegisteredBetween(start, end time.Time) ([]model.User, error) {
	var users []model.User
	err := r.DB.Where("created_at >= ? AND created_at < ?", start, end).Find(&users).Error
	return users, err
}

func (r *AnalyticsRepository) ListAllUserHabits() ([]model.UserHabit, error) {
	var userHabits []model.UserHabit
	err := r.DB.Preload("Habit").Find(&userHabits).Error
	return userHabits, err
}
