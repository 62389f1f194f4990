package repository

import (
	"errors"
	"habit_tracker_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type StreakRepository struct {
	DB *gorm.DB
}

func NewStreakRepository(db *gorm.DB) *StreakRepository {
	return &StreakRepository{DB: db}
}

func (r *StreakRepository) Create(streak *model.HabitStreak) error {
	return r.DB.Create(streak).Error
}

func (r *StreakRepository) Update(streak *model.HabitStreak) error {
	return r.DB.Save(streak).Error
}

// FindOpen 返回进行中的连击记录（end_date 为空），没有时返回 nil
func (r *StreakRepository) FindOpen(userHabitID string) (*model.HabitStreak, error) {
	var streak model.HabitStreak
	err := r.DB.Where("user_habit_id = ? AND end_date IS NULL", userHabitID).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// CloseOpen 关闭进行中的连击记录，没有 open 记录时为空操作
func (r *StreakRepository) CloseOpen(userHabitID string, endDate time.Time) error {
	return r.DB.Model(&model.HabitStreak{}).
		Where("user_habit_id = ? AND end_date IS NULL", userHabitID).
		Update("end_date", endDate).
		Error
}

func (r *StreakRepository) ListByUserHabit(userHabitID string) ([]model.HabitStreak, error) {
	var streaks []model.HabitStreak
	err := r.DB.Where("user_habit_id = ?", userHabitID).
		Order("start_date DESC").
		Find(&streaks).Error
	return streaks, err
}

// MaxLengthByUser 历史连击的最大长度（含进行中的）
func (r *StreakRepository) MaxLengthByUser(userID uint) (int, error) {
	var max *int
	err := r.DB.Model(&model.HabitStreak{}).
		Joins("JOIN user_habits ON user_habits.id = habit_streaks.user_habit_id").
		Where("user_habits.user_id = ?", userID).
		Select("MAX(habit_streaks.streak_length)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}

func (r *StreakRepository) MaxLengthByUserHabit(userHabitID string) (int, error) {
	var max *int
	err := r.DB.Model(&model.HabitStreak{}).
		Where("user_habit_id = ?", userHabitID).
		Select("MAX(streak_length)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}
