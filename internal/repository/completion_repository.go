package repository

import (
	"habit_tracker_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type CompletionRepository struct {
	DB *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{DB: db}
}

func (r *CompletionRepository) Create(completion *model.HabitCompletion) error {
	return r.DB.Create(completion).Error
}

func (r *CompletionRepository) ExistsForDate(userHabitID string, date time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&model.HabitCompletion{}).
		Where("user_habit_id = ? AND completion_date = ?", userHabitID, date).
		Count(&count).Error
	return count > 0, err
}

// ExistsInRange 周/月周期以日期区间判断该周期内是否已完成
func (r *CompletionRepository) ExistsInRange(userHabitID string, start, end time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&model.HabitCompletion{}).
		Where("user_habit_id = ? AND completion_date >= ? AND completion_date <= ?", userHabitID, start, end).
		Count(&count).Error
	return count > 0, err
}

func (r *CompletionRepository) CountByUserHabit(userHabitID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.HabitCompletion{}).
		Where("user_habit_id = ?", userHabitID).
		Count(&count).Error
	return count, err
}

func (r *CompletionRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.HabitCompletion{}).
		Joins("JOIN user_habits ON user_habits.id = habit_completions.user_habit_id").
		Where("user_habits.user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *CompletionRepository) CountByUserInRange(userID uint, start, end time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.HabitCompletion{}).
		Joins("JOIN user_habits ON user_habits.id = habit_completions.user_habit_id").
		Where("user_habits.user_id = ? AND habit_completions.completion_date >= ? AND habit_completions.completion_date <= ?", userID, start, end).
		Count(&count).Error
	return count, err
}

func (r *CompletionRepository) ListByUserHabit(userHabitID string, limit int) ([]model.HabitCompletion, error) {
	var completions []model.HabitCompletion
	query := r.DB.Where("user_habit_id = ?", userHabitID).Order("completion_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&completions).Error
	return completions, err
}

func (r *CompletionRepository) CountOnDate(date time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.HabitCompletion{}).
		Where("completion_date = ?", date).
		Count(&count).Error
	return count, err
}

// ExistsForUserAfter 用户在某时间点之后是否有任何完成记录（留存分析用）
func (r *CompletionRepository) ExistsForUserAfter(userID uint, after time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&model.HabitCompletion{}).
		Joins("JOIN user_habits ON user_habits.id = habit_completions.user_habit_id").
		Where("user_habits.user_id = ? AND habit_completions.completion_date >= ?", userID, after).
		Count(&count).Error
	return count > 0, err
}
