package repository

import (
	"habit_tracker_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type MissedHabitRepository struct {
	DB *gorm.DB
}

func NewMissedHabitRepository(db *gorm.DB) *MissedHabitRepository {
	return &MissedHabitRepository{DB: db}
}

func (r *MissedHabitRepository) Create(missed *model.MissedHabit) error {
	return r.DB.Create(missed).Error
}

func (r *MissedHabitRepository) ExistsForDate(userHabitID string, date time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&model.MissedHabit{}).
		Where("user_habit_id = ? AND missed_date = ?", userHabitID, date).
		Count(&count).Error
	return count > 0, err
}

func (r *MissedHabitRepository) CountByUserHabit(userHabitID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.MissedHabit{}).
		Where("user_habit_id = ?", userHabitID).
		Count(&count).Error
	return count, err
}

func (r *MissedHabitRepository) CountByUserInRange(userID uint, start, end time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.MissedHabit{}).
		Joins("JOIN user_habits ON user_habits.id = missed_habits.user_habit_id").
		Where("user_habits.user_id = ? AND missed_habits.missed_date >= ? AND missed_habits.missed_date <= ?", userID, start, end).
		Count(&count).Error
	return count, err
}

func (r *MissedHabitRepository) ListByUserHabit(userHabitID string, limit int) ([]model.MissedHabit, error) {
	var missed []model.MissedHabit
	query := r.DB.Where("user_habit_id = ?", userHabitID).Order("missed_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&missed).Error
	return missed, err
}
