package repository

import (
	"habit_tracker_backend/internal/model"

	"gorm.io/gorm"
)

type UserHabitRepository struct {
	DB *gorm.DB
}

func NewUserHabitRepository(db *gorm.DB) *UserHabitRepository {
	return &UserHabitRepository{DB: db}
}

func (r *UserHabitRepository) Create(userHabit *model.UserHabit) error {
	return r.DB.Create(userHabit).Error
}

func (r *UserHabitRepository) FindByID(id string) (*model.UserHabit, error) {
	var userHabit model.UserHabit
	err := r.DB.Preload("Habit").First(&userHabit, "id = ?", id).Error
	return &userHabit, err
}

// FindByIDAndUser 带归属校验的查询，避免越权操作他人的打卡义务
func (r *UserHabitRepository) FindByIDAndUser(id string, userID uint) (*model.UserHabit, error) {
	var userHabit model.UserHabit
	err := r.DB.Preload("Habit").
		Where("id = ? AND user_id = ?", id, userID).
		First(&userHabit).Error
	return &userHabit, err
}

func (r *UserHabitRepository) ListByUser(userID uint, activeOnly bool) ([]model.UserHabit, error) {
	var userHabits []model.UserHabit
	query := r.DB.Preload("Habit").Preload("Habit.Category").Where("user_id = ?", userID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("created_at ASC").Find(&userHabits).Error
	return userHabits, err
}

// ListActiveByPeriodicity 漏打检测按周期类型分批扫描
func (r *UserHabitRepository) ListActiveByPeriodicity(p model.Periodicity) ([]model.UserHabit, error) {
	var userHabits []model.UserHabit
	err := r.DB.Preload("Habit").
		Joins("JOIN habits ON habits.id = user_habits.habit_id").
		Where("user_habits.is_active = ? AND habits.periodicity = ?", true, p).
		Find(&userHabits).Error
	return userHabits, err
}

func (r *UserHabitRepository) ExistsForUserAndHabit(userID uint, habitID string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.UserHabit{}).
		Where("user_id = ? AND habit_id = ? AND is_active = ?", userID, habitID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *UserHabitRepository) Update(userHabit *model.UserHabit) error {
	return r.DB.Save(userHabit).Error
}

func (r *UserHabitRepository) CountActiveByUser(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserHabit{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}

// MaxStreakByUser 用户所有义务中的最大当前连击
func (r *UserHabitRepository) MaxStreakByUser(userID uint) (int, error) {
	var max *int
	err := r.DB.Model(&model.UserHabit{}).
		Where("user_id = ?", userID).
		Select("MAX(streak)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}

func (r *UserHabitRepository) CountByHabit(habitID string, activeOnly bool) (int64, error) {
	var count int64
	query := r.DB.Model(&model.UserHabit{}).Where("habit_id = ?", habitID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Count(&count).Error
	return count, err
}
