package repository

import (
	"habit_tracker_backend/internal/model"

	"gorm.io/gorm"
)

type HabitRepository struct {
	DB *gorm.DB
}

func NewHabitRepository(db *gorm.DB) *HabitRepository {
	return &HabitRepository{DB: db}
}

func (r *HabitRepository) ListCategories() ([]model.Category, error) {
	var categories []model.Category
	err := r.DB.Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *HabitRepository) CreateCategory(category *model.Category) error {
	return r.DB.Create(category).Error
}

func (r *HabitRepository) FindCategoryByID(id string) (*model.Category, error) {
	var category model.Category
	err := r.DB.First(&category, "id = ?", id).Error
	return &category, err
}

func (r *HabitRepository) ListHabits(categoryID string) ([]model.Habit, error) {
	var habits []model.Habit
	query := r.DB.Preload("Category").Order("name ASC")
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	err := query.Find(&habits).Error
	return habits, err
}

func (r *HabitRepository) FindHabitByID(id string) (*model.Habit, error) {
	var habit model.Habit
	err := r.DB.Preload("Category").First(&habit, "id = ?", id).Error
	return &habit, err
}

func (r *HabitRepository) CreateHabit(habit *model.Habit) error {
	return r.DB.Create(habit).Error
}

func (r *HabitRepository) UpdateHabit(habit *model.Habit) error {
	return r.DB.Save(habit).Error
}

func (r *HabitRepository) DeleteHabit(id string) error {
	return r.DB.Delete(&model.Habit{}, "id = ?", id).Error
}
