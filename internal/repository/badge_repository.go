package repository

import (
	"habit_tracker_backend/internal/model"

	"gorm.io/gorm"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) ListDefinitions() ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.Order("required ASC").Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) FindDefinitionByID(id string) (*model.Badge, error) {
	var badge model.Badge
	err := r.DB.First(&badge, "id = ?", id).Error
	return &badge, err
}

func (r *BadgeRepository) CreateDefinition(badge *model.Badge) error {
	return r.DB.Create(badge).Error
}

func (r *BadgeRepository) UpdateDefinition(badge *model.Badge) error {
	return r.DB.Save(badge).Error
}

func (r *BadgeRepository) DeleteDefinition(id string) error {
	return r.DB.Delete(&model.Badge{}, "id = ?", id).Error
}

func (r *BadgeRepository) ListUnearned(userID uint) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.
		Where("id NOT IN (?)",
			r.DB.Model(&model.UserBadge{}).Select("badge_id").Where("user_id = ?", userID)).
		Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) ListEarned(userID uint) ([]model.UserBadge, error) {
	var earned []model.UserBadge
	err := r.DB.Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&earned).Error
	return earned, err
}

func (r *BadgeRepository) CreateUserBadge(tx *gorm.DB, ub *model.UserBadge) error {
	return tx.Create(ub).Error
}
