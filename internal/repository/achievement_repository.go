package repository

import (
	"habit_tracker_backend/internal/model"

	"gorm.io/gorm"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) ListDefinitions() ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.Order("required ASC").Find(&achievements).Error
	return achievements, err
}

func (r *AchievementRepository) FindDefinitionByID(id string) (*model.Achievement, error) {
	var achievement model.Achievement
	err := r.DB.First(&achievement, "id = ?", id).Error
	return &achievement, err
}

func (r *AchievementRepository) CreateDefinition(achievement *model.Achievement) error {
	return r.DB.Create(achievement).Error
}

func (r *AchievementRepository) UpdateDefinition(achievement *model.Achievement) error {
	return r.DB.Save(achievement).Error
}

func (r *AchievementRepository) DeleteDefinition(id string) error {
	return r.DB.Delete(&model.Achievement{}, "id = ?", id).Error
}

// ListUnearned 用户尚未解锁的成就定义
func (r *AchievementRepository) ListUnearned(userID uint) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.
		Where("id NOT IN (?)",
			r.DB.Model(&model.UserAchievement{}).Select("achievement_id").Where("user_id = ?", userID)).
		Find(&achievements).Error
	return achievements, err
}

func (r *AchievementRepository) ListEarned(userID uint) ([]model.UserAchievement, error) {
	var earned []model.UserAchievement
	err := r.DB.Preload("Achievement").
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&earned).Error
	return earned, err
}

func (r *AchievementRepository) CountEarned(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserAchievement{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CreateUserAchievement 唯一约束是幂等解锁的最终防线
// 并发评估下的重复插入由调用方识别 gorm.ErrDuplicatedKey 处理
func (r *AchievementRepository) CreateUserAchievement(tx *gorm.DB, ua *model.UserAchievement) error {
	return tx.Create(ua).Error
}
