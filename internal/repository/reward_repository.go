package repository

import (
	"habit_tracker_backend/internal/model"

	"gorm.io/gorm"
)

type RewardRepository struct {
	DB *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{DB: db}
}

func (r *RewardRepository) ListActive() ([]model.Reward, error) {
	var rewards []model.Reward
	err := r.DB.Where("is_active = ?", true).Order("points_required ASC").Find(&rewards).Error
	return rewards, err
}

func (r *RewardRepository) ListAll() ([]model.Reward, error) {
	var rewards []model.Reward
	err := r.DB.Order("points_required ASC").Find(&rewards).Error
	return rewards, err
}

func (r *RewardRepository) FindByID(id string) (*model.Reward, error) {
	var reward model.Reward
	err := r.DB.First(&reward, "id = ?", id).Error
	return &reward, err
}

// FindActiveForUpdate 兑换时行锁读取，库存扣减与积分扣除同事务
func (r *RewardRepository) FindActiveForUpdate(tx *gorm.DB, id string) (*model.Reward, error) {
	var reward model.Reward
	err := lockForUpdate(tx).
		Where("id = ? AND is_active = ?", id, true).
		First(&reward).Error
	return &reward, err
}

func (r *RewardRepository) Create(reward *model.Reward) error {
	return r.DB.Create(reward).Error
}

func (r *RewardRepository) Update(reward *model.Reward) error {
	return r.DB.Save(reward).Error
}

func (r *RewardRepository) SaveTx(tx *gorm.DB, reward *model.Reward) error {
	return tx.Save(reward).Error
}

func (r *RewardRepository) CreateRedemption(tx *gorm.DB, redemption *model.Redemption) error {
	return tx.Create(redemption).Error
}

func (r *RewardRepository) FindRedemptionByID(id string) (*model.Redemption, error) {
	var redemption model.Redemption
	err := r.DB.Preload("Reward").First(&redemption, "id = ?", id).Error
	return &redemption, err
}

// FindRedemptionForUpdate 状态流转前行锁读取，防止并发取消/发放互相穿透
func (r *RewardRepository) FindRedemptionForUpdate(tx *gorm.DB, id string) (*model.Redemption, error) {
	var redemption model.Redemption
	err := lockForUpdate(tx).First(&redemption, "id = ?", id).Error
	return &redemption, err
}

func (r *RewardRepository) ListRedemptionsByUser(userID uint) ([]model.Redemption, error) {
	var redemptions []model.Redemption
	err := r.DB.Preload("Reward").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&redemptions).Error
	return redemptions, err
}

func (r *RewardRepository) UpdateRedemption(redemption *model.Redemption) error {
	return r.DB.Save(redemption).Error
}

func (r *RewardRepository) UpdateRedemptionTx(tx *gorm.DB, redemption *model.Redemption) error {
	return tx.Save(redemption).Error
}
