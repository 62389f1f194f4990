package repository

import (
	"habit_tracker_backend/internal/model"

	"gorm.io/gorm"
)

type PointRepository struct {
	DB *gorm.DB
}

func NewPointRepository(db *gorm.DB) *PointRepository {
	return &PointRepository{DB: db}
}

func (r *PointRepository) CreateTransaction(tx *gorm.DB, transaction *model.PointTransaction) error {
	return tx.Create(transaction).Error
}

// GetOrCreateForUpdate 行锁读取余额记录，必须在事务内调用
// 余额更新与流水追加共享同一事务边界
func (r *PointRepository) GetOrCreateForUpdate(tx *gorm.DB, userID uint) (*model.UserPoints, error) {
	var points model.UserPoints
	err := lockForUpdate(tx).
		Where("user_id = ?", userID).
		First(&points).Error
	if err == gorm.ErrRecordNotFound {
		points = model.UserPoints{UserID: userID, TotalPoints: 0, Level: 1}
		if err := tx.Create(&points).Error; err != nil {
			return nil, err
		}
		return &points, nil
	}
	if err != nil {
		return nil, err
	}
	return &points, nil
}

func (r *PointRepository) SaveBalance(tx *gorm.DB, points *model.UserPoints) error {
	return tx.Save(points).Error
}

func (r *PointRepository) FindBalance(userID uint) (*model.UserPoints, error) {
	var points model.UserPoints
	err := r.DB.Where("user_id = ?", userID).First(&points).Error
	if err == gorm.ErrRecordNotFound {
		return &model.UserPoints{UserID: userID, TotalPoints: 0, Level: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &points, nil
}

// SumByUser 流水金额之和，是余额的权威来源
func (r *PointRepository) SumByUser(userID uint) (int, error) {
	var sum *int
	err := r.DB.Model(&model.PointTransaction{}).
		Where("user_id = ?", userID).
		Select("SUM(amount)").
		Scan(&sum).Error
	if err != nil || sum == nil {
		return 0, err
	}
	return *sum, nil
}

func (r *PointRepository) ListByUser(userID uint, txType model.TransactionType, limit int) ([]model.PointTransaction, error) {
	var transactions []model.PointTransaction
	query := r.DB.Where("user_id = ?", userID).Order("created_at DESC")
	if txType != "" {
		query = query.Where("transaction_type = ?", txType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&transactions).Error
	return transactions, err
}

// HasMilestoneAward 某义务的某个连击里程碑是否已发放过
// 里程碑奖励金额互不相同，(类型, 引用, 金额) 可唯一定位一次发放
func (r *PointRepository) HasMilestoneAward(userID uint, referenceID string, amount int) (bool, error) {
	var count int64
	err := r.DB.Model(&model.PointTransaction{}).
		Where("user_id = ? AND transaction_type = ? AND reference_id = ? AND amount = ?",
			userID, model.TxStreak, referenceID, amount).
		Count(&count).Error
	return count > 0, err
}

type TypeSum struct {
	TransactionType model.TransactionType `json:"transactionType"`
	Total           int                   `json:"total"`
}

func (r *PointRepository) SumByType(userID uint, earned bool) ([]TypeSum, error) {
	var sums []TypeSum
	query := r.DB.Model(&model.PointTransaction{}).
		Select("transaction_type, SUM(amount) as total").
		Where("user_id = ?", userID).
		Group("transaction_type")
	if earned {
		query = query.Where("amount > 0").Order("total DESC")
	} else {
		query = query.Where("amount < 0").Order("total ASC")
	}
	err := query.Scan(&sums).Error
	return sums, err
}

// TopBalances 按总积分取前 N 名，排除选择不上榜的用户
func (r *PointRepository) TopBalances(limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	err := r.DB.Model(&model.UserPoints{}).
		Select("users.id as user_id, users.name, users.avatar, user_points.total_points as points, user_points.level").
		Joins("JOIN users ON users.id = user_points.user_id").
		Where("users.show_on_leaderboard = ? AND users.disabled = ?", true, false).
		Order("user_points.total_points DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// ListUserIDsWithBalance 有余额记录的全部用户，一致性巡检用
func (r *PointRepository) ListUserIDsWithBalance() ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.UserPoints{}).Pluck("user_id", &ids).Error
	return ids, err
}
