package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/internal/util"
	"habit_tracker_backend/pkg/logger"
	"habit_tracker_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const leaderboardCacheKey = "habit:leaderboard:top"

// streakMilestones 连击里程碑与一次性奖励积分
// 金额互不相同，积分流水里 (STREAK, reference, amount) 可唯一定位一次发放
var streakMilestones = map[int]int{
	7:   25,
	14:  50,
	30:  100,
	90:  250,
	180: 500,
	365: 1000,
}

// CompletionPoints 单次完成的积分：基础 10 分 + 每满 7 天连击加 5 分，封顶加 50
func CompletionPoints(streak int) int {
	bonus := streak / 7 * 5
	if bonus > 50 {
		bonus = 50
	}
	return 10 + bonus
}

type PointsService struct {
	db          *gorm.DB
	pointRepo   *repository.PointRepository
	redisClient *redis.Client
}

func NewPointsService(db *gorm.DB, pointRepo *repository.PointRepository, redisClient *redis.Client) *PointsService {
	return &PointsService{db: db, pointRepo: pointRepo, redisClient: redisClient}
}

type AwardResult struct {
	Transaction *model.PointTransaction
	Balance     *model.UserPoints
	LeveledUp   bool
}

// Award 入账一笔正积分：流水追加与余额更新在同一事务内完成
func (s *PointsService) Award(userID uint, amount int, txType model.TransactionType, description, referenceID string) (*AwardResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("award amount must be positive, got %d", amount)
	}

	result := &AwardResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		transaction := &model.PointTransaction{
			UserID:          userID,
			Amount:          amount,
			TransactionType: txType,
			Description:     description,
			ReferenceID:     referenceID,
		}
		if err := s.pointRepo.CreateTransaction(tx, transaction); err != nil {
			return err
		}

		balance, err := s.pointRepo.GetOrCreateForUpdate(tx, userID)
		if err != nil {
			return err
		}
		oldLevel := balance.Level
		balance.TotalPoints += amount
		balance.Level = model.LevelForPoints(balance.TotalPoints)
		if err := s.pointRepo.SaveBalance(tx, balance); err != nil {
			return err
		}

		result.Transaction = transaction
		result.Balance = balance
		result.LeveledUp = balance.Level > oldLevel
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.PointsAwarded.WithLabelValues(string(txType)).Add(float64(amount))
	s.InvalidateLeaderboard(context.Background())
	return result, nil
}

// AwardInTx 在调用方事务内入账正积分，退款流程用它保证余额读写走行锁
func (s *PointsService) AwardInTx(tx *gorm.DB, userID uint, amount int, txType model.TransactionType, description, referenceID string) (*model.PointTransaction, *model.UserPoints, error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("award amount must be positive, got %d", amount)
	}

	transaction := &model.PointTransaction{
		UserID:          userID,
		Amount:          amount,
		TransactionType: txType,
		Description:     description,
		ReferenceID:     referenceID,
	}
	if err := s.pointRepo.CreateTransaction(tx, transaction); err != nil {
		return nil, nil, err
	}

	balance, err := s.pointRepo.GetOrCreateForUpdate(tx, userID)
	if err != nil {
		return nil, nil, err
	}
	balance.TotalPoints += amount
	balance.Level = model.LevelForPoints(balance.TotalPoints)
	if err := s.pointRepo.SaveBalance(tx, balance); err != nil {
		return nil, nil, err
	}
	return transaction, balance, nil
}

// SpendInTx 在调用方事务内扣分，余额不足返回 ErrInsufficientBalance
// 兑换流程用它把扣分、减库存、建兑换单绑进同一事务
func (s *PointsService) SpendInTx(tx *gorm.DB, userID uint, amount int, txType model.TransactionType, description, referenceID string) (*model.PointTransaction, *model.UserPoints, error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("spend amount must be positive, got %d", amount)
	}

	balance, err := s.pointRepo.GetOrCreateForUpdate(tx, userID)
	if err != nil {
		return nil, nil, err
	}
	if balance.TotalPoints < amount {
		return nil, nil, util.ErrInsufficientBalance
	}

	transaction := &model.PointTransaction{
		UserID:          userID,
		Amount:          -amount,
		TransactionType: txType,
		Description:     description,
		ReferenceID:     referenceID,
	}
	if err := s.pointRepo.CreateTransaction(tx, transaction); err != nil {
		return nil, nil, err
	}

	balance.TotalPoints -= amount
	balance.Level = model.LevelForPoints(balance.TotalPoints)
	if err := s.pointRepo.SaveBalance(tx, balance); err != nil {
		return nil, nil, err
	}
	return transaction, balance, nil
}

func (s *PointsService) Spend(userID uint, amount int, txType model.TransactionType, description, referenceID string) (*model.UserPoints, error) {
	var balance *model.UserPoints
	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, b, err := s.SpendInTx(tx, userID, amount, txType, description, referenceID)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.InvalidateLeaderboard(context.Background())
	return balance, nil
}

// AwardStreakMilestone 连击到达里程碑时发放一次性奖励
// 同一义务的同一里程碑只发一次，重复调用返回 (0, nil)
func (s *PointsService) AwardStreakMilestone(userID uint, userHabitID string, streak int) (int, error) {
	amount, ok := streakMilestones[streak]
	if !ok {
		return 0, nil
	}

	awarded, err := s.pointRepo.HasMilestoneAward(userID, userHabitID, amount)
	if err != nil {
		return 0, err
	}
	if awarded {
		return 0, nil
	}

	description := fmt.Sprintf("%d-period streak milestone", streak)
	if _, err := s.Award(userID, amount, model.TxStreak, description, userHabitID); err != nil {
		return 0, err
	}
	return amount, nil
}

func (s *PointsService) Balance(userID uint) (*model.UserPoints, error) {
	return s.pointRepo.FindBalance(userID)
}

func (s *PointsService) History(userID uint, txType model.TransactionType, limit int) ([]model.PointTransaction, error) {
	return s.pointRepo.ListByUser(userID, txType, limit)
}

type PointsSummary struct {
	Balance       *model.UserPoints    `json:"balance"`
	LifetimeEarn  int                  `json:"lifetimeEarned"`
	LifetimeSpent int                  `json:"lifetimeSpent"`
	EarnedByType  []repository.TypeSum `json:"earnedByType"`
	SpentByType   []repository.TypeSum `json:"spentByType"`
}

func (s *PointsService) Summary(userID uint) (*PointsSummary, error) {
	balance, err := s.pointRepo.FindBalance(userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.pointRepo.SumByType(userID, true)
	if err != nil {
		return nil, err
	}
	spent, err := s.pointRepo.SumByType(userID, false)
	if err != nil {
		return nil, err
	}

	summary := &PointsSummary{Balance: balance, EarnedByType: earned, SpentByType: spent}
	for _, t := range earned {
		summary.LifetimeEarn += t.Total
	}
	for _, t := range spent {
		summary.LifetimeSpent += -t.Total
	}
	return summary, nil
}

// Reconcile 用流水总和校正余额缓存，返回修正前的偏差
// 偏差非零说明出现过部分失败，记一条一致性告警后以流水为准修复
func (s *PointsService) Reconcile(userID uint) (int, error) {
	var drift int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		balance, err := s.pointRepo.GetOrCreateForUpdate(tx, userID)
		if err != nil {
			return err
		}
		ledger, err := s.pointRepo.SumByUser(userID)
		if err != nil {
			return err
		}

		drift = balance.TotalPoints - ledger
		if drift == 0 {
			return nil
		}

		logger.Log.Warn("point balance diverged from ledger, repairing",
			zap.Uint("user_id", userID),
			zap.Int("cached", balance.TotalPoints),
			zap.Int("ledger", ledger),
			zap.Error(util.ErrInconsistentLedger))

		balance.TotalPoints = ledger
		balance.Level = model.LevelForPoints(ledger)
		return s.pointRepo.SaveBalance(tx, balance)
	})
	return drift, err
}

type ReconcileReport struct {
	UsersChecked  int `json:"usersChecked"`
	UsersRepaired int `json:"usersRepaired"`
	Errors        int `json:"errors"`
}

// ReconcileAll 全量巡检所有有余额记录的用户，单个用户失败不影响其余
func (s *PointsService) ReconcileAll() (*ReconcileReport, error) {
	userIDs, err := s.pointRepo.ListUserIDsWithBalance()
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	for _, userID := range userIDs {
		report.UsersChecked++
		drift, err := s.Reconcile(userID)
		if err != nil {
			report.Errors++
			logger.Log.Error("reconcile failed", zap.Uint("user_id", userID), zap.Error(err))
			continue
		}
		if drift != 0 {
			report.UsersRepaired++
		}
	}
	return report, nil
}

func (s *PointsService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, fmt.Sprintf("%s:%d", leaderboardCacheKey, limit)).Result()
		if err == nil {
			var entries []model.LeaderboardEntry
			if jsonErr := json.Unmarshal([]byte(cached), &entries); jsonErr == nil {
				return entries, nil
			}
		}
	}

	entries, err := s.pointRepo.TopBalances(limit)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		if payload, err := json.Marshal(entries); err == nil {
			s.redisClient.Set(ctx, fmt.Sprintf("%s:%d", leaderboardCacheKey, limit), payload, 5*time.Minute)
		}
	}
	return entries, nil
}

// InvalidateLeaderboard 积分变动后清掉排行榜缓存，缓存缺失时直接回源
func (s *PointsService) InvalidateLeaderboard(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	keys, err := s.redisClient.Keys(ctx, leaderboardCacheKey+":*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	s.redisClient.Del(ctx, keys...)
}
