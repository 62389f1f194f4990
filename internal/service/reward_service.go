package service

import (
	"errors"
	"time"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/internal/util"

	"gorm.io/gorm"
)

type RewardService struct {
	db            *gorm.DB
	rewardRepo    *repository.RewardRepository
	pointsService *PointsService
}

func NewRewardService(db *gorm.DB, rewardRepo *repository.RewardRepository, pointsService *PointsService) *RewardService {
	return &RewardService{db: db, rewardRepo: rewardRepo, pointsService: pointsService}
}

func (s *RewardService) ListRewards(includeInactive bool) ([]model.Reward, error) {
	if includeInactive {
		return s.rewardRepo.ListAll()
	}
	return s.rewardRepo.ListActive()
}

func (s *RewardService) CreateReward(reward *model.Reward) error {
	return s.rewardRepo.Create(reward)
}

func (s *RewardService) UpdateReward(reward *model.Reward) error {
	return s.rewardRepo.Update(reward)
}

// Redeem 兑换奖励：行锁库存、扣分、建兑换单在同一事务内
// 任何一步失败整体回滚，不会出现扣了分没发货单的情况
func (s *RewardService) Redeem(userID uint, rewardID string) (*model.Redemption, error) {
	var redemption *model.Redemption
	err := s.db.Transaction(func(tx *gorm.DB) error {
		reward, err := s.rewardRepo.FindActiveForUpdate(tx, rewardID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrRewardNotFound
			}
			return err
		}

		if reward.Limited {
			if reward.Stock <= 0 {
				return util.ErrRewardOutOfStock
			}
			reward.Stock--
			if err := s.rewardRepo.SaveTx(tx, reward); err != nil {
				return err
			}
		}

		redemption = &model.Redemption{
			UserID:      userID,
			RewardID:    reward.ID,
			PointsSpent: reward.PointsRequired,
			Status:      model.RedemptionPending,
		}
		if err := s.rewardRepo.CreateRedemption(tx, redemption); err != nil {
			return err
		}

		transaction, _, err := s.pointsService.SpendInTx(tx, userID, reward.PointsRequired,
			model.TxRedemption, "Reward redeemed: "+reward.Name, redemption.ID)
		if err != nil {
			return err
		}

		redemption.TransactionID = transaction.ID
		return s.rewardRepo.UpdateRedemptionTx(tx, redemption)
	})
	if err != nil {
		return nil, err
	}
	return s.rewardRepo.FindRedemptionByID(redemption.ID)
}

func (s *RewardService) ListRedemptions(userID uint) ([]model.Redemption, error) {
	return s.rewardRepo.ListRedemptionsByUser(userID)
}

// Cancel 用户取消待发放的兑换，退回积分并恢复库存
// 状态检查与退款在同一事务内的行锁下进行，并发取消只有一次能成功
func (s *RewardService) Cancel(userID uint, redemptionID string) (*model.Redemption, error) {
	var redemption *model.Redemption
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		redemption, err = s.lockRedemption(tx, redemptionID)
		if err != nil {
			return err
		}
		if redemption.UserID != userID {
			return util.ErrPermissionDenied
		}
		if redemption.Status != model.RedemptionPending {
			return errors.New("only pending redemptions can be cancelled")
		}
		return s.refundInTx(tx, redemption, model.RedemptionCancelled, "Redemption cancelled")
	})
	if err != nil {
		return nil, err
	}
	return s.rewardRepo.FindRedemptionByID(redemption.ID)
}

// Fulfill 管理员标记兑换已发放
func (s *RewardService) Fulfill(redemptionID string) (*model.Redemption, error) {
	var redemption *model.Redemption
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		redemption, err = s.lockRedemption(tx, redemptionID)
		if err != nil {
			return err
		}
		if redemption.Status != model.RedemptionPending {
			return errors.New("only pending redemptions can be fulfilled")
		}

		now := time.Now()
		redemption.Status = model.RedemptionFulfilled
		redemption.FulfilledAt = &now
		return s.rewardRepo.UpdateRedemptionTx(tx, redemption)
	})
	if err != nil {
		return nil, err
	}
	return s.rewardRepo.FindRedemptionByID(redemption.ID)
}

// Refund 管理员对已发放的兑换执行退款
func (s *RewardService) Refund(redemptionID, notes string) (*model.Redemption, error) {
	var redemption *model.Redemption
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		redemption, err = s.lockRedemption(tx, redemptionID)
		if err != nil {
			return err
		}
		if redemption.Status != model.RedemptionFulfilled {
			return errors.New("only fulfilled redemptions can be refunded")
		}
		redemption.Notes = notes
		return s.refundInTx(tx, redemption, model.RedemptionRefunded, "Redemption refunded")
	})
	if err != nil {
		return nil, err
	}
	return s.rewardRepo.FindRedemptionByID(redemption.ID)
}

// refundInTx 在调用方事务内退回积分、恢复库存、更新状态
func (s *RewardService) refundInTx(tx *gorm.DB, redemption *model.Redemption, status model.RedemptionStatus, description string) error {
	_, _, err := s.pointsService.AwardInTx(tx, redemption.UserID, redemption.PointsSpent,
		model.TxRedemption, description, redemption.ID)
	if err != nil {
		return err
	}

	reward, err := s.rewardRepo.FindActiveForUpdate(tx, redemption.RewardID)
	if err == nil && reward.Limited {
		reward.Stock++
		if err := s.rewardRepo.SaveTx(tx, reward); err != nil {
			return err
		}
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	redemption.Status = status
	return s.rewardRepo.UpdateRedemptionTx(tx, redemption)
}

func (s *RewardService) lockRedemption(tx *gorm.DB, redemptionID string) (*model.Redemption, error) {
	redemption, err := s.rewardRepo.FindRedemptionForUpdate(tx, redemptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRedemptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return redemption, nil
}
