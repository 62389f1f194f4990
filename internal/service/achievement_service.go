package service

import (
	"errors"
	"fmt"
	"time"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/pkg/logger"
	"habit_tracker_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AchievementService struct {
	db              *gorm.DB
	achievementRepo *repository.AchievementRepository
	badgeRepo       *repository.BadgeRepository
	completionRepo  *repository.CompletionRepository
	userHabitRepo   *repository.UserHabitRepository
	streakRepo      *repository.StreakRepository
	pointRepo       *repository.PointRepository
	pointsService   *PointsService
}

func NewAchievementService(
	db *gorm.DB,
	achievementRepo *repository.AchievementRepository,
	badgeRepo *repository.BadgeRepository,
	completionRepo *repository.CompletionRepository,
	userHabitRepo *repository.UserHabitRepository,
	streakRepo *repository.StreakRepository,
	pointRepo *repository.PointRepository,
	pointsService *PointsService,
) *AchievementService {
	return &AchievementService{
		db:              db,
		achievementRepo: achievementRepo,
		badgeRepo:       badgeRepo,
		completionRepo:  completionRepo,
		userHabitRepo:   userHabitRepo,
		streakRepo:      streakRepo,
		pointRepo:       pointRepo,
		pointsService:   pointsService,
	}
}

// strategyProgress 按策略类型计算用户当前进度值
func (s *AchievementService) strategyProgress(userID uint, strategy model.StrategyType) (int, error) {
	switch strategy {
	case model.StrategyCompletionCount:
		count, err := s.completionRepo.CountByUser(userID)
		return int(count), err
	case model.StrategyMaxStreak:
		// 取当前连击与历史连击的较大者，重置过的连击仍然计入
		current, err := s.userHabitRepo.MaxStreakByUser(userID)
		if err != nil {
			return 0, err
		}
		historical, err := s.streakRepo.MaxLengthByUser(userID)
		if err != nil {
			return 0, err
		}
		if historical > current {
			return historical, nil
		}
		return current, nil
	case model.StrategyHabitDiversity:
		count, err := s.userHabitRepo.CountActiveByUser(userID)
		return int(count), err
	case model.StrategyUserLevel:
		balance, err := s.pointRepo.FindBalance(userID)
		if err != nil {
			return 0, err
		}
		return balance.Level, nil
	default:
		return 0, fmt.Errorf("unknown achievement strategy %q", strategy)
	}
}

// badgeProgress 徽章的进度值，口径与成就策略保持一致
func (s *AchievementService) badgeProgress(userID uint, badgeType model.BadgeType) (int, error) {
	switch badgeType {
	case model.BadgeAchievementCount:
		count, err := s.achievementRepo.CountEarned(userID)
		return int(count), err
	case model.BadgeMaxStreak:
		return s.strategyProgress(userID, model.StrategyMaxStreak)
	case model.BadgeLevelMilestone:
		balance, err := s.pointRepo.FindBalance(userID)
		if err != nil {
			return 0, err
		}
		return balance.Level, nil
	default:
		return 0, fmt.Errorf("unknown badge type %q", badgeType)
	}
}

// EvaluateAchievements 评估所有未解锁成就，返回本次新解锁的列表
// 唯一约束兜底并发重复解锁，撞到重复键按已解锁处理
func (s *AchievementService) EvaluateAchievements(userID uint) ([]model.Achievement, error) {
	unearned, err := s.achievementRepo.ListUnearned(userID)
	if err != nil {
		return nil, err
	}

	var unlocked []model.Achievement
	for _, achievement := range unearned {
		current, err := s.strategyProgress(userID, achievement.StrategyType)
		if err != nil {
			logger.Log.Error("achievement progress check failed",
				zap.Uint("user_id", userID),
				zap.String("achievement", achievement.Name),
				zap.Error(err))
			continue
		}
		if current < achievement.Required {
			continue
		}

		ua := &model.UserAchievement{
			UserID:        userID,
			AchievementID: achievement.ID,
			EarnedAt:      time.Now(),
		}
		if err := s.achievementRepo.CreateUserAchievement(s.db, ua); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			logger.Log.Error("achievement unlock failed",
				zap.Uint("user_id", userID),
				zap.String("achievement", achievement.Name),
				zap.Error(err))
			continue
		}

		monitoring.AchievementsUnlocked.Inc()
		unlocked = append(unlocked, achievement)

		if achievement.PointsAwarded > 0 {
			if _, err := s.pointsService.Award(userID, achievement.PointsAwarded,
				model.TxAchievement, "Achievement unlocked: "+achievement.Name, achievement.ID); err != nil {
				logger.Log.Error("achievement point award failed",
					zap.Uint("user_id", userID),
					zap.String("achievement", achievement.Name),
					zap.Error(err))
			}
		}
	}
	return unlocked, nil
}

// EvaluateBadges 评估所有未获得徽章，包括等级里程碑徽章
func (s *AchievementService) EvaluateBadges(userID uint) ([]model.Badge, error) {
	unearned, err := s.badgeRepo.ListUnearned(userID)
	if err != nil {
		return nil, err
	}

	var awarded []model.Badge
	for _, badge := range unearned {
		current, err := s.badgeProgress(userID, badge.BadgeType)
		if err != nil {
			logger.Log.Error("badge progress check failed",
				zap.Uint("user_id", userID),
				zap.String("badge", badge.Name),
				zap.Error(err))
			continue
		}
		if current < badge.Required {
			continue
		}

		ub := &model.UserBadge{
			UserID:   userID,
			BadgeID:  badge.ID,
			EarnedAt: time.Now(),
		}
		if err := s.badgeRepo.CreateUserBadge(s.db, ub); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			logger.Log.Error("badge award failed",
				zap.Uint("user_id", userID),
				zap.String("badge", badge.Name),
				zap.Error(err))
			continue
		}

		awarded = append(awarded, badge)

		if badge.PointsAwarded > 0 {
			if _, err := s.pointsService.Award(userID, badge.PointsAwarded,
				model.TxBadge, "Badge earned: "+badge.Name, badge.ID); err != nil {
				logger.Log.Error("badge point award failed",
					zap.Uint("user_id", userID),
					zap.String("badge", badge.Name),
					zap.Error(err))
			}
		}
	}
	return awarded, nil
}

// Evaluate 完成打卡后的一轮完整评估
// 成就解锁可能带来升级，所以徽章放在成就之后评估
func (s *AchievementService) Evaluate(userID uint) ([]model.Achievement, []model.Badge, error) {
	achievements, err := s.EvaluateAchievements(userID)
	if err != nil {
		return nil, nil, err
	}
	badges, err := s.EvaluateBadges(userID)
	if err != nil {
		return achievements, nil, err
	}
	return achievements, badges, nil
}

type AchievementProgress struct {
	Achievement model.Achievement `json:"achievement"`
	Current     int               `json:"current"`
	Earned      bool              `json:"earned"`
	EarnedAt    *time.Time        `json:"earnedAt,omitempty"`
}

// Progress 所有成就的进度一览，已解锁的带解锁时间
func (s *AchievementService) Progress(userID uint) ([]AchievementProgress, error) {
	definitions, err := s.achievementRepo.ListDefinitions()
	if err != nil {
		return nil, err
	}
	earned, err := s.achievementRepo.ListEarned(userID)
	if err != nil {
		return nil, err
	}

	earnedAt := make(map[string]time.Time, len(earned))
	for _, ua := range earned {
		earnedAt[ua.AchievementID] = ua.EarnedAt
	}

	progress := make([]AchievementProgress, 0, len(definitions))
	for _, def := range definitions {
		entry := AchievementProgress{Achievement: def}
		if at, ok := earnedAt[def.ID]; ok {
			entry.Earned = true
			entry.EarnedAt = &at
			entry.Current = def.Required
		} else {
			current, err := s.strategyProgress(userID, def.StrategyType)
			if err != nil {
				return nil, err
			}
			if current > def.Required {
				current = def.Required
			}
			entry.Current = current
		}
		progress = append(progress, entry)
	}
	return progress, nil
}

func (s *AchievementService) ListEarned(userID uint) ([]model.UserAchievement, error) {
	return s.achievementRepo.ListEarned(userID)
}

func (s *AchievementService) ListEarnedBadges(userID uint) ([]model.UserBadge, error) {
	return s.badgeRepo.ListEarned(userID)
}

func (s *AchievementService) ListBadgeDefinitions() ([]model.Badge, error) {
	return s.badgeRepo.ListDefinitions()
}

func (s *AchievementService) ListAchievementDefinitions() ([]model.Achievement, error) {
	return s.achievementRepo.ListDefinitions()
}

// CreateAchievementDefinition 新增成就定义，上线后立即参与后续评估
func (s *AchievementService) CreateAchievementDefinition(achievement *model.Achievement) error {
	switch achievement.StrategyType {
	case model.StrategyCompletionCount, model.StrategyMaxStreak,
		model.StrategyHabitDiversity, model.StrategyUserLevel:
	default:
		return fmt.Errorf("unknown achievement strategy %q", achievement.StrategyType)
	}
	if achievement.Required <= 0 {
		return fmt.Errorf("required value must be positive, got %d", achievement.Required)
	}
	return s.achievementRepo.CreateDefinition(achievement)
}

func (s *AchievementService) DeleteAchievementDefinition(id string) error {
	return s.achievementRepo.DeleteDefinition(id)
}

// CreateBadgeDefinition 新增徽章定义
func (s *AchievementService) CreateBadgeDefinition(badge *model.Badge) error {
	switch badge.BadgeType {
	case model.BadgeAchievementCount, model.BadgeMaxStreak, model.BadgeLevelMilestone:
	default:
		return fmt.Errorf("unknown badge type %q", badge.BadgeType)
	}
	if badge.Required <= 0 {
		return fmt.Errorf("required value must be positive, got %d", badge.Required)
	}
	return s.badgeRepo.CreateDefinition(badge)
}

func (s *AchievementService) DeleteBadgeDefinition(id string) error {
	return s.badgeRepo.DeleteDefinition(id)
}
