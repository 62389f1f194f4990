package service

import (
	"errors"
	"fmt"
	"time"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/internal/util"
	"habit_tracker_backend/pkg/logger"
	"habit_tracker_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HabitService struct {
	db                 *gorm.DB
	habitRepo          *repository.HabitRepository
	userHabitRepo      *repository.UserHabitRepository
	completionRepo     *repository.CompletionRepository
	missedRepo         *repository.MissedHabitRepository
	streakRepo         *repository.StreakRepository
	pointsService      *PointsService
	achievementService *AchievementService
	analyticsService   *AnalyticsService
}

func NewHabitService(
	db *gorm.DB,
	habitRepo *repository.HabitRepository,
	userHabitRepo *repository.UserHabitRepository,
	completionRepo *repository.CompletionRepository,
	missedRepo *repository.MissedHabitRepository,
	streakRepo *repository.StreakRepository,
	pointsService *PointsService,
	achievementService *AchievementService,
	analyticsService *AnalyticsService,
) *HabitService {
	return &HabitService{
		db:                 db,
		habitRepo:          habitRepo,
		userHabitRepo:      userHabitRepo,
		completionRepo:     completionRepo,
		missedRepo:         missedRepo,
		streakRepo:         streakRepo,
		pointsService:      pointsService,
		achievementService: achievementService,
		analyticsService:   analyticsService,
	}
}

func (s *HabitService) ListCategories() ([]model.Category, error) {
	return s.habitRepo.ListCategories()
}

func (s *HabitService) CreateCategory(name, description string) (*model.Category, error) {
	category := &model.Category{Name: name, Description: description}
	if err := s.habitRepo.CreateCategory(category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *HabitService) ListHabits(categoryID string) ([]model.Habit, error) {
	return s.habitRepo.ListHabits(categoryID)
}

func (s *HabitService) GetHabit(id string) (*model.Habit, error) {
	habit, err := s.habitRepo.FindHabitByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrHabitNotFound
	}
	return habit, err
}

func (s *HabitService) CreateHabit(name, description string, periodicity model.Periodicity, categoryID *string) (*model.Habit, error) {
	if !periodicity.IsValid() {
		return nil, fmt.Errorf("invalid periodicity %q", periodicity)
	}
	if categoryID != nil {
		if _, err := s.habitRepo.FindCategoryByID(*categoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrCategoryNotFound
			}
			return nil, err
		}
	}

	habit := &model.Habit{
		Name:        name,
		Description: description,
		Periodicity: periodicity,
		CategoryID:  categoryID,
	}
	if err := s.habitRepo.CreateHabit(habit); err != nil {
		return nil, err
	}
	return habit, nil
}

func (s *HabitService) UpdateHabit(id, name, description string, categoryID *string) (*model.Habit, error) {
	habit, err := s.GetHabit(id)
	if err != nil {
		return nil, err
	}

	// 周期类型不允许修改，已有的连击和漏打记录都依赖它
	if name != "" {
		habit.Name = name
	}
	if description != "" {
		habit.Description = description
	}
	if categoryID != nil {
		habit.CategoryID = categoryID
	}
	if err := s.habitRepo.UpdateHabit(habit); err != nil {
		return nil, err
	}
	return habit, nil
}

func (s *HabitService) DeleteHabit(id string) error {
	if _, err := s.GetHabit(id); err != nil {
		return err
	}

	active, err := s.userHabitRepo.CountByHabit(id, true)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("habit has %d active followers and cannot be deleted", active)
	}
	return s.habitRepo.DeleteHabit(id)
}

// AdoptHabit 用户领取一个习惯模板，生成打卡义务
func (s *HabitService) AdoptHabit(userID uint, habitID string) (*model.UserHabit, error) {
	if _, err := s.GetHabit(habitID); err != nil {
		return nil, err
	}

	exists, err := s.userHabitRepo.ExistsForUserAndHabit(userID, habitID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("habit already adopted")
	}

	userHabit := &model.UserHabit{
		UserID:    userID,
		HabitID:   habitID,
		Streak:    0,
		IsActive:  true,
		StartDate: DateOnly(time.Now()),
	}
	if err := s.userHabitRepo.Create(userHabit); err != nil {
		return nil, err
	}
	return s.userHabitRepo.FindByID(userHabit.ID)
}

// AbandonHabit 停用打卡义务，停用后不再参与漏打检测
// 进行中的连击记录在最后完成日处关闭
func (s *HabitService) AbandonHabit(userID uint, userHabitID string) error {
	userHabit, err := s.findOwned(userID, userHabitID)
	if err != nil {
		return err
	}
	if !userHabit.IsActive {
		return util.ErrHabitInactive
	}

	endDate := DateOnly(time.Now())
	if userHabit.LastCompleted != nil {
		endDate = DateOnly(*userHabit.LastCompleted)
	}
	if err := s.streakRepo.CloseOpen(userHabitID, endDate); err != nil {
		return err
	}

	userHabit.IsActive = false
	return s.userHabitRepo.Update(userHabit)
}

type UserHabitStatus struct {
	UserHabit           model.UserHabit `json:"userHabit"`
	CompletedThisPeriod bool            `json:"completedThisPeriod"`
	CurrentPeriodStart  time.Time       `json:"currentPeriodStart"`
	CurrentPeriodEnd    time.Time       `json:"currentPeriodEnd"`
}

// ListUserHabits 用户的义务列表，带当前周期的完成状态
func (s *HabitService) ListUserHabits(userID uint, activeOnly bool) ([]UserHabitStatus, error) {
	userHabits, err := s.userHabitRepo.ListByUser(userID, activeOnly)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	statuses := make([]UserHabitStatus, 0, len(userHabits))
	for _, uh := range userHabits {
		status := UserHabitStatus{UserHabit: uh}
		if uh.Habit != nil {
			period, err := PeriodContaining(now, uh.Habit.Periodicity)
			if err != nil {
				return nil, err
			}
			completed, err := s.completionRepo.ExistsInRange(uh.ID, period.Start, period.Boundary)
			if err != nil {
				return nil, err
			}
			status.CompletedThisPeriod = completed
			status.CurrentPeriodStart = period.Start
			status.CurrentPeriodEnd = period.Boundary
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *HabitService) GetUserHabit(userID uint, userHabitID string) (*model.UserHabit, error) {
	return s.findOwned(userID, userHabitID)
}

type CompletionResult struct {
	Completion      *model.HabitCompletion `json:"completion"`
	Streak          int                    `json:"streak"`
	PointsAwarded   int                    `json:"pointsAwarded"`
	MilestoneBonus  int                    `json:"milestoneBonus"`
	TotalPoints     int                    `json:"totalPoints"`
	Level           int                    `json:"level"`
	LeveledUp       bool                   `json:"leveledUp"`
	NewAchievements []model.Achievement    `json:"newAchievements"`
	NewBadges       []model.Badge          `json:"newBadges"`
}

// CompleteHabit 记录一次打卡并推进连击
// 完成记录与连击更新在同一事务内，积分和成就评估在提交后尽力执行：
// 游戏化环节的失败只记日志，绝不回滚已经落库的打卡
func (s *HabitService) CompleteHabit(userID uint, userHabitID string, date time.Time) (*CompletionResult, error) {
	userHabit, err := s.findOwned(userID, userHabitID)
	if err != nil {
		return nil, err
	}
	if !userHabit.IsActive {
		return nil, util.ErrHabitInactive
	}
	if userHabit.Habit == nil {
		return nil, util.ErrHabitNotFound
	}
	periodicity := userHabit.Habit.Periodicity

	day := DateOnly(date)
	today := DateOnly(time.Now())
	if day.After(today) {
		return nil, util.ErrFutureCompletion
	}
	if day.Before(DateOnly(userHabit.StartDate)) {
		return nil, fmt.Errorf("completion date precedes habit start date")
	}

	period, err := PeriodContaining(day, periodicity)
	if err != nil {
		return nil, err
	}
	alreadyDone, err := s.completionRepo.ExistsInRange(userHabit.ID, period.Start, period.Boundary)
	if err != nil {
		return nil, err
	}
	if alreadyDone {
		return nil, util.ErrDuplicateCompletion
	}

	completion := &model.HabitCompletion{
		UserHabitID:    userHabit.ID,
		CompletionDate: day,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(completion).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return util.ErrDuplicateCompletion
			}
			return err
		}

		// 上一周期完成过则延续连击，否则从 1 重新起步
		continuing := false
		if userHabit.LastCompleted != nil {
			continuing, err = InPreviousPeriod(*userHabit.LastCompleted, day, periodicity)
			if err != nil {
				return err
			}
		}

		if continuing || userHabit.Streak == 0 {
			userHabit.Streak++
		} else {
			userHabit.Streak = 1
		}
		prevCompleted := userHabit.LastCompleted
		userHabit.LastCompleted = &day
		if err := tx.Save(userHabit).Error; err != nil {
			return err
		}

		return s.advanceStreakRun(tx, userHabit, prevCompleted, period, periodicity, continuing)
	})
	if err != nil {
		return nil, err
	}

	monitoring.CompletionsRecorded.Inc()

	result := &CompletionResult{
		Completion: completion,
		Streak:     userHabit.Streak,
	}
	s.runGamification(userHabit, result)
	return result, nil
}

// advanceStreakRun 维护连击历史：延续则更新 open 记录，断档则关旧开新
func (s *HabitService) advanceStreakRun(tx *gorm.DB, userHabit *model.UserHabit, prevCompleted *time.Time, period Period, periodicity model.Periodicity, continuing bool) error {
	var open model.HabitStreak
	err := tx.Where("user_habit_id = ? AND end_date IS NULL", userHabit.ID).First(&open).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hasOpen := err == nil

	if continuing && hasOpen {
		open.StreakLength = userHabit.Streak
		return tx.Save(&open).Error
	}

	if hasOpen {
		// 连击已断但 open 记录还在（漏打检测尚未扫到），关闭在最后一次打卡当天
		closeAt := open.StartDate
		if prevCompleted != nil {
			closeAt = DateOnly(*prevCompleted)
		}
		open.EndDate = &closeAt
		if err := tx.Save(&open).Error; err != nil {
			return err
		}
	}

	startDate, err := StreakRunStart(period.Boundary, userHabit.Streak, periodicity)
	if err != nil {
		return err
	}
	run := &model.HabitStreak{
		UserHabitID:  userHabit.ID,
		StreakLength: userHabit.Streak,
		StartDate:    startDate,
	}
	return tx.Create(run).Error
}

// runGamification 打卡落库后的积分与成就评估，任何一步失败都只记日志
func (s *HabitService) runGamification(userHabit *model.UserHabit, result *CompletionResult) {
	points := CompletionPoints(userHabit.Streak)
	award, err := s.pointsService.Award(userHabit.UserID, points, model.TxCompletion,
		"Habit completed", userHabit.ID)
	if err != nil {
		logger.Log.Error("completion point award failed",
			zap.Uint("user_id", userHabit.UserID),
			zap.String("user_habit_id", userHabit.ID),
			zap.Error(err))
	} else {
		result.PointsAwarded = points
		result.TotalPoints = award.Balance.TotalPoints
		result.Level = award.Balance.Level
		result.LeveledUp = award.LeveledUp
	}

	bonus, err := s.pointsService.AwardStreakMilestone(userHabit.UserID, userHabit.ID, userHabit.Streak)
	if err != nil {
		logger.Log.Error("streak milestone award failed",
			zap.Uint("user_id", userHabit.UserID),
			zap.String("user_habit_id", userHabit.ID),
			zap.Int("streak", userHabit.Streak),
			zap.Error(err))
	} else if bonus > 0 {
		result.MilestoneBonus = bonus
	}

	achievements, badges, err := s.achievementService.Evaluate(userHabit.UserID)
	if err != nil {
		logger.Log.Error("achievement evaluation failed",
			zap.Uint("user_id", userHabit.UserID),
			zap.Error(err))
	} else {
		result.NewAchievements = achievements
		result.NewBadges = badges
	}

	if result.MilestoneBonus > 0 || len(achievements) > 0 || len(badges) > 0 {
		// 里程碑和成就奖励可能把余额推过等级线，重新读一次
		if balance, err := s.pointsService.Balance(userHabit.UserID); err == nil {
			result.TotalPoints = balance.TotalPoints
			result.Level = balance.Level
		}
	}

	if err := s.analyticsService.RefreshUserHabit(userHabit); err != nil {
		logger.Log.Error("analytics refresh failed",
			zap.Uint("user_id", userHabit.UserID),
			zap.String("habit_id", userHabit.HabitID),
			zap.Error(err))
	}
}

func (s *HabitService) ListCompletions(userID uint, userHabitID string, limit int) ([]model.HabitCompletion, error) {
	if _, err := s.findOwned(userID, userHabitID); err != nil {
		return nil, err
	}
	return s.completionRepo.ListByUserHabit(userHabitID, limit)
}

func (s *HabitService) ListMisses(userID uint, userHabitID string, limit int) ([]model.MissedHabit, error) {
	if _, err := s.findOwned(userID, userHabitID); err != nil {
		return nil, err
	}
	return s.missedRepo.ListByUserHabit(userHabitID, limit)
}

func (s *HabitService) StreakHistory(userID uint, userHabitID string) ([]model.HabitStreak, error) {
	if _, err := s.findOwned(userID, userHabitID); err != nil {
		return nil, err
	}
	return s.streakRepo.ListByUserHabit(userHabitID)
}

func (s *HabitService) findOwned(userID uint, userHabitID string) (*model.UserHabit, error) {
	userHabit, err := s.userHabitRepo.FindByIDAndUser(userHabitID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrHabitNotFound
	}
	if err != nil {
		return nil, err
	}
	return userHabit, nil
}
