package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"habit_tracker_backend/internal/config"
	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/pkg/logger"
	"habit_tracker_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const missDetectionLockKey = "habit:scheduler:miss_detection"

// ErrSweepInProgress 已有漏打检测在运行（本进程或其他实例持有锁）
var ErrSweepInProgress = errors.New("miss detection sweep already in progress")

// SchedulerService 漏打检测：扫描所有活跃义务，给已结束且未完成的周期补漏打记录
// 同一时刻只允许一个实例跑扫描，用 Redis SETNX 锁做全局互斥，
// Redis 不可用时退化为进程内互斥
type SchedulerService struct {
	db               *gorm.DB
	userHabitRepo    *repository.UserHabitRepository
	completionRepo   *repository.CompletionRepository
	missedRepo       *repository.MissedHabitRepository
	streakRepo       *repository.StreakRepository
	analyticsService *AnalyticsService
	redisClient      *redis.Client
	cfg              config.SchedulerConfig
	instanceID       string

	mu      sync.Mutex
	running bool
}

func NewSchedulerService(
	db *gorm.DB,
	userHabitRepo *repository.UserHabitRepository,
	completionRepo *repository.CompletionRepository,
	missedRepo *repository.MissedHabitRepository,
	streakRepo *repository.StreakRepository,
	analyticsService *AnalyticsService,
	redisClient *redis.Client,
	cfg config.SchedulerConfig,
) *SchedulerService {
	return &SchedulerService{
		db:               db,
		userHabitRepo:    userHabitRepo,
		completionRepo:   completionRepo,
		missedRepo:       missedRepo,
		streakRepo:       streakRepo,
		analyticsService: analyticsService,
		redisClient:      redisClient,
		cfg:              cfg,
		instanceID:       uuid.New().String(),
	}
}

type MissReport struct {
	MissesCreated int `json:"missesCreated"`
	StreaksReset  int `json:"streaksReset"`
	HabitsSwept   int `json:"habitsSwept"`
	Errors        int `json:"errors"`
}

// RunMissDetection 执行一轮漏打扫描，asOf 当天所在的周期不参与判定
// 幂等：同一 (义务, 边界日期) 已有漏打或完成记录时跳过，重复执行不会重复扣连击
func (s *SchedulerService) RunMissDetection(ctx context.Context, asOf time.Time) (*MissReport, error) {
	if !s.tryLock(ctx) {
		return nil, ErrSweepInProgress
	}
	defer s.unlock(ctx)

	started := time.Now()
	report := &MissReport{}

	for _, periodicity := range []model.Periodicity{model.Daily, model.Weekly, model.Monthly} {
		userHabits, err := s.userHabitRepo.ListActiveByPeriodicity(periodicity)
		if err != nil {
			return report, err
		}

		for i := range userHabits {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.HabitsSwept++

			misses, reset, err := s.sweepObligation(&userHabits[i], periodicity, asOf)
			if err != nil {
				// 单个义务失败不影响其余，留给下一轮补扫
				report.Errors++
				logger.Log.Error("miss detection failed for obligation",
					zap.String("user_habit_id", userHabits[i].ID),
					zap.Error(err))
				continue
			}
			report.MissesCreated += misses
			if reset {
				report.StreaksReset++
			}
		}
	}

	logger.Log.Info("miss detection sweep finished",
		zap.Int("habits_swept", report.HabitsSwept),
		zap.Int("misses_created", report.MissesCreated),
		zap.Int("streaks_reset", report.StreaksReset),
		zap.Int("errors", report.Errors),
		zap.Duration("elapsed", time.Since(started)))
	return report, nil
}

// sweepObligation 处理单个义务：枚举所有已结束却未完成的周期
func (s *SchedulerService) sweepObligation(userHabit *model.UserHabit, periodicity model.Periodicity, asOf time.Time) (int, bool, error) {
	// 扫描起点：最后一次完成的下一个周期，从未完成过则从开始日期所在周期算起
	anchor := DateOnly(userHabit.StartDate)
	if userHabit.LastCompleted != nil {
		lastPeriod, err := PeriodContaining(*userHabit.LastCompleted, periodicity)
		if err != nil {
			return 0, false, err
		}
		anchor = lastPeriod.Boundary.AddDate(0, 0, 1)
	}

	periods, err := ElapsedPeriods(anchor, asOf, periodicity)
	if err != nil {
		return 0, false, err
	}
	if len(periods) == 0 {
		return 0, false, nil
	}

	missesCreated := 0
	for _, period := range periods {
		// 完成与漏打互斥：该周期内有完成记录就不算漏打
		completed, err := s.completionRepo.ExistsInRange(userHabit.ID, period.Start, period.Boundary)
		if err != nil {
			return missesCreated, false, err
		}
		if completed {
			continue
		}

		recorded, err := s.missedRepo.ExistsForDate(userHabit.ID, period.Boundary)
		if err != nil {
			return missesCreated, false, err
		}
		if recorded {
			continue
		}

		missed := &model.MissedHabit{
			UserHabitID: userHabit.ID,
			MissedDate:  period.Boundary,
		}
		if err := s.missedRepo.Create(missed); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return missesCreated, false, err
		}
		missesCreated++
		monitoring.MissesDetected.Inc()
	}

	reset := false
	if missesCreated > 0 && userHabit.Streak > 0 {
		if err := s.resetStreak(userHabit, periodicity); err != nil {
			return missesCreated, false, err
		}
		reset = true
	}

	if missesCreated > 0 {
		if err := s.analyticsService.RefreshUserHabit(userHabit); err != nil {
			logger.Log.Error("analytics refresh failed after miss",
				zap.String("user_habit_id", userHabit.ID),
				zap.Error(err))
		}
	}
	return missesCreated, reset, nil
}

// resetStreak 归档被打断的连击并清零计数器
func (s *SchedulerService) resetStreak(userHabit *model.UserHabit, periodicity model.Periodicity) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		endDate := DateOnly(userHabit.StartDate)
		if userHabit.LastCompleted != nil {
			endDate = DateOnly(*userHabit.LastCompleted)
		}

		var open model.HabitStreak
		err := tx.Where("user_habit_id = ? AND end_date IS NULL", userHabit.ID).First(&open).Error
		switch {
		case err == nil:
			open.EndDate = &endDate
			if err := tx.Save(&open).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 没有 open 记录时补一条归档，起点由连击长度倒推
			startDate, err := StreakRunStart(endDate, userHabit.Streak, periodicity)
			if err != nil {
				return err
			}
			run := &model.HabitStreak{
				UserHabitID:  userHabit.ID,
				StreakLength: userHabit.Streak,
				StartDate:    startDate,
				EndDate:      &endDate,
			}
			if err := tx.Create(run).Error; err != nil {
				return err
			}
		default:
			return err
		}

		userHabit.Streak = 0
		return tx.Save(userHabit).Error
	})
}

func (s *SchedulerService) tryLock(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.mu.Unlock()

	if s.redisClient == nil {
		return true
	}

	ttl := time.Duration(s.cfg.LockTTLSec) * time.Second
	ok, err := s.redisClient.SetNX(ctx, missDetectionLockKey, s.instanceID, ttl).Result()
	if err != nil {
		logger.Log.Warn("scheduler lock unavailable, falling back to local mutex", zap.Error(err))
		return true
	}
	if !ok {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return false
	}
	return true
}

func (s *SchedulerService) unlock(ctx context.Context) {
	if s.redisClient != nil {
		// 仅释放自己持有的锁，TTL 过期后被别的实例抢走的不碰
		held, err := s.redisClient.Get(ctx, missDetectionLockKey).Result()
		if err == nil && held == s.instanceID {
			s.redisClient.Del(ctx, missDetectionLockKey)
		}
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// NextRunAt 下一次计划触发时间
func (s *SchedulerService) NextRunAt(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.CheckHour, s.cfg.CheckMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
