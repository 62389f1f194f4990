// 手动触发漏打检测脚本
//
// 漏打检测已集成到主应用的后台定时任务中（每天在配置的时间点自动执行一次）。
// 此脚本仅用于手动触发，例如服务停摆数天后需要立即补扫描时。
//
// 用法: go run scripts/miss_detection.go

package main

import (
	"context"
	"habit_tracker_backend/internal/config"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/internal/service"
	"habit_tracker_backend/pkg/database"
	"habit_tracker_backend/pkg/logger"
	"log"
	"time"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	userHabitRepo := repository.NewUserHabitRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	missedRepo := repository.NewMissedHabitRepository(db)
	streakRepo := repository.NewStreakRepository(db)

	analyticsService := service.NewAnalyticsService(
		repository.NewAnalyticsRepository(db),
		completionRepo, missedRepo, streakRepo, userHabitRepo,
		repository.NewHabitRepository(db),
		repository.NewUserRepository(db),
	)

	// 与主应用共用同一把 Redis 互斥锁，避免和定时任务并发扫描
	redisClient, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Redis 连接失败: %v", err)
	}

	scheduler := service.NewSchedulerService(db, userHabitRepo, completionRepo,
		missedRepo, streakRepo, analyticsService, redisClient, cfg.Scheduler)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	report, err := scheduler.RunMissDetection(ctx, time.Now())
	if err != nil {
		log.Fatalf("漏打检测执行失败: %v", err)
	}

	log.Printf("漏打检测完成: 扫描义务 %d 个, 新增漏打 %d 条, 重置连击 %d 个, 错误 %d 个",
		report.HabitsSwept, report.MissesCreated, report.StreaksReset, report.Errors)
}
