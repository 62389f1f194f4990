package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habit_tracker_backend/internal/config"
	"habit_tracker_backend/internal/controller"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/internal/service"
	"habit_tracker_backend/pkg/database"
	"habit_tracker_backend/pkg/logger"
	"habit_tracker_backend/pkg/monitoring"
	"habit_tracker_backend/pkg/security"
	"habit_tracker_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	habit       *repository.HabitRepository
	userHabit   *repository.UserHabitRepository
	completion  *repository.CompletionRepository
	missed      *repository.MissedHabitRepository
	streak      *repository.StreakRepository
	point       *repository.PointRepository
	achievement *repository.AchievementRepository
	badge       *repository.BadgeRepository
	reward      *repository.RewardRepository
	analytics   *repository.AnalyticsRepository
}

type services struct {
	auth        *service.AuthService
	user        *service.UserService
	habit       *service.HabitService
	points      *service.PointsService
	achievement *service.AchievementService
	analytics   *service.AnalyticsService
	scheduler   *service.SchedulerService
	reward      *service.RewardService
	storage     service.Storage
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	habit        *controller.HabitController
	gamification *controller.GamificationController
	reward       *controller.RewardController
	analytics    *controller.AnalyticsController
	admin        *controller.AdminController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置文件热更新后分发给注册过的回调
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		habit:       repository.NewHabitRepository(db),
		userHabit:   repository.NewUserHabitRepository(db),
		completion:  repository.NewCompletionRepository(db),
		missed:      repository.NewMissedHabitRepository(db),
		streak:      repository.NewStreakRepository(db),
		point:       repository.NewPointRepository(db),
		achievement: repository.NewAchievementRepository(db),
		badge:       repository.NewBadgeRepository(db),
		reward:      repository.NewRewardRepository(db),
		analytics:   repository.NewAnalyticsRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	storage, err := service.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, err
	}

	s := &services{storage: storage}

	s.auth = service.NewAuthService(repos.user, cfg.JWT)
	s.user = service.NewUserService(repos.user, repos.userHabit, repos.completion, repos.achievement, repos.point)
	s.points = service.NewPointsService(db, repos.point, rdb)
	s.achievement = service.NewAchievementService(db, repos.achievement, repos.badge,
		repos.completion, repos.userHabit, repos.streak, repos.point, s.points)
	s.analytics = service.NewAnalyticsService(repos.analytics, repos.completion, repos.missed,
		repos.streak, repos.userHabit, repos.habit, repos.user)
	s.habit = service.NewHabitService(db, repos.habit, repos.userHabit, repos.completion,
		repos.missed, repos.streak, s.points, s.achievement, s.analytics)
	s.scheduler = service.NewSchedulerService(db, repos.userHabit, repos.completion,
		repos.missed, repos.streak, s.analytics, rdb, cfg.Scheduler)
	s.reward = service.NewRewardService(db, repos.reward, s.points)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		user:         controller.NewUserController(s.user, s.storage),
		habit:        controller.NewHabitController(s.habit),
		gamification: controller.NewGamificationController(s.points, s.achievement),
		reward:       controller.NewRewardController(s.reward),
		analytics:    controller.NewAnalyticsController(s.analytics),
		admin: controller.NewAdminController(s.habit, s.scheduler, s.points,
			s.analytics, s.reward, s.user, s.achievement),
		health: controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(func(c *gin.Context) {
		c.Set("config", cfg)
		c.Next()
	})

	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 每天在配置的时间点跑一轮漏打检测
// 进程重启或停机数日后，下一轮扫描会把落下的周期全部补上
func (a *App) startBackgroundTasks(s *services) {
	if !a.Config.Scheduler.Enabled {
		logger.Log.Info("miss detection scheduler disabled")
		return
	}

	go func() {
		for {
			next := s.scheduler.NextRunAt(time.Now())
			logger.Log.Info("next miss detection scheduled", zap.Time("at", next))
			time.Sleep(time.Until(next))

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			report, err := s.scheduler.RunMissDetection(ctx, time.Now())
			cancel()
			if err != nil {
				if errors.Is(err, service.ErrSweepInProgress) {
					logger.Log.Info("miss detection skipped, another instance holds the lock")
					continue
				}
				logger.Log.Error("miss detection run failed", zap.Error(err))
				continue
			}
			logger.Log.Info("scheduled miss detection done",
				zap.Int("misses", report.MissesCreated),
				zap.Int("resets", report.StreaksReset))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.Seed(db); err != nil {
		logger.Log.Fatal("Failed to seed catalog data", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("habit-tracker", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, services)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
