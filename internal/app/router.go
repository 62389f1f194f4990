package app

import (
	"habit_tracker_backend/docs"
	"habit_tracker_backend/internal/middleware"
	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
		public.GET("/categories", c.habit.ListCategories)
		public.GET("/habits", c.habit.ListHabits)
		public.GET("/habits/:id", c.habit.GetHabit)
	}

	// 登录用户路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(), middleware.ActivityMiddleware(s.user))
	{
		authGroup.PUT("/auth/password", c.auth.ChangePassword)

		authGroup.GET("/users/me", c.user.GetProfile)
		authGroup.PUT("/users/me", c.user.UpdateProfile)
		authGroup.POST("/users/me/avatar", c.user.UploadAvatar)

		authGroup.POST("/user-habits", c.habit.AdoptHabit)
		authGroup.GET("/user-habits", c.habit.ListUserHabits)
		authGroup.GET("/user-habits/:id", c.habit.GetUserHabit)
		authGroup.DELETE("/user-habits/:id", c.habit.AbandonHabit)
		authGroup.POST("/user-habits/:id/complete", c.habit.CompleteHabit)
		authGroup.GET("/user-habits/:id/completions", c.habit.ListCompletions)
		authGroup.GET("/user-habits/:id/misses", c.habit.ListMisses)
		authGroup.GET("/user-habits/:id/streaks", c.habit.StreakHistory)

		authGroup.GET("/points", c.gamification.GetBalance)
		authGroup.GET("/points/history", c.gamification.GetHistory)
		authGroup.GET("/points/summary", c.gamification.GetSummary)
		authGroup.GET("/points/leaderboard", c.gamification.GetLeaderboard)
		authGroup.GET("/achievements", c.gamification.GetAchievements)
		authGroup.GET("/badges", c.gamification.GetBadges)

		authGroup.GET("/rewards", c.reward.ListRewards)
		authGroup.POST("/rewards/:id/redeem", c.reward.Redeem)
		authGroup.GET("/redemptions", c.reward.ListRedemptions)
		authGroup.POST("/redemptions/:id/cancel", c.reward.Cancel)

		authGroup.GET("/analytics/habits", c.analytics.GetUserAnalytics)
		authGroup.GET("/analytics/completion", c.analytics.GetCompletionStats)
	}

	// 管理员路由
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(model.Admin))
	{
		adminGroup.POST("/categories", c.admin.CreateCategory)
		adminGroup.POST("/habits", c.admin.CreateHabit)
		adminGroup.PUT("/habits/:id", c.admin.UpdateHabit)
		adminGroup.DELETE("/habits/:id", c.admin.DeleteHabit)

		adminGroup.POST("/achievements", c.admin.CreateAchievement)
		adminGroup.DELETE("/achievements/:id", c.admin.DeleteAchievement)
		adminGroup.POST("/badges", c.admin.CreateBadge)
		adminGroup.DELETE("/badges/:id", c.admin.DeleteBadge)

		adminGroup.POST("/rewards", c.admin.CreateReward)
		adminGroup.POST("/redemptions/:id/fulfill", c.admin.FulfillRedemption)
		adminGroup.POST("/redemptions/:id/refund", c.admin.RefundRedemption)

		adminGroup.POST("/tasks/miss-detection", c.admin.RunMissDetection)
		adminGroup.POST("/tasks/reconcile-points", c.admin.ReconcilePoints)
		adminGroup.POST("/tasks/recalculate-analytics", c.admin.RecalculateAnalytics)

		adminGroup.PUT("/users/:id/disabled", c.admin.SetUserDisabled)

		adminGroup.GET("/analytics/global", c.analytics.GetGlobalStats)
		adminGroup.GET("/analytics/habit-usage", c.analytics.GetHabitUsage)
		adminGroup.GET("/analytics/streaks", c.analytics.GetStreakDistribution)
		adminGroup.GET("/analytics/retention", c.analytics.GetCohortRetention)
	}
}
