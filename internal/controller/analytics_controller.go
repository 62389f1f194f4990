package controller

import (
	"strconv"

	"habit_tracker_backend/internal/service"
	"habit_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// @Summary 我的习惯统计
// @Description 当前用户每个习惯的最长连击、漏打次数与完成率
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/analytics/habits [get]
func (c *AnalyticsController) GetUserAnalytics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	analytics, err := c.AnalyticsService.ListUserAnalytics(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, analytics)
}

// @Summary 完成情况
// @Description 最近 N 天的完成数、漏打数与完成率
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param days query int false "统计天数" default(30)
// @Success 200 {object} util.Response
// @Router /api/analytics/completion [get]
func (c *AnalyticsController) GetCompletionStats(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	days := 30
	if daysStr := ctx.Query("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil {
			days = d
		}
	}

	stats, err := c.AnalyticsService.CompletionStats(user.UserID, days)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 全站概览
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/analytics/global [get]
func (c *AnalyticsController) GetGlobalStats(ctx *gin.Context) {
	stats, err := c.AnalyticsService.GlobalStats()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 习惯使用情况
// @Description 每个习惯模板的采用人数与放弃率
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/analytics/habit-usage [get]
func (c *AnalyticsController) GetHabitUsage(ctx *gin.Context) {
	stats, err := c.AnalyticsService.HabitUsage()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 连击分布
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/analytics/streaks [get]
func (c *AnalyticsController) GetStreakDistribution(ctx *gin.Context) {
	buckets, err := c.AnalyticsService.StreakDistribution()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, buckets)
}

// @Summary 群组留存
// @Description 按注册月分组的30天留存率
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param months query int false "统计月数" default(6)
// @Success 200 {object} util.Response
// @Router /api/analytics/retention [get]
func (c *AnalyticsController) GetCohortRetention(ctx *gin.Context) {
	months := 6
	if monthsStr := ctx.Query("months"); monthsStr != "" {
		if m, err := strconv.Atoi(monthsStr); err == nil {
			months = m
		}
	}

	cohorts, err := c.AnalyticsService.CohortRetention(months)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, cohorts)
}
