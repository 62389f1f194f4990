package controller

import (
	"strconv"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/service"
	"habit_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GamificationController struct {
	PointsService      *service.PointsService
	AchievementService *service.AchievementService
}

func NewGamificationController(pointsService *service.PointsService, achievementService *service.AchievementService) *GamificationController {
	return &GamificationController{
		PointsService:      pointsService,
		AchievementService: achievementService,
	}
}

// @Summary 积分余额
// @Tags 积分
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/points [get]
func (c *GamificationController) GetBalance(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	balance, err := c.PointsService.Balance(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, balance)
}

// @Summary 积分流水
// @Tags 积分
// @Produce json
// @Security BearerAuth
// @Param type query string false "按交易类型过滤"
// @Param limit query int false "返回数量" default(50)
// @Success 200 {object} util.Response
// @Router /api/points/history [get]
func (c *GamificationController) GetHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit := 50
	if limitStr := ctx.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	history, err := c.PointsService.History(user.UserID, model.TransactionType(ctx.Query("type")), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

// @Summary 积分汇总
// @Description 余额与按类型汇总的累计收支
// @Tags 积分
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/points/summary [get]
func (c *GamificationController) GetSummary(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.PointsService.Summary(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// @Summary 排行榜
// @Description 按总积分排序，已选择隐身的用户不出现
// @Tags 积分
// @Produce json
// @Security BearerAuth
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} util.Response
// @Router /api/points/leaderboard [get]
func (c *GamificationController) GetLeaderboard(ctx *gin.Context) {
	limit := 10
	if limitStr := ctx.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	leaderboard, err := c.PointsService.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, leaderboard)
}

// @Summary 成就进度
// @Description 全部成就定义与当前用户的进度
// @Tags 成就
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/achievements [get]
func (c *GamificationController) GetAchievements(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.AchievementService.Progress(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary 已获徽章
// @Tags 成就
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/badges [get]
func (c *GamificationController) GetBadges(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	badges, err := c.AchievementService.ListEarnedBadges(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}
