package controller

import (
	"errors"
	"strconv"
	"time"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/service"
	"habit_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 管理端接口：目录维护、奖励发放、手动触发后台任务
type AdminController struct {
	HabitService       *service.HabitService
	SchedulerService   *service.SchedulerService
	PointsService      *service.PointsService
	AnalyticsService   *service.AnalyticsService
	RewardService      *service.RewardService
	UserService        *service.UserService
	AchievementService *service.AchievementService
}

func NewAdminController(
	habitService *service.HabitService,
	schedulerService *service.SchedulerService,
	pointsService *service.PointsService,
	analyticsService *service.AnalyticsService,
	rewardService *service.RewardService,
	userService *service.UserService,
	achievementService *service.AchievementService,
) *AdminController {
	return &AdminController{
		HabitService:       habitService,
		SchedulerService:   schedulerService,
		PointsService:      pointsService,
		AnalyticsService:   analyticsService,
		RewardService:      rewardService,
		UserService:        userService,
		AchievementService: achievementService,
	}
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// @Summary 创建分类
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param category body CategoryRequest true "分类信息"
// @Success 201 {object} util.Response
// @Router /api/admin/categories [post]
func (c *AdminController) CreateCategory(ctx *gin.Context) {
	var req CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	category, err := c.HabitService.CreateCategory(req.Name, req.Description)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, category)
}

type HabitRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description string  `json:"description"`
	Periodicity string  `json:"periodicity" binding:"required,oneof=DAILY WEEKLY MONTHLY"`
	CategoryID  *string `json:"categoryId"`
}

// @Summary 创建习惯模板
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param habit body HabitRequest true "习惯信息"
// @Success 201 {object} util.Response
// @Router /api/admin/habits [post]
func (c *AdminController) CreateHabit(ctx *gin.Context) {
	var req HabitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	habit, err := c.HabitService.CreateHabit(req.Name, req.Description,
		model.Periodicity(req.Periodicity), req.CategoryID)
	if err != nil {
		if errors.Is(err, util.ErrCategoryNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, habit)
}

type HabitUpdateRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  *string `json:"categoryId"`
}

// @Summary 更新习惯模板
// @Description 周期类型不可修改
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "习惯ID"
// @Param habit body HabitUpdateRequest true "习惯信息"
// @Success 200 {object} util.Response
// @Router /api/admin/habits/{id} [put]
func (c *AdminController) UpdateHabit(ctx *gin.Context) {
	var req HabitUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	habit, err := c.HabitService.UpdateHabit(ctx.Param("id"), req.Name, req.Description, req.CategoryID)
	if err != nil {
		if errors.Is(err, util.ErrHabitNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, habit)
}

// @Summary 删除习惯模板
// @Description 仍有用户在打卡的模板不允许删除
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "习惯ID"
// @Success 200 {object} util.Response
// @Router /api/admin/habits/{id} [delete]
func (c *AdminController) DeleteHabit(ctx *gin.Context) {
	if err := c.HabitService.DeleteHabit(ctx.Param("id")); err != nil {
		if errors.Is(err, util.ErrHabitNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, gin.H{"message": "habit deleted"})
}

type RewardRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	Description    string `json:"description"`
	Image          string `json:"image"`
	PointsRequired int    `json:"pointsRequired" binding:"required,min=1"`
	Limited        bool   `json:"limited"`
	Stock          int    `json:"stock"`
	IsActive       bool   `json:"isActive"`
}

// @Summary 创建奖励
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reward body RewardRequest true "奖励信息"
// @Success 201 {object} util.Response
// @Router /api/admin/rewards [post]
func (c *AdminController) CreateReward(ctx *gin.Context) {
	var req RewardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reward := &model.Reward{
		Name:           req.Name,
		Description:    req.Description,
		Image:          req.Image,
		PointsRequired: req.PointsRequired,
		Limited:        req.Limited,
		Stock:          req.Stock,
		IsActive:       req.IsActive,
	}
	if err := c.RewardService.CreateReward(reward); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, reward)
}

// @Summary 发放兑换
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "兑换单ID"
// @Success 200 {object} util.Response
// @Router /api/admin/redemptions/{id}/fulfill [post]
func (c *AdminController) FulfillRedemption(ctx *gin.Context) {
	redemption, err := c.RewardService.Fulfill(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrRedemptionNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, redemption)
}

type RefundRequest struct {
	Notes string `json:"notes"`
}

// @Summary 兑换退款
// @Description 对已发放的兑换退回积分并恢复库存
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "兑换单ID"
// @Param refund body RefundRequest false "退款备注"
// @Success 200 {object} util.Response
// @Router /api/admin/redemptions/{id}/refund [post]
func (c *AdminController) RefundRedemption(ctx *gin.Context) {
	var req RefundRequest
	ctx.ShouldBindJSON(&req)

	redemption, err := c.RewardService.Refund(ctx.Param("id"), req.Notes)
	if err != nil {
		if errors.Is(err, util.ErrRedemptionNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, redemption)
}

// @Summary 手动触发漏打检测
// @Description 与每日定时任务同一套逻辑，幂等，可在停机恢复后补扫
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param as_of query string false "以该日期为基准 YYYY-MM-DD，默认今天"
// @Success 200 {object} util.Response
// @Router /api/admin/tasks/miss-detection [post]
func (c *AdminController) RunMissDetection(ctx *gin.Context) {
	asOf := time.Now()
	if asOfStr := ctx.Query("as_of"); asOfStr != "" {
		parsed, err := time.Parse("2006-01-02", asOfStr)
		if err != nil {
			util.BadRequest(ctx, "as_of must be formatted as YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	report, err := c.SchedulerService.RunMissDetection(ctx.Request.Context(), asOf)
	if err != nil {
		if errors.Is(err, service.ErrSweepInProgress) {
			util.Conflict(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 对账修复
// @Description 全量校验积分余额与流水的一致性，发现偏差时以流水为准修复
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/tasks/reconcile-points [post]
func (c *AdminController) ReconcilePoints(ctx *gin.Context) {
	report, err := c.PointsService.ReconcileAll()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 重算统计
// @Description 全量重算所有义务的统计快照
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/tasks/recalculate-analytics [post]
func (c *AdminController) RecalculateAnalytics(ctx *gin.Context) {
	report, err := c.AnalyticsService.RecalculateAll()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

type SetDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// @Summary 封禁/解封用户
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param body body SetDisabledRequest true "封禁状态"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/disabled [put]
func (c *AdminController) SetUserDisabled(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	var req SetDisabledRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.SetDisabled(uint(userID), req.Disabled)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

type AchievementRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	StrategyType  string `json:"strategyType" binding:"required,oneof=completion_count max_streak habit_diversity user_level"`
	Required      int    `json:"required" binding:"required,min=1"`
	PointsAwarded int    `json:"pointsAwarded" binding:"min=0"`
}

// @Summary 创建成就定义
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param achievement body AchievementRequest true "成就定义"
// @Success 201 {object} util.Response
// @Router /api/admin/achievements [post]
func (c *AdminController) CreateAchievement(ctx *gin.Context) {
	var req AchievementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	achievement := &model.Achievement{
		Name:          req.Name,
		Description:   req.Description,
		Icon:          req.Icon,
		StrategyType:  model.StrategyType(req.StrategyType),
		Required:      req.Required,
		PointsAwarded: req.PointsAwarded,
	}
	if err := c.AchievementService.CreateAchievementDefinition(achievement); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, achievement)
}

// @Summary 删除成就定义
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "成就ID"
// @Success 200 {object} util.Response
// @Router /api/admin/achievements/{id} [delete]
func (c *AdminController) DeleteAchievement(ctx *gin.Context) {
	if err := c.AchievementService.DeleteAchievementDefinition(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type BadgeRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	BadgeType     string `json:"badgeType" binding:"required,oneof=ACHIEVEMENT_COUNT STREAK LEVEL"`
	Required      int    `json:"required" binding:"required,min=1"`
	PointsAwarded int    `json:"pointsAwarded" binding:"min=0"`
}

// @Summary 创建徽章定义
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param badge body BadgeRequest true "徽章定义"
// @Success 201 {object} util.Response
// @Router /api/admin/badges [post]
func (c *AdminController) CreateBadge(ctx *gin.Context) {
	var req BadgeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	badge := &model.Badge{
		Name:          req.Name,
		Description:   req.Description,
		Icon:          req.Icon,
		BadgeType:     model.BadgeType(req.BadgeType),
		Required:      req.Required,
		PointsAwarded: req.PointsAwarded,
	}
	if err := c.AchievementService.CreateBadgeDefinition(badge); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, badge)
}

// @Summary 删除徽章定义
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "徽章ID"
// @Success 200 {object} util.Response
// @Router /api/admin/badges/{id} [delete]
func (c *AdminController) DeleteBadge(ctx *gin.Context) {
	if err := c.AchievementService.DeleteBadgeDefinition(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
