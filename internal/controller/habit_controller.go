package controller

import (
	"errors"
	"strconv"
	"time"

	"habit_tracker_backend/internal/service"
	"habit_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type HabitController struct {
	HabitService *service.HabitService
}

func NewHabitController(habitService *service.HabitService) *HabitController {
	return &HabitController{HabitService: habitService}
}

// @Summary 分类列表
// @Tags 习惯目录
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/categories [get]
func (c *HabitController) ListCategories(ctx *gin.Context) {
	categories, err := c.HabitService.ListCategories()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, categories)
}

// @Summary 习惯模板列表
// @Tags 习惯目录
// @Produce json
// @Param category query string false "按分类过滤"
// @Success 200 {object} util.Response
// @Router /api/habits [get]
func (c *HabitController) ListHabits(ctx *gin.Context) {
	habits, err := c.HabitService.ListHabits(ctx.Query("category"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, habits)
}

// @Summary 习惯模板详情
// @Tags 习惯目录
// @Produce json
// @Param id path string true "习惯ID"
// @Success 200 {object} util.Response
// @Router /api/habits/{id} [get]
func (c *HabitController) GetHabit(ctx *gin.Context) {
	habit, err := c.HabitService.GetHabit(ctx.Param("id"))
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

type AdoptHabitRequest struct {
	HabitID string `json:"habitId" binding:"required"`
}

// @Summary 领取习惯
// @Description 把一个习惯模板加入自己的打卡清单
// @Tags 打卡
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param habit body AdoptHabitRequest true "习惯ID"
// @Success 201 {object} util.Response
// @Router /api/user-habits [post]
func (c *HabitController) AdoptHabit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AdoptHabitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	userHabit, err := c.HabitService.AdoptHabit(user.UserID, req.HabitID)
	if err != nil {
		if errors.Is(err, util.ErrHabitNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, userHabit)
}

// @Summary 我的打卡清单
// @Description 当前用户的义务列表，附带本周期完成状态
// @Tags 打卡
// @Produce json
// @Security BearerAuth
// @Param all query bool false "包含已停用的"
// @Success 200 {object} util.Response
// @Router /api/user-habits [get]
func (c *HabitController) ListUserHabits(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	includeAll, _ := strconv.ParseBool(ctx.Query("all"))
	statuses, err := c.HabitService.ListUserHabits(user.UserID, !includeAll)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, statuses)
}

type CompleteHabitRequest struct {
	Date string `json:"date"`
}

// @Summary 打卡
// @Description 记录一次完成，推进连击并触发积分与成就评估
// @Tags 打卡
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "义务ID"
// @Param completion body CompleteHabitRequest false "可选的补打日期 YYYY-MM-DD"
// @Success 201 {object} util.Response
// @Router /api/user-habits/{id}/complete [post]
func (c *HabitController) CompleteHabit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	date := time.Now()
	var req CompleteHabitRequest
	if err := ctx.ShouldBindJSON(&req); err == nil && req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			util.BadRequest(ctx, "date must be formatted as YYYY-MM-DD")
			return
		}
		date = parsed
	}

	result, err := c.HabitService.CompleteHabit(user.UserID, ctx.Param("id"), date)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrHabitNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrDuplicateCompletion):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrFutureCompletion), errors.Is(err, util.ErrHabitInactive):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, result)
}

// @Summary 停用义务
// @Description 停止追踪该习惯，不再参与漏打检测
// @Tags 打卡
// @Produce json
// @Security BearerAuth
// @Param id path string true "义务ID"
// @Success 200 {object} util.Response
// @Router /api/user-habits/{id} [delete]
func (c *HabitController) AbandonHabit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.HabitService.AbandonHabit(user.UserID, ctx.Param("id")); err != nil {
		switch {
		case errors.Is(err, util.ErrHabitNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrHabitInactive):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"message": "habit deactivated"})
}

// @Summary 义务详情
// @Tags 打卡
// @Produce json
// @Security BearerAuth
// @Param id path string true "义务ID"
// @Success 200 {object} util.Response
// @Router /api/user-habits/{id} [get]
func (c *HabitController) GetUserHabit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	userHabit, err := c.HabitService.GetUserHabit(user.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrHabitNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, userHabit)
}

// @Summary 完成记录
// @Tags 打卡
// @Produce json
// @Security BearerAuth
// @Param id path string true "义务ID"
// @Param limit query int false "返回数量"
// @Success 200 {object} util.Response
// @Router /api/user-habits/{id}/completions [get]
func (c *HabitController) ListCompletions(ctx *gin.Context) {
	c.listHistory(ctx, func(userID uint, id string, limit int) (interface{}, error) {
		return c.HabitService.ListCompletions(userID, id, limit)
	})
}

// @Summary 漏打记录
// @Tags 打卡
// @Produce json
// @Security BearerAuth
// @Param id path string true "义务ID"
// @Param limit query int false "返回数量"
// @Success 200 {object} util.Response
// @Router /api/user-habits/{id}/misses [get]
func (c *HabitController) ListMisses(ctx *gin.Context) {
	c.listHistory(ctx, func(userID uint, id string, limit int) (interface{}, error) {
		return c.HabitService.ListMisses(userID, id, limit)
	})
}

// @Summary 连击历史
// @Description 该义务的全部连击记录，end 为空的是进行中的一段
// @Tags 打卡
// @Produce json
// @Security BearerAuth
// @Param id path string true "义务ID"
// @Success 200 {object} util.Response
// @Router /api/user-habits/{id}/streaks [get]
func (c *HabitController) StreakHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	streaks, err := c.HabitService.StreakHistory(user.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrHabitNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, streaks)
}

func (c *HabitController) listHistory(ctx *gin.Context, fetch func(uint, string, int) (interface{}, error)) {
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

	records, err := fetch(user.UserID, ctx.Param("id"), limit)
	if err != nil {
		if errors.Is(err, util.ErrHabitNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, records)
}
