package controller

import (
	"errors"

	"habit_tracker_backend/internal/service"
	"habit_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RewardController struct {
	RewardService *service.RewardService
}

func NewRewardController(rewardService *service.RewardService) *RewardController {
	return &RewardController{RewardService: rewardService}
}

// @Summary 奖励目录
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/rewards [get]
func (c *RewardController) ListRewards(ctx *gin.Context) {
	rewards, err := c.RewardService.ListRewards(false)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rewards)
}

// @Summary 兑换奖励
// @Description 扣除积分并生成待发放的兑换单
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Param id path string true "奖励ID"
// @Success 201 {object} util.Response
// @Router /api/rewards/{id}/redeem [post]
func (c *RewardController) Redeem(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	redemption, err := c.RewardService.Redeem(user.UserID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrRewardNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrRewardOutOfStock), errors.Is(err, util.ErrInsufficientBalance):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, redemption)
}

// @Summary 我的兑换记录
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/redemptions [get]
func (c *RewardController) ListRedemptions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	redemptions, err := c.RewardService.ListRedemptions(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, redemptions)
}

// @Summary 取消兑换
// @Description 取消待发放的兑换单并退回积分
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Param id path string true "兑换单ID"
// @Success 200 {object} util.Response
// @Router /api/redemptions/{id}/cancel [post]
func (c *RewardController) Cancel(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	redemption, err := c.RewardService.Cancel(user.UserID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrRedemptionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		default:
			util.BadRequest(ctx, err.Error())
		}
		return
	}

	util.Success(ctx, redemption)
}
