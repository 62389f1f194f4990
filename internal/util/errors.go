package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrHabitNotFound       = errors.New("habit not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrDuplicateCompletion = errors.New("habit already completed for this period")
	ErrFutureCompletion    = errors.New("completion date cannot be in the future")
	ErrHabitInactive       = errors.New("habit is not active")
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrRewardNotFound      = errors.New("reward not found")
	ErrRewardOutOfStock    = errors.New("reward out of stock")
	ErrRedemptionNotFound  = errors.New("redemption not found")
	ErrInconsistentLedger  = errors.New("point balance diverged from transaction ledger")
	ErrPermissionDenied    = errors.New("permission denied")
)
