package model

import "time"

type TransactionType string

const (
	TxCompletion  TransactionType = "COMPLETION"
	TxStreak      TransactionType = "STREAK"
	TxAchievement TransactionType = "ACHIEVEMENT"
	TxBadge       TransactionType = "BADGE"
	TxBonus       TransactionType = "BONUS"
	TxRedemption  TransactionType = "REDEMPTION"
)

// PointTransaction 积分流水，只追加不修改
// 任一用户的流水金额之和必须等于 UserPoints.TotalPoints
// swagger:model PointTransaction
type PointTransaction struct {
	UUIDBase
	UserID          uint            `gorm:"index;not null" json:"userId"`
	Amount          int             `gorm:"not null" json:"amount"`
	TransactionType TransactionType `gorm:"size:20;not null;index" json:"transactionType"`
	Description     string          `gorm:"size:255" json:"description"`
	ReferenceID     string          `gorm:"type:varchar(36);index" json:"referenceId"`
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}

// UserPoints 积分余额缓存，派生字段，可随时由流水重算
// swagger:model UserPoints
type UserPoints struct {
	BaseModel
	UserID      uint `gorm:"uniqueIndex;not null" json:"userId"`
	TotalPoints int  `gorm:"default:0" json:"totalPoints"`
	Level       int  `gorm:"default:1" json:"level"`
}

func (UserPoints) TableName() string {
	return "user_points"
}

// LevelForPoints 等级是总积分的纯函数：level = 1 + total/1000
func LevelForPoints(totalPoints int) int {
	if totalPoints < 0 {
		return 1
	}
	return 1 + totalPoints/1000
}

type StrategyType string

const (
	StrategyCompletionCount StrategyType = "completion_count"
	StrategyMaxStreak       StrategyType = "max_streak"
	StrategyHabitDiversity  StrategyType = "habit_diversity"
	StrategyUserLevel       StrategyType = "user_level"
)

// Achievement 成就定义：解锁策略 + 阈值 + 固定奖励积分
// swagger:model Achievement
type Achievement struct {
	UUIDBase
	Name          string       `gorm:"size:100;not null" json:"name"`
	Description   string       `gorm:"type:text" json:"description"`
	Icon          string       `gorm:"size:100" json:"icon"`
	StrategyType  StrategyType `gorm:"size:30;not null" json:"strategyType"`
	Required      int          `gorm:"not null" json:"required"`
	PointsAwarded int          `gorm:"default:0" json:"pointsAwarded"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement 用户已解锁的成就，(user, achievement) 唯一
// swagger:model UserAchievement
type UserAchievement struct {
	UUIDBase
	UserID        uint         `gorm:"not null;uniqueIndex:idx_user_achievement" json:"userId"`
	AchievementID string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_achievement" json:"achievementId"`
	Achievement   *Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
	EarnedAt      time.Time    `json:"earnedAt"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}

type BadgeType string

const (
	BadgeAchievementCount BadgeType = "ACHIEVEMENT_COUNT"
	BadgeMaxStreak        BadgeType = "STREAK"
	BadgeLevelMilestone   BadgeType = "LEVEL"
)

// Badge 徽章定义
// swagger:model Badge
type Badge struct {
	UUIDBase
	Name          string    `gorm:"size:100;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Icon          string    `gorm:"size:100" json:"icon"`
	BadgeType     BadgeType `gorm:"size:20;not null" json:"badgeType"`
	Required      int       `gorm:"not null" json:"required"`
	PointsAwarded int       `gorm:"default:0" json:"pointsAwarded"`
}

func (Badge) TableName() string {
	return "badges"
}

// UserBadge 用户已获得的徽章，(user, badge) 唯一
// swagger:model UserBadge
type UserBadge struct {
	UUIDBase
	UserID   uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"userId"`
	BadgeID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_badge" json:"badgeId"`
	Badge    *Badge    `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	EarnedAt time.Time `json:"earnedAt"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
