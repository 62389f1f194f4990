package model

import "time"

// Reward 可用积分兑换的奖励
// Limited 为 false 时不限量, Stock 仅在 Limited 时有意义
// swagger:model Reward
type Reward struct {
	UUIDBase
	Name           string `gorm:"size:100;not null" json:"name"`
	Description    string `gorm:"type:text" json:"description"`
	Image          string `gorm:"size:255" json:"image"`
	PointsRequired int    `gorm:"not null" json:"pointsRequired"`
	Limited        bool   `gorm:"default:false" json:"limited"`
	Stock          int    `gorm:"default:0" json:"stock"`
	IsActive       bool   `gorm:"default:true" json:"isActive"`
}

func (Reward) TableName() string {
	return "rewards"
}

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "PENDING"
	RedemptionFulfilled RedemptionStatus = "FULFILLED"
	RedemptionCancelled RedemptionStatus = "CANCELLED"
	RedemptionRefunded  RedemptionStatus = "REFUNDED"
)

// Redemption 兑换记录，关联扣分流水
// swagger:model Redemption
type Redemption struct {
	UUIDBase
	UserID        uint             `gorm:"index;not null" json:"userId"`
	RewardID      string           `gorm:"type:varchar(36);index;not null" json:"rewardId"`
	Reward        *Reward          `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
	PointsSpent   int              `gorm:"not null" json:"pointsSpent"`
	Status        RedemptionStatus `gorm:"size:20;default:'PENDING'" json:"status"`
	TransactionID string           `gorm:"type:varchar(36)" json:"transactionId"`
	FulfilledAt   *time.Time       `json:"fulfilledAt"`
	Notes         string           `gorm:"type:text" json:"notes"`
}

func (Redemption) TableName() string {
	return "redemptions"
}
