package model

import "time"

// HabitAnalytics 按 (用户, 习惯) 维护的统计快照
// 全部字段可由流水重算，仅作读取加速
// swagger:model HabitAnalytics
type HabitAnalytics struct {
	UUIDBase
	UserID         uint      `gorm:"not null;uniqueIndex:idx_analytics_user_habit" json:"userId"`
	HabitID        string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_analytics_user_habit" json:"habitId"`
	LongestStreak  int       `gorm:"default:0" json:"longestStreak"`
	MissedCount    int       `gorm:"default:0" json:"missedCount"`
	CompletionRate float64   `gorm:"default:0" json:"completionRate"`
	LastCalculated time.Time `json:"lastCalculated"`
}

func (HabitAnalytics) TableName() string {
	return "habit_analytics"
}

// GlobalStats 全站汇总指标
// swagger:model GlobalStats
type GlobalStats struct {
	TotalUsers       int64   `json:"totalUsers"`
	TotalHabits      int64   `json:"totalHabits"`
	TotalCompletions int64   `json:"totalCompletions"`
	CompletedToday   int64   `json:"completedToday"`
	MaxStreak        int     `json:"maxStreak"`
	AvgStreak        float64 `json:"avgStreak"`
}

// CompletionStats 某时间窗口内的完成情况
// swagger:model CompletionStats
type CompletionStats struct {
	Completions    int64   `json:"completions"`
	Misses         int64   `json:"misses"`
	CompletionRate float64 `json:"completionRate"`
}

// HabitUsageStats 单个习惯模板的使用/放弃情况
// swagger:model HabitUsageStats
type HabitUsageStats struct {
	HabitID         string  `json:"habitId"`
	HabitName       string  `json:"habitName"`
	TotalUsers      int64   `json:"totalUsers"`
	ActiveUsers     int64   `json:"activeUsers"`
	AbandonmentRate float64 `json:"abandonmentRate"`
}

// StreakBucket 连击分布直方图的一个区间
// swagger:model StreakBucket
type StreakBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int64  `json:"count"`
}

// CohortRetention 注册月度群组的30天留存
// swagger:model CohortRetention
type CohortRetention struct {
	Period       string  `json:"period"`
	CohortSize   int64   `json:"cohortSize"`
	Retention30d float64 `json:"retention30d"`
}

// LeaderboardEntry 按总积分排序的排行榜条目
// swagger:model LeaderboardEntry
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Level  int    `json:"level"`
	Avatar string `json:"avatar,omitempty"`
}
