package model

import "time"

// HabitCompletion 打卡完成记录，追加写入
// (user_habit_id, completion_date) 唯一约束防止同一周期重复计分
// swagger:model HabitCompletion
type HabitCompletion struct {
	UUIDBase
	UserHabitID    string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_completion_habit_date" json:"userHabitId"`
	UserHabit      *UserHabit `gorm:"foreignKey:UserHabitID" json:"-"`
	CompletionDate time.Time  `gorm:"type:date;not null;uniqueIndex:idx_completion_habit_date" json:"completionDate"`
}

func (HabitCompletion) TableName() string {
	return "habit_completions"
}

// MissedHabit 漏打记录，仅由漏打检测任务写入
// 与 HabitCompletion 互斥：同一 (义务, 边界日期) 至多出现在其中之一
// swagger:model MissedHabit
type MissedHabit struct {
	UUIDBase
	UserHabitID string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_missed_habit_date" json:"userHabitId"`
	UserHabit   *UserHabit `gorm:"foreignKey:UserHabitID" json:"-"`
	MissedDate  time.Time  `gorm:"type:date;not null;uniqueIndex:idx_missed_habit_date" json:"missedDate"`
}

func (MissedHabit) TableName() string {
	return "missed_habits"
}

// HabitStreak 连续打卡历史，end_date 为空表示当前进行中的连击
// 任一义务同时至多只有一条 open 记录
// swagger:model HabitStreak
type HabitStreak struct {
	UUIDBase
	UserHabitID  string     `gorm:"type:varchar(36);index;not null" json:"userHabitId"`
	UserHabit    *UserHabit `gorm:"foreignKey:UserHabitID" json:"-"`
	StreakLength int        `gorm:"not null" json:"streakLength"`
	StartDate    time.Time  `gorm:"type:date;not null" json:"startDate"`
	EndDate      *time.Time `gorm:"type:date" json:"endDate"`
}

func (HabitStreak) TableName() string {
	return "habit_streaks"
}
