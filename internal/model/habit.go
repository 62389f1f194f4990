package model

import "time"

type Periodicity string

const (
	Daily   Periodicity = "DAILY"
	Weekly  Periodicity = "WEEKLY"
	Monthly Periodicity = "MONTHLY"
)

func (p Periodicity) IsValid() bool {
	switch p {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Category 习惯分类
// swagger:model Category
type Category struct {
	UUIDBase
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

func (Category) TableName() string {
	return "categories"
}

// Habit 习惯模板定义（目录数据，无业务逻辑）
// swagger:model Habit
type Habit struct {
	UUIDBase
	Name        string      `gorm:"size:100;not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Periodicity Periodicity `gorm:"size:10;not null;index" json:"periodicity"`
	CategoryID  *string     `gorm:"type:varchar(36);index" json:"categoryId"`
	Category    *Category   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Habit) TableName() string {
	return "habits"
}

// UserHabit 用户与习惯模板的绑定（打卡义务）
// streak 字段是反规范化计数器，始终与最近一次完成/漏打处理后的连续记录保持一致
// swagger:model UserHabit
type UserHabit struct {
	UUIDBase
	UserID        uint       `gorm:"index;not null" json:"userId"`
	HabitID       string     `gorm:"type:varchar(36);index;not null" json:"habitId"`
	Habit         *Habit     `gorm:"foreignKey:HabitID" json:"habit,omitempty"`
	Streak        int        `gorm:"default:0" json:"streak"`
	IsActive      bool       `gorm:"default:true;index" json:"isActive"`
	StartDate     time.Time  `gorm:"type:date;not null" json:"startDate"`
	LastCompleted *time.Time `gorm:"type:date" json:"lastCompleted"`
}

func (UserHabit) TableName() string {
	return "user_habits"
}
