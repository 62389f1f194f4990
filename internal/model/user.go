package model

import (
	"time"
)

type UserRole string

const (
	Member UserRole = "member"
	Admin  UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name              string    `gorm:"size:100;not null" json:"name"`
	Email             string    `gorm:"size:100;unique;not null" json:"email"`
	Password          string    `gorm:"size:100;not null" json:"-"`
	Role              UserRole  `gorm:"size:20;default:'member'" json:"role"`
	Timezone          string    `gorm:"size:50;default:'UTC'" json:"timezone"`
	Avatar            string    `gorm:"size:255" json:"avatar"`
	Disabled          bool      `gorm:"default:false" json:"disabled"`
	ShowOnLeaderboard bool      `gorm:"default:true" json:"showOnLeaderboard"`
	LastLogin         time.Time `json:"lastLogin"`
	LastSeen          time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// Location 返回用户所在时区，解析失败时回退到UTC
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
