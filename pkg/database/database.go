package database

import (
	"fmt"
	"habit_tracker_backend/internal/config"
	"habit_tracker_backend/internal/model"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	if err := Seed(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 建表，测试环境（sqlite）同样走这里
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Habit{},
		&model.UserHabit{},
		&model.HabitCompletion{},
		&model.MissedHabit{},
		&model.HabitStreak{},
		&model.PointTransaction{},
		&model.UserPoints{},
		&model.Achievement{},
		&model.UserAchievement{},
		&model.Badge{},
		&model.UserBadge{},
		&model.Reward{},
		&model.Redemption{},
		&model.HabitAnalytics{},
	)
}

// Seed 首次启动时插入默认目录数据：分类、习惯模板、成就、徽章、奖励
func Seed(db *gorm.DB) error {
	var count int64
	db.Model(&model.Category{}).Count(&count)
	if count == 0 {
		categories := []model.Category{
			{Name: "Health", Description: "Physical and mental wellbeing"},
			{Name: "Productivity", Description: "Work and study habits"},
			{Name: "Learning", Description: "Skills and knowledge"},
			{Name: "Lifestyle", Description: "Everyday routines"},
		}
		for i := range categories {
			if err := db.Create(&categories[i]).Error; err != nil {
				return err
			}
		}

		habits := []model.Habit{
			{Name: "Drink water", Description: "Drink at least 2 liters of water", Periodicity: model.Daily, CategoryID: &categories[0].ID},
			{Name: "Morning exercise", Description: "15 minutes of exercise after waking up", Periodicity: model.Daily, CategoryID: &categories[0].ID},
			{Name: "Read a book", Description: "Read for at least 20 minutes", Periodicity: model.Daily, CategoryID: &categories[2].ID},
			{Name: "Weekly review", Description: "Review goals and plan the next week", Periodicity: model.Weekly, CategoryID: &categories[1].ID},
			{Name: "Deep clean", Description: "Deep clean one room", Periodicity: model.Weekly, CategoryID: &categories[3].ID},
			{Name: "Budget check", Description: "Reconcile monthly spending", Periodicity: model.Monthly, CategoryID: &categories[3].ID},
		}
		for i := range habits {
			if err := db.Create(&habits[i]).Error; err != nil {
				return err
			}
		}
	}

	var achCount int64
	db.Model(&model.Achievement{}).Count(&achCount)
	if achCount == 0 {
		achievements := []model.Achievement{
			{Name: "First Step", Description: "Complete your first habit", Icon: "fa-shoe-prints", StrategyType: model.StrategyCompletionCount, Required: 1, PointsAwarded: 10},
			{Name: "Getting Going", Description: "Complete 10 habits", Icon: "fa-walking", StrategyType: model.StrategyCompletionCount, Required: 10, PointsAwarded: 25},
			{Name: "Centurion", Description: "Complete 100 habits", Icon: "fa-medal", StrategyType: model.StrategyCompletionCount, Required: 100, PointsAwarded: 100},
			{Name: "Week Warrior", Description: "Hold a 7-period streak", Icon: "fa-fire", StrategyType: model.StrategyMaxStreak, Required: 7, PointsAwarded: 50},
			{Name: "Unstoppable", Description: "Hold a 30-period streak", Icon: "fa-rocket", StrategyType: model.StrategyMaxStreak, Required: 30, PointsAwarded: 150},
			{Name: "Well Rounded", Description: "Keep 5 habits active at once", Icon: "fa-layer-group", StrategyType: model.StrategyHabitDiversity, Required: 5, PointsAwarded: 75},
			{Name: "Rising Star", Description: "Reach level 3", Icon: "fa-star", StrategyType: model.StrategyUserLevel, Required: 3, PointsAwarded: 50},
		}
		for i := range achievements {
			if err := db.Create(&achievements[i]).Error; err != nil {
				return err
			}
		}
	}

	var badgeCount int64
	db.Model(&model.Badge{}).Count(&badgeCount)
	if badgeCount == 0 {
		badges := []model.Badge{
			{Name: "Collector", Description: "Earn 3 achievements", Icon: "fa-trophy", BadgeType: model.BadgeAchievementCount, Required: 3, PointsAwarded: 30},
			{Name: "Streak Keeper", Description: "Hold a 14-period streak", Icon: "fa-bolt", BadgeType: model.BadgeMaxStreak, Required: 14, PointsAwarded: 40},
			{Name: "Novice Achiever", Description: "Reach level 5", Icon: "fa-seedling", BadgeType: model.BadgeLevelMilestone, Required: 5, PointsAwarded: 50},
			{Name: "Habit Enthusiast", Description: "Reach level 10", Icon: "fa-leaf", BadgeType: model.BadgeLevelMilestone, Required: 10, PointsAwarded: 100},
			{Name: "Habit Master", Description: "Reach level 25", Icon: "fa-tree", BadgeType: model.BadgeLevelMilestone, Required: 25, PointsAwarded: 250},
			{Name: "Habit Champion", Description: "Reach level 50", Icon: "fa-mountain", BadgeType: model.BadgeLevelMilestone, Required: 50, PointsAwarded: 500},
			{Name: "Habit Legend", Description: "Reach level 100", Icon: "fa-crown", BadgeType: model.BadgeLevelMilestone, Required: 100, PointsAwarded: 1000},
		}
		for i := range badges {
			if err := db.Create(&badges[i]).Error; err != nil {
				return err
			}
		}
	}

	var rewardCount int64
	db.Model(&model.Reward{}).Count(&rewardCount)
	if rewardCount == 0 {
		rewards := []model.Reward{
			{Name: "Custom avatar frame", Description: "Decorate your profile picture", PointsRequired: 200, Stock: 0, IsActive: true},
			{Name: "Theme pack", Description: "Unlock additional color themes", PointsRequired: 500, Stock: 0, IsActive: true},
			{Name: "Sticker pack", Description: "Limited edition sticker pack", PointsRequired: 1000, Limited: true, Stock: 50, IsActive: true},
		}
		for i := range rewards {
			if err := db.Create(&rewards[i]).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
