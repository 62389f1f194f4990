package service

import (
	"errors"
	"time"

	"habit_tracker_backend/internal/model"
	"habit_tracker_backend/internal/repository"
	"habit_tracker_backend/internal/util"

	"gorm.io/gorm"
)

type UserService struct {
	userRepo        *repository.UserRepository
	userHabitRepo   *repository.UserHabitRepository
	completionRepo  *repository.CompletionRepository
	achievementRepo *repository.AchievementRepository
	pointRepo       *repository.PointRepository
}

func NewUserService(
	userRepo *repository.UserRepository,
	userHabitRepo *repository.UserHabitRepository,
	completionRepo *repository.CompletionRepository,
	achievementRepo *repository.AchievementRepository,
	pointRepo *repository.PointRepository,
) *UserService {
	return &UserService{
		userRepo:        userRepo,
		userHabitRepo:   userHabitRepo,
		completionRepo:  completionRepo,
		achievementRepo: achievementRepo,
		pointRepo:       pointRepo,
	}
}

type UserProfile struct {
	User             *model.User       `json:"user"`
	Points           *model.UserPoints `json:"points"`
	ActiveHabits     int64             `json:"activeHabits"`
	TotalCompletions int64             `json:"totalCompletions"`
	Achievements     int64             `json:"achievements"`
}

func (s *UserService) GetProfile(userID uint) (*UserProfile, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	points, err := s.pointRepo.FindBalance(userID)
	if err != nil {
		return nil, err
	}
	habits, err := s.userHabitRepo.CountActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	completions, err := s.completionRepo.CountByUser(userID)
	if err != nil {
		return nil, err
	}
	achievements, err := s.achievementRepo.CountEarned(userID)
	if err != nil {
		return nil, err
	}

	return &UserProfile{
		User:             user,
		Points:           points,
		ActiveHabits:     habits,
		TotalCompletions: completions,
		Achievements:     achievements,
	}, nil
}

type ProfileUpdate struct {
	Name              *string `json:"name"`
	Timezone          *string `json:"timezone"`
	ShowOnLeaderboard *bool   `json:"showOnLeaderboard"`
}

func (s *UserService) UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil && *update.Name != "" {
		user.Name = *update.Name
	}
	if update.Timezone != nil {
		if _, err := time.LoadLocation(*update.Timezone); err == nil {
			user.Timezone = *update.Timezone
		}
	}
	if update.ShowOnLeaderboard != nil {
		user.ShowOnLeaderboard = *update.ShowOnLeaderboard
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateAvatar(userID uint, avatarURL string) (*model.User, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	user.Avatar = avatarURL
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetDisabled 封禁/解封用户，封禁后无法登录也不再出现在排行榜
func (s *UserService) SetDisabled(userID uint, disabled bool) (*model.User, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	user.Disabled = disabled
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) TouchLastSeen(userID uint) error {
	return s.userRepo.UpdateLastSeen(userID)
}

func (s *UserService) findUser(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
