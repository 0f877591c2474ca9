package service

import (
	"context"

	"github.com/arisehq/levelup/internal/dto"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/internal/rules"
	"github.com/google/uuid"
)

type UserService interface {
	GetStatus(ctx context.Context, userID uuid.UUID) (*dto.UserStatusResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetStatus(ctx context.Context, userID uuid.UUID) (*dto.UserStatusResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.UserStatusResponse{
		XP:         user.XP,
		Streak:     user.Streak,
		BestStreak: user.BestStreak,
		Rank:       rules.GetRankStatus(user.XP),
	}, nil
}
