package services

import (
	"context"
	"errors"

	"authapi_backend/internal/logger"
	"authapi_backend/internal/models"
	"authapi_backend/internal/repositories"
	"authapi_backend/internal/services/dto"
	"authapi_backend/pkg/apperrors"
)

type UserService interface {
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	GetPublicProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
}

type UserServiceImpl struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &UserServiceImpl{userRepo: userRepo}
}

func (s *UserServiceImpl) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// GetPublicProfile - профиль без email
func (s *UserServiceImpl) GetPublicProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewPublicProfileResponse(user), nil
}

// UpdateProfile меняет fullName и/или username. Хотя бы одно поле обязательно.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	req.Normalize()
	if req.FullName == "" && req.Username == "" {
		return nil, apperrors.ErrEmptyProfileUpdate
	}

	var upd repositories.ProfileUpdate
	if req.FullName != "" {
		upd.FullName = &req.FullName
	}
	if req.Username != "" {
		taken, err := s.userRepo.ExistsByUsername(ctx, req.Username, userID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if taken {
			return nil, apperrors.ErrUsernameTaken
		}
		upd.Username = &req.Username
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, upd); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, apperrors.ErrUserNotFound
		case errors.Is(err, repositories.ErrUserAlreadyExists):
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Profile updated", "user_id", userID)
	return s.GetCurrentUser(ctx, userID)
}

func (s *UserServiceImpl) find(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}
