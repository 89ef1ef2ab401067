package services

import (
	"context"
	"errors"
	"net/http"

	"vidsense/models"
	"vidsense/repositories"
	"vidsense/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthOutput struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (AuthOutput, error)
	Login(ctx context.Context, in LoginInput) (AuthOutput, error)
	GetMe(ctx context.Context, userID string) (models.User, error)
}

type authService struct {
	tx    repositories.TxManager
	users repositories.UserRepository
}

func NewAuthService(tx repositories.TxManager, users repositories.UserRepository) AuthService {
	return &authService{tx: tx, users: users}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (AuthOutput, error) {
	role := in.Role
	if role == "" {
		role = models.RoleEditor
	}
	if !models.IsValidRole(role) {
		return AuthOutput{}, newAppError(http.StatusBadRequest, "invalid role", nil)
	}

	// Early exit before the expensive hash; the transactional recheck
	// below is what actually guards against a concurrent register.
	count, err := s.users.CountByEmail(ctx, in.Email)
	if err != nil {
		return AuthOutput{}, newAppError(http.StatusInternalServerError, "failed to check email", err)
	}
	if count > 0 {
		return AuthOutput{}, newAppError(http.StatusBadRequest, "email already registered", nil)
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return AuthOutput{}, newAppError(http.StatusInternalServerError, "failed to hash password", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		Role:         role,
	}
	err = s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		_, err := s.users.GetByEmail(ctx, tx, in.Email)
		if err == nil {
			return newAppError(http.StatusBadRequest, "email already registered", nil)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return s.users.Create(ctx, tx, &user)
	})
	if err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return AuthOutput{}, appErr
		}
		return AuthOutput{}, newAppError(http.StatusInternalServerError, "failed to create user", err)
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return AuthOutput{}, newAppError(http.StatusInternalServerError, "failed to generate token", err)
	}

	return AuthOutput{Token: token, User: user}, nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (AuthOutput, error) {
	user, err := s.users.GetByEmail(ctx, nil, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AuthOutput{}, newAppError(http.StatusUnauthorized, "invalid credentials", nil)
		}
		return AuthOutput{}, newAppError(http.StatusInternalServerError, "failed to query user", err)
	}

	if !utils.CheckPassword(in.Password, user.PasswordHash) {
		return AuthOutput{}, newAppError(http.StatusUnauthorized, "invalid credentials", nil)
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return AuthOutput{}, newAppError(http.StatusInternalServerError, "failed to generate token", err)
	}

	return AuthOutput{Token: token, User: user}, nil
}

func (s *authService) GetMe(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, newAppError(http.StatusUnauthorized, "not authenticated", nil)
		}
		return models.User{}, newAppError(http.StatusInternalServerError, "failed to query user", err)
	}
	return user, nil
}
