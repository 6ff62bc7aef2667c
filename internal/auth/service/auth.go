package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/devlinduldulao/citizenship-application/internal/auth/jwt"
	"github.com/devlinduldulao/citizenship-application/internal/user/domain"
	"github.com/devlinduldulao/citizenship-application/internal/user/repository"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

// AuthService handles signup, login and profile management
type AuthService struct {
	users *repository.UserRepository
	jwt   *jwt.Manager
	log   *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, manager *jwt.Manager, log *logger.Logger) *AuthService {
	return &AuthService{
		users: users,
		jwt:   manager,
		log:   log,
	}
}

// LoginRequest is the credential exchange payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// SignupRequest creates an owner account
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	FullName string `json:"full_name" validate:"required,min=1,max=255"`
}

// UpdateMeRequest updates the caller's own profile
type UpdateMeRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=255"`
}

// LoginResponse carries the bearer token and the authenticated user
type LoginResponse struct {
	Token *jwt.Token   `json:"token"`
	User  *domain.User `json:"user"`
}

// Login exchanges email+password for a bearer token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, errors.Forbidden("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	token, err := s.jwt.Generate(&jwt.UserInfo{
		ID:         user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		IsReviewer: user.IsReviewer,
	})
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	return &LoginResponse{Token: token, User: user}, nil
}

// Signup creates a new owner account. Reviewer accounts are provisioned
// out-of-band, never through signup.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		IsActive:     true,
		IsReviewer:   false,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user signed up")
	return user, nil
}

// GetUser returns a user by id
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateMe applies a partial profile update for the caller
func (s *AuthService) UpdateMe(ctx context.Context, userID string, req *UpdateMeRequest) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
