package service

import (
	"context"
	"strings"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/pkg/apperror"
	"github.com/clinicpos/diagnostics-api/pkg/utils"
	"github.com/google/uuid"
)

// AuthService handles staff sign-in
type AuthService struct {
	userRepo   repository.UserRepository
	roleRepo   repository.RoleRepository
	jwtManager *utils.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	jwtManager *utils.JWTManager,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		jwtManager: jwtManager,
	}
}

// LoginInput represents the login input
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput represents the login output
type LoginOutput struct {
	User        *entity.User
	AccessToken string
	ExpiresIn   int64
}

// Login authenticates a staff member and returns an access token
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, apperror.Wrap("load user", err)
	}
	if user == nil || !user.IsActive {
		return nil, apperror.ErrInvalidCredentials
	}
	if !utils.CheckPasswordHash(input.Password, user.Password) {
		return nil, apperror.ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.RoleNames())
	if err != nil {
		return nil, err
	}

	return &LoginOutput{
		User:        user,
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtManager.AccessTokenExpiry().Seconds()),
	}, nil
}

// GetProfile returns the signed-in staff member
func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap("load user", err)
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}
	return user, nil
}

// CreateStaffInput represents a new staff account
type CreateStaffInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Roles     []string
}

// CreateStaff registers a staff account with the given roles. Used by the
// seed step to provision the first admin.
func (s *AuthService) CreateStaff(ctx context.Context, input *CreateStaffInput) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Wrap("load user", err)
	}
	if existing != nil {
		return nil, apperror.NewConflictError("Email already registered")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     email,
		Password:  hashed,
		IsActive:  true,
	}
	for _, name := range input.Roles {
		role, err := s.roleRepo.GetByName(ctx, name)
		if err != nil {
			return nil, apperror.Wrap("load role", err)
		}
		if role == nil {
			return nil, apperror.NewValidationError([]apperror.FieldError{
				{Field: "roles", Message: "unknown role " + name},
			})
		}
		user.Roles = append(user.Roles, *role)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.Wrap("create user", err)
	}
	return user, nil
}
