package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/spec-kit/roomswap-service/internal/auth"
	"github.com/spec-kit/roomswap-service/internal/config"
	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/repository"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

// Resident login names are eight upper-case letters or digits.
var residentNamePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// RegisterInput describes a new resident account.
type RegisterInput struct {
	CollegeID  string
	Name       string
	Email      string
	Phone      string
	Password   string
	RoomNumber string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a resident account and issues a token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Name = strings.ToUpper(strings.TrimSpace(input.Name))
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.RoomNumber = domain.NormalizeRoom(input.RoomNumber)

	if !residentNamePattern.MatchString(input.Name) {
		return nil, apperrors.NewValidationError("name must be 8 upper-case letters or digits", nil)
	}
	if strings.TrimSpace(input.CollegeID) == "" || input.Email == "" || strings.TrimSpace(input.Phone) == "" {
		return nil, apperrors.NewValidationError("college_id, email and phone are required", nil)
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if len(input.RoomNumber) > domain.MaxRoomCodeLength {
		return nil, apperrors.NewValidationError("room codes are limited to 20 characters", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		CollegeID:    strings.TrimSpace(input.CollegeID),
		Name:         input.Name,
		Email:        input.Email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
		RoomNumber:   input.RoomNumber,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("an account with these details already exists", nil)
		}
		return nil, translateStoreError(err)
	}
	return s.issue(user)
}

// Login authenticates a resident by name.
func (s *AuthService) Login(ctx context.Context, name, password string) (*AuthResult, error) {
	user, err := s.users.GetByName(ctx, strings.ToUpper(strings.TrimSpace(name)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, translateStoreError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Name)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
