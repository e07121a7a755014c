package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/ArowuTest/raffle-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// LoginResponse is returned on a successful staff login
type LoginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      *models.AdminUser `json:"user"`
}

// AuthService authenticates organizer staff
type AuthService struct {
	users  repositories.AdminUserRepository
	tokens *jwt.TokenService
	now    Clock
}

// NewAuthService creates a new AuthService
func NewAuthService(users repositories.AdminUserRepository, tokens *jwt.TokenService, clock Clock) *AuthService {
	if clock == nil {
		clock = systemClock
	}
	return &AuthService{users: users, tokens: tokens, now: clock}
}

// Login checks the password and issues a session token
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Compare anyway so unknown emails take as long as wrong passwords
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		slog.Warn("Failed login attempt", "email", user.Email)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Sign(user.ID, user.Email, user.Role, user.OrganizationID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	slog.Info("Staff logged in", "userId", user.ID, "organizationId", user.OrganizationID)
	return &LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// CreateAdmin stores a staff account with a hashed password
func (s *AuthService) CreateAdmin(ctx context.Context, user *models.AdminUser, password string) error {
	if strings.TrimSpace(user.Email) == "" || user.OrganizationID == "" {
		return fmt.Errorf("%w: email and organization are required", ErrInvalidRequest)
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must have at least 8 characters", ErrInvalidRequest)
	}
	if user.Role != models.RoleAdmin && user.Role != models.RoleStaff {
		user.Role = models.RoleStaff
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hash
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	slog.Info("Staff account created", "userId", user.ID, "email", user.Email, "role", user.Role)
	return nil
}

// HashPassword hashes a password with bcrypt's default cost
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("raffle-login-placeholder"), bcrypt.DefaultCost)
