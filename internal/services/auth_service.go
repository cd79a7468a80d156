package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"embedchat-backend/internal/auth"
	"embedchat-backend/internal/config"
	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
)

// Custom errors for auth service
var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrHashingPassword    = errors.New("failed to hash password")
	ErrCreatingToken      = errors.New("failed to create access token")
	ErrCreatingOrgOrUser  = errors.New("failed to create organization or user")
	ErrValidation         = errors.New("input validation failed")
)

type AuthService struct {
	store store.Store
	cfg   *config.Config
}

func NewAuthService(s store.Store, cfg *config.Config) *AuthService {
	return &AuthService{
		store: s,
		cfg:   cfg,
	}
}

// Signup creates a new organization and user, then issues an access token.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password cannot be empty", ErrValidation)
	}

	// Check if user already exists
	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Printf("Error checking user existence for %s: %v", email, err)
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", email, err)
		return nil, ErrHashingPassword
	}

	orgName := strings.TrimSpace(req.OrganizationName)
	if orgName == "" {
		orgName = fmt.Sprintf("%s's Workspace", email)
	}
	org := &models.Organization{
		ID:   uuid.New(),
		Name: orgName,
	}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		log.Printf("Error creating organization for %s: %v", email, err)
		return nil, fmt.Errorf("%w: creating organization failed: %v", ErrCreatingOrgOrUser, err)
	}

	user := &models.User{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		Email:          email,
		HashedPassword: hashedPassword,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		log.Printf("Error creating user %s: %v", email, err)
		return nil, fmt.Errorf("%w: creating user failed: %v", ErrCreatingOrgOrUser, err)
	}

	return s.issueToken(user)
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password cannot be empty", ErrValidation)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Printf("Error fetching user %s: %v", email, err)
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if !auth.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

func (s *AuthService) issueToken(user *models.User) (*models.AuthResponse, error) {
	token, err := auth.NewAccessToken(user.ID, user.OrganizationID, s.cfg.JWTSecret, s.cfg.TokenExpiration)
	if err != nil {
		return nil, ErrCreatingToken
	}
	return &models.AuthResponse{
		AccessToken:    token,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Email:          user.Email,
	}, nil
}
