package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"caltrack/internal/auth"
	"caltrack/internal/model"
	"caltrack/internal/repository"
)

const bcryptCost = 10

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when trying to register an existing user.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidRefreshToken is returned when a refresh token is invalid or revoked.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// AuthService handles registration and session lifecycle.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *model.User, err error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
}

type authService struct {
	users  repository.UserRepository
	jwt    *auth.JWTService
	tokens auth.TokenStoreInterface
}

// NewAuthService creates a new auth service.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService, tokens auth.TokenStoreInterface) AuthService {
	return &authService{users: users, jwt: jwtService, tokens: tokens}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *authService) Register(ctx context.Context, email, password string) (*model.User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and mints an access/refresh token pair. The
// refresh token's JTI is stored in redis for its full lifetime; revoking it
// there ends the session.
func (s *authService) Login(ctx context.Context, email, password string) (string, string, *model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", "", nil, err
	}

	tokenID, refreshToken, err := s.jwt.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", nil, err
	}
	if err := s.tokens.StoreRefreshToken(ctx, tokenID, user.ID, user.Email, auth.RefreshTokenExpiry); err != nil {
		return "", "", nil, err
	}

	return accessToken, refreshToken, user, nil
}

// Refresh mints a new access token from a live refresh token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.ValidateToken(refreshToken)
	if err != nil || claims.ID == "" {
		return "", ErrInvalidRefreshToken
	}

	userID, email, err := s.tokens.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	return s.jwt.GenerateAccessToken(userID, email)
}

// Logout revokes the refresh token and blacklists the access token for its
// remaining validity. Either token may be absent; the session ends in any
// case. The access token is blacklisted first: a corrupted refresh token
// must not leave a live access token behind.
func (s *authService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if accessToken != "" {
		if claims, err := s.jwt.ValidateToken(accessToken); err == nil && claims.ID != "" {
			ttl := time.Until(claims.ExpiresAt.Time)
			if ttl > 0 {
				_ = s.tokens.BlacklistAccessToken(ctx, claims.ID, ttl)
			}
		}
	}

	if refreshToken != "" {
		claims, err := s.jwt.ValidateToken(refreshToken)
		if err != nil || claims.ID == "" {
			return ErrInvalidRefreshToken
		}
		if err := s.tokens.DeleteRefreshToken(ctx, claims.ID); err != nil {
			return err
		}
	}

	return nil
}
