package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/physical-ai/tutor-backend/config"
	"github.com/physical-ai/tutor-backend/middleware"
	"github.com/physical-ai/tutor-backend/models"
	"github.com/physical-ai/tutor-backend/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	bcryptCost = 12
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// AuthService manages user registration and JWT issuance. Tokens are
// signed with HS256; access and refresh tokens carry a "type" claim so
// one cannot be used in place of the other.
type AuthService struct {
	users      repositories.UserRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService. Returns
// ErrAuthNotConfigured when no signing secret is set.
func NewAuthService(cfg config.AuthConfig, users repositories.UserRepository, logger *zap.Logger) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrAuthNotConfigured
	}
	return &AuthService{
		users:      users,
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		logger:     logger,
	}, nil
}

// RegisterInput holds the fields accepted at registration.
type RegisterInput struct {
	Email              string
	Password           string
	Name               string
	SoftwareBackground string
	HardwareBackground string
}

// Register creates a new user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	_, err := s.users.GetByEmail(ctx, input.Email)
	if err == nil {
		return nil, ErrDuplicateEmail
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, WrapInternal("failed to check existing user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, WrapInternal("failed to hash password", err)
	}

	user := &models.User{
		Email:              input.Email,
		PasswordHash:       string(hash),
		Name:               input.Name,
		SoftwareBackground: input.SoftwareBackground,
		HardwareBackground: input.HardwareBackground,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, WrapInternal("failed to create user", err)
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email))

	return user, nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, WrapInternal("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, err := s.issueToken(user, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, WrapInternal("failed to sign access token", err)
	}
	refresh, err := s.issueToken(user, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, WrapInternal("failed to sign refresh token", err)
	}

	s.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email))

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	access, err := s.issueToken(user, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, WrapInternal("failed to sign access token", err)
	}

	return &TokenPair{
		AccessToken: access,
		TokenType:   "bearer",
	}, nil
}

// ValidateToken validates an access token and returns the caller's
// identity. Implements middleware.TokenValidator.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*middleware.Claims, error) {
	claims, err := s.parseToken(token, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	return &middleware.Claims{
		UserID: user.ID,
		Email:  user.Email,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, WrapInternal("failed to look up user", err)
	}
	return user, nil
}

type tokenClaims struct {
	TokenType string `json:"type"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

func (s *AuthService) issueToken(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		TokenType: tokenType,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *AuthService) parseToken(tokenString, wantType string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) userFromClaims(ctx context.Context, claims *tokenClaims) (*models.User, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, WrapInternal("failed to look up user", err)
	}
	return user, nil
}
