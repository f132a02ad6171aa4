package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/physical-ai/tutor-backend/app"
	"github.com/physical-ai/tutor-backend/config"
	"github.com/physical-ai/tutor-backend/middleware"
	"github.com/physical-ai/tutor-backend/models"
	"github.com/physical-ai/tutor-backend/repositories"
	"github.com/physical-ai/tutor-backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memUserRepo is an in-memory user store for handler tests.
type memUserRepo struct {
	byEmail map[string]*models.User
	nextID  int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: make(map[string]*models.User), nextID: 1}
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	r.byEmail[user.Email] = user
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", email, repositories.ErrNotFound)
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
}

func authDeps(t *testing.T) *app.Dependencies {
	t.Helper()
	auth, err := services.NewAuthService(config.AuthConfig{
		JWTSecret:       "handler-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}, newMemUserRepo(), zap.NewNop())
	require.NoError(t, err)
	return &app.Dependencies{
		Logger: zap.NewNop(),
		Auth:   auth,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func registerUser(t *testing.T, deps *app.Dependencies) UserResponse {
	t.Helper()
	rec := postJSON(t, RegisterHandler(deps), "/auth/register", RegisterRequest{
		Email:    "ada@example.com",
		Password: "correct-horse",
		Name:     "Ada",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var user UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	return user
}

func TestRegisterHandler(t *testing.T) {
	deps := authDeps(t)
	user := registerUser(t, deps)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)
	assert.NotEmpty(t, user.CreatedAt)
}

func TestRegisterHandlerDuplicate(t *testing.T) {
	deps := authDeps(t)
	registerUser(t, deps)

	rec := postJSON(t, RegisterHandler(deps), "/auth/register", RegisterRequest{
		Email:    "ada@example.com",
		Password: "another-pass",
		Name:     "Ada Again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterHandlerValidation(t *testing.T) {
	deps := authDeps(t)

	tests := []struct {
		name string
		body RegisterRequest
	}{
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "longenough", Name: "x"}},
		{"short password", RegisterRequest{Email: "a@b.co", Password: "short", Name: "x"}},
		{"missing name", RegisterRequest{Email: "a@b.co", Password: "longenough"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, RegisterHandler(deps), "/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	deps := authDeps(t)
	registerUser(t, deps)

	rec := postJSON(t, LoginHandler(deps), "/auth/login", LoginRequest{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tokens services.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "bearer", tokens.TokenType)
}

func TestLoginHandlerWrongPassword(t *testing.T) {
	deps := authDeps(t)
	registerUser(t, deps)

	rec := postJSON(t, LoginHandler(deps), "/auth/login", LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshHandler(t *testing.T) {
	deps := authDeps(t)
	registerUser(t, deps)

	rec := postJSON(t, LoginHandler(deps), "/auth/login", LoginRequest{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens services.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))

	rec = postJSON(t, RefreshHandler(deps), "/auth/refresh", RefreshRequest{
		RefreshToken: tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed services.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefreshHandlerInvalidToken(t *testing.T) {
	deps := authDeps(t)

	rec := postJSON(t, RefreshHandler(deps), "/auth/refresh", RefreshRequest{
		RefreshToken: "garbage",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeHandler(t *testing.T) {
	deps := authDeps(t)
	user := registerUser(t, deps)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.WithClaims(req.Context(), &middleware.Claims{
		UserID: user.ID,
		Email:  user.Email,
	}))
	rec := httptest.NewRecorder()
	MeHandler(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestMeHandlerNoClaims(t *testing.T) {
	deps := authDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	MeHandler(deps)(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlersDisabled(t *testing.T) {
	deps := &app.Dependencies{Logger: zap.NewNop()}

	handlers := map[string]http.HandlerFunc{
		"register": RegisterHandler(deps),
		"login":    LoginHandler(deps),
		"refresh":  RefreshHandler(deps),
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			rec := postJSON(t, h, "/auth/"+name, map[string]string{})
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	MeHandler(deps)(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
