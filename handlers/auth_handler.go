package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/physical-ai/tutor-backend/app"
	"github.com/physical-ai/tutor-backend/middleware"
	"github.com/physical-ai/tutor-backend/services"
	"github.com/physical-ai/tutor-backend/utils"
	"go.uber.org/zap"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email              string `json:"email" validate:"required,email"`
	Password           string `json:"password" validate:"required,min=8"`
	Name               string `json:"name" validate:"required"`
	SoftwareBackground string `json:"software_background,omitempty"`
	HardwareBackground string `json:"hardware_background,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	SoftwareBackground string `json:"software_background"`
	HardwareBackground string `json:"hardware_background"`
	CreatedAt          string `json:"created_at"`
}

const authDisabledMessage = "Authentication is not configured on this server"

// RegisterHandler handles POST /auth/register
func RegisterHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Auth == nil {
			_ = utils.WriteServiceUnavailable(w, authDisabledMessage)
			return
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid request body", nil)
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			handleValidationError(w, err)
			return
		}

		user, err := deps.Auth.Register(r.Context(), services.RegisterInput{
			Email:              req.Email,
			Password:           req.Password,
			Name:               req.Name,
			SoftwareBackground: req.SoftwareBackground,
			HardwareBackground: req.HardwareBackground,
		})
		if err != nil {
			deps.Logger.Warn("registration failed",
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.Error(err))
			handleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusCreated, UserResponse{
			ID:                 user.ID,
			Email:              user.Email,
			Name:               user.Name,
			SoftwareBackground: user.SoftwareBackground,
			HardwareBackground: user.HardwareBackground,
			CreatedAt:          user.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
}

// LoginHandler handles POST /auth/login
func LoginHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Auth == nil {
			_ = utils.WriteServiceUnavailable(w, authDisabledMessage)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid request body", nil)
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			handleValidationError(w, err)
			return
		}

		tokens, err := deps.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, tokens)
	}
}

// RefreshHandler handles POST /auth/refresh
func RefreshHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Auth == nil {
			_ = utils.WriteServiceUnavailable(w, authDisabledMessage)
			return
		}

		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid request body", nil)
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			handleValidationError(w, err)
			return
		}

		tokens, err := deps.Auth.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			handleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, tokens)
	}
}

// MeHandler handles GET /auth/me for the authenticated user.
func MeHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Auth == nil {
			_ = utils.WriteServiceUnavailable(w, authDisabledMessage)
			return
		}

		claims := middleware.GetClaimsFromContext(r.Context())
		if claims == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		user, err := deps.Auth.GetUser(r.Context(), claims.UserID)
		if err != nil {
			handleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, UserResponse{
			ID:                 user.ID,
			Email:              user.Email,
			Name:               user.Name,
			SoftwareBackground: user.SoftwareBackground,
			HardwareBackground: user.HardwareBackground,
			CreatedAt:          user.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
}
