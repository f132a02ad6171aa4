package handlers

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/physical-ai/tutor-backend/app"
	"github.com/physical-ai/tutor-backend/models"
	"github.com/physical-ai/tutor-backend/utils"
	"go.uber.org/zap"
)

// ChatMessage is a single turn of the conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the body of POST /chat. The question answered is the
// content of the last message; ContextText switches the pipeline into
// selection mode.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	ContextText string        `json:"context_text,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
}

// ChatResponse is the body of a successful chat answer.
type ChatResponse struct {
	Response  string          `json:"response"`
	Sources   []models.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

// ChatHandler handles POST /chat: one question in, one grounded answer
// out.
func ChatHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := chimw.GetReqID(ctx)

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			deps.Logger.Warn("failed to parse chat request",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteBadRequest(w, "Invalid request body", nil)
			return
		}

		if err := utils.ValidateStruct(&req); err != nil {
			deps.Logger.Warn("chat request validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			handleValidationError(w, err)
			return
		}

		question := req.Messages[len(req.Messages)-1].Content

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		result, err := deps.Engine.Answer(ctx, question, req.ContextText)
		if err != nil {
			deps.Logger.Warn("chat request rejected",
				zap.String("request_id", requestID),
				zap.Error(err))
			handleServiceError(w, err, deps.Logger)
			return
		}

		deps.Logger.Info("chat answered",
			zap.String("request_id", requestID),
			zap.String("session_id", sessionID),
			zap.Int("sources", len(result.Sources)),
			zap.Bool("selection_mode", req.ContextText != ""))

		respondJSON(w, http.StatusOK, ChatResponse{
			Response:  result.Answer,
			Sources:   result.Sources,
			SessionID: sessionID,
		})
	}
}
