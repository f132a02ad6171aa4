// Package handlers contains the HTTP handlers for the tutor API. Handlers
// are thin closures over app.Dependencies: decode, validate, call a
// service, encode.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/physical-ai/tutor-backend/services"
	"github.com/physical-ai/tutor-backend/utils"
	"go.uber.org/zap"
)

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// handleValidationError writes a 400 with per-field details when the
// error carries them.
func handleValidationError(w http.ResponseWriter, err error) {
	var validationErr *utils.ValidationError
	if errors.As(err, &validationErr) {
		_ = utils.WriteBadRequest(w, validationErr.Message, validationErr.FieldDetails())
		return
	}
	_ = utils.WriteBadRequest(w, err.Error(), nil)
}

// handleServiceError maps a domain error to an HTTP response.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	switch services.GetErrorType(err) {
	case services.ErrorTypeValidation:
		_ = utils.WriteBadRequest(w, err.Error(), services.GetErrorDetails(err))
	case services.ErrorTypeUnauthorized:
		_ = utils.WriteUnauthorized(w, errorMessage(err))
	case services.ErrorTypeNotFound:
		_ = utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse{
			Error:   "not_found",
			Message: errorMessage(err),
		})
	case services.ErrorTypeConflict:
		_ = utils.WriteConflict(w, errorMessage(err))
	case services.ErrorTypeConfiguration:
		_ = utils.WriteServiceUnavailable(w, errorMessage(err))
	default:
		logger.Error("unhandled service error", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
	}
}

// errorMessage returns the human message of a domain error without the
// wrapped cause, falling back to Error() for plain errors.
func errorMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
