package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/physical-ai/tutor-backend/app"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles GET /healthz. Liveness only: returns 200 whenever
// the process is serving.
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessCheck handles GET /readyz. Reports per-dependency state but
// stays 200 as long as the degraded pipeline can still answer; only a
// failing configured database flips it to 503.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string)
		status := "healthy"
		httpStatus := http.StatusOK

		checks["content"] = fmt.Sprintf("%d documents loaded", len(deps.Corpus))

		if deps.SemanticSearch {
			checks["search"] = "semantic"
		} else {
			checks["search"] = "lexical"
		}
		checks["vector_store"] = deps.VectorStoreMode

		if deps.DB == nil {
			checks["database"] = "disabled"
		} else if err := deps.DB.HealthCheck(r.Context()); err != nil {
			deps.Logger.Warn("database readiness check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["database"] = "healthy"
		}

		respondJSON(w, httpStatus, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		})
	}
}

// RootResponse is the service banner returned at GET /.
type RootResponse struct {
	Service         string `json:"service"`
	Status          string `json:"status"`
	BookContentDocs int    `json:"book_content_docs"`
}

// RootHandler handles GET /.
func RootHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, RootResponse{
			Service:         "Physical AI tutor API",
			Status:          "running",
			BookContentDocs: len(deps.Corpus),
		})
	}
}
