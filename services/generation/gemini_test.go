package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/physical-ai/tutor-backend/config"
	"github.com/physical-ai/tutor-backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func genConfig(baseURL string) config.GeminiConfig {
	return config.GeminiConfig{
		APIKey:        "test-key",
		BaseURL:       baseURL,
		GenerateModel: "gemini-2.5-flash",
		Timeout:       2 * time.Second,
	}
}

func genServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewGeminiGeneratorMissingKey(t *testing.T) {
	cfg := genConfig("http://localhost")
	cfg.APIKey = ""
	_, err := NewGeminiGenerator(cfg, zap.NewNop())
	assert.ErrorIs(t, err, services.ErrGenerationNotConfigured)
}

func TestGenerate(t *testing.T) {
	srv := genServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req, "contents")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": "ROS2 is a robot "},
					{"text": "middleware."},
				}}},
			},
		})
	})

	gen, err := NewGeminiGenerator(genConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	answer, err := gen.Generate(context.Background(), "What is ROS2?")
	require.NoError(t, err)
	assert.Equal(t, "ROS2 is a robot middleware.", answer)
}

func TestGenerateProviderError(t *testing.T) {
	srv := genServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	gen, err := NewGeminiGenerator(genConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, services.ErrGenerationFailed)
}

func TestGenerateNoCandidates(t *testing.T) {
	srv := genServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	gen, err := NewGeminiGenerator(genConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, services.ErrGenerationFailed)
}

func TestGenerateEmptyText(t *testing.T) {
	srv := genServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "   "}}}},
			},
		})
	})

	gen, err := NewGeminiGenerator(genConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, services.ErrGenerationFailed)
}

func TestGenerateConnectionRefused(t *testing.T) {
	gen, err := NewGeminiGenerator(genConfig("http://127.0.0.1:1"), zap.NewNop())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, services.ErrGenerationFailed)
}
