package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/physical-ai/tutor-backend/config"
	"github.com/physical-ai/tutor-backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(baseURL string) config.GeminiConfig {
	return config.GeminiConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		EmbedModel:      "text-embedding-004",
		EmbeddingDim:    3,
		Timeout:         2 * time.Second,
		EmbedMaxRetries: 2,
	}
}

func embedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewGeminiEmbedderMissingKey(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.APIKey = ""
	_, err := NewGeminiEmbedder(cfg, zap.NewNop())
	assert.ErrorIs(t, err, services.ErrEmbeddingNotConfigured)
}

func TestEmbedSuccess(t *testing.T) {
	var gotTask string
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Contains(t, r.URL.Path, "text-embedding-004:embedContent")

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotTask, _ = req["taskType"].(string)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.1, 0.2, 0.3}},
		})
	})

	emb, err := NewGeminiEmbedder(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "what is ROS2", IntentQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "RETRIEVAL_QUERY", gotTask)
	assert.Equal(t, 3, emb.Dimension())
}

func TestEmbedRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{1, 0, 0}},
		})
	})

	emb, err := NewGeminiEmbedder(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "hello", IntentDocument)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	emb, err := NewGeminiEmbedder(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "hello", IntentQuery)
	assert.ErrorIs(t, err, services.ErrEmbeddingUnavailable)
	assert.Equal(t, int32(3), calls.Load()) // initial attempt + 2 retries
}

func TestEmbedClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	emb, err := NewGeminiEmbedder(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "hello", IntentQuery)
	assert.ErrorIs(t, err, services.ErrEmbeddingUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedDimensionMismatch(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.1, 0.2}},
		})
	})

	emb, err := NewGeminiEmbedder(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "hello", IntentQuery)
	assert.ErrorIs(t, err, services.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "dimension")
}

func TestEmbedConnectionRefused(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.EmbedMaxRetries = 0
	emb, err := NewGeminiEmbedder(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "hello", IntentQuery)
	assert.ErrorIs(t, err, services.ErrEmbeddingUnavailable)
}
