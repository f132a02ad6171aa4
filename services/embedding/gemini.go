// Package embedding converts text into fixed-dimension vectors via the
// Gemini embedding API.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/physical-ai/tutor-backend/config"
	"github.com/physical-ai/tutor-backend/services"
	"go.uber.org/zap"
)

// Intent distinguishes query-time from indexing-time embeddings. The
// provider produces different vectors for the two task types.
type Intent string

const (
	// IntentQuery embeds a user question for nearest-neighbor search.
	IntentQuery Intent = "RETRIEVAL_QUERY"
	// IntentDocument embeds corpus text for indexing.
	IntentDocument Intent = "RETRIEVAL_DOCUMENT"
)

// Embedder converts text into a vector of exactly Dimension() components.
type Embedder interface {
	Embed(ctx context.Context, text string, intent Intent) ([]float32, error)
	Dimension() int
}

// GeminiEmbedder is a thin REST client for the Gemini embedContent
// endpoint (text-embedding-004, 768 dimensions by default).
type GeminiEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dim        int
	client     *http.Client
	maxRetries int
	logger     *zap.Logger
}

// NewGeminiEmbedder creates an embedder from configuration. A missing
// API key returns ErrEmbeddingNotConfigured: the caller disables
// semantic search instead of failing startup.
func NewGeminiEmbedder(cfg config.GeminiConfig, logger *zap.Logger) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, services.ErrEmbeddingNotConfigured
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	dim := cfg.EmbeddingDim
	if dim == 0 {
		dim = 768
	}
	return &GeminiEmbedder{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.EmbedModel,
		dim:        dim,
		client:     &http.Client{Timeout: timeout},
		maxRetries: cfg.EmbedMaxRetries,
		logger:     logger,
	}, nil
}

// Dimension returns the dimensionality of produced vectors.
func (e *GeminiEmbedder) Dimension() int { return e.dim }

type embedRequest struct {
	Content  embedContent `json:"content"`
	TaskType string       `json:"taskType,omitempty"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed returns the embedding vector for text. Transient provider
// failures (connectivity, 429, 5xx) are retried with backoff up to
// maxRetries; exhaustion yields ErrEmbeddingUnavailable, a recoverable
// condition the retriever answers with lexical search.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string, intent Intent) ([]float32, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent", e.baseURL, e.model)
	body, err := json.Marshal(embedRequest{
		Content:  embedContent{Parts: []embedPart{{Text: text}}},
		TaskType: string(intent),
	})
	if err != nil {
		return nil, services.WrapInternal("failed to encode embedding request", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", services.ErrEmbeddingUnavailable, ctx.Err())
			}
		}

		vec, retryable, err := e.doEmbed(ctx, url, body)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		e.logger.Warn("embedding attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, fmt.Errorf("%w: %v", services.ErrEmbeddingUnavailable, lastErr)
}

// doEmbed performs one request. The bool return reports whether the
// failure is worth retrying.
func (e *GeminiEmbedder) doEmbed(ctx context.Context, url string, body []byte) ([]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		// Respect Retry-After if provided
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 && secs <= 30 {
				time.Sleep(time.Duration(secs) * time.Second)
			}
		}
		return nil, true, fmt.Errorf("embedding request failed: %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("embedding request failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	var out embedResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, false, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(out.Embedding.Values) != e.dim {
		return nil, false, fmt.Errorf("unexpected embedding dimension %d, want %d",
			len(out.Embedding.Values), e.dim)
	}
	return out.Embedding.Values, false, nil
}

func retryDelay(attempt int) time.Duration {
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
