// Package generation produces answer text from a built prompt via the
// Gemini generateContent API.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/physical-ai/tutor-backend/config"
	"github.com/physical-ai/tutor-backend/services"
	"go.uber.org/zap"
)

// Generator produces raw answer text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator is a thin REST client for the Gemini generateContent
// endpoint. Calls are not retried: generation is neither idempotent in
// cost nor in latency, and the orchestrator already degrades a failure
// into a user-visible message.
type GeminiGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewGeminiGenerator creates a generator from configuration. A missing
// API key returns ErrGenerationNotConfigured; the caller keeps the
// pipeline alive and refuses generation per request instead.
func NewGeminiGenerator(cfg config.GeminiConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, services.ErrGenerationNotConfigured
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &GeminiGenerator{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.GenerateModel,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate performs a single generateContent call and returns the
// concatenated candidate text. Provider errors and timeouts surface as
// ErrGenerationFailed.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	body, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", services.WrapInternal("failed to encode generation request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", services.WrapInternal("failed to build generation request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", services.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s", services.ErrGenerationFailed, resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", services.ErrGenerationFailed, err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: %v", services.ErrGenerationFailed, errors.New("no candidates returned"))
	}

	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	answer := strings.TrimSpace(text.String())
	if answer == "" {
		return "", fmt.Errorf("%w: %v", services.ErrGenerationFailed, errors.New("empty candidate text"))
	}
	return answer, nil
}
