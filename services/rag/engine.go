// Package rag coordinates the answer pipeline: retrieve relevant book
// content, build a bounded prompt, generate an answer and attribute
// sources.
package rag

import (
	"context"
	"strings"
	"time"

	"github.com/physical-ai/tutor-backend/models"
	"github.com/physical-ai/tutor-backend/services"
	"github.com/physical-ai/tutor-backend/services/generation"
	"github.com/physical-ai/tutor-backend/services/prompt"
	"go.uber.org/zap"
)

// SelectedTextLabel is the sentinel source label for selection-mode
// answers, where no retrieval is performed.
const SelectedTextLabel = "selected text"

// Answer texts for degraded paths. Generation failure and missing
// generation config downgrade to these instead of erroring the request.
const (
	apologyAnswer = "I couldn't generate an answer right now. Please try again in a moment."

	generationDisabledAnswer = "Answer generation is not configured on this server, so I can only point you at " +
		"the book sections below."

	noContentPreamble = "I couldn't find directly relevant content in the book for this question, " +
		"so this answer draws on general robotics knowledge."
)

// Retriever yields ranked chunks for a query. Implemented by
// retrieval.Service; total, never errors.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) []models.RetrievalResult
}

// Engine is the public entry point of the answer pipeline. It is
// constructed once at startup with its collaborators and shares no
// hidden state between requests beyond the read-only corpus and the
// answer cache.
type Engine struct {
	retriever Retriever
	builder   *prompt.Builder
	generator generation.Generator // nil when generation is not configured
	cache     *AnswerCache         // nil disables caching
	topK      int
	logger    *zap.Logger
}

// NewEngine creates an engine. Pass a nil generator when no generation
// credential is configured; cacheSize <= 0 disables the answer cache.
func NewEngine(retriever Retriever, builder *prompt.Builder, generator generation.Generator, topK, cacheSize int, cacheTTL time.Duration, logger *zap.Logger) *Engine {
	if topK <= 0 {
		topK = 3
	}
	var cache *AnswerCache
	if cacheSize > 0 {
		cache = NewAnswerCache(cacheSize, cacheTTL)
	}
	return &Engine{
		retriever: retriever,
		builder:   builder,
		generator: generator,
		cache:     cache,
		topK:      topK,
		logger:    logger,
	}
}

// Answer runs the full pipeline for one question. The only error it
// returns is a validation error for a malformed (empty) question,
// rejected at this boundary before any retrieval or generation work.
// Every other failure downgrades to a best-effort AnswerResult.
func (e *Engine) Answer(ctx context.Context, question, selection string) (models.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.AnswerResult{}, services.ErrEmptyQuestion
	}

	if e.cache != nil {
		if result, ok := e.cache.Get(question, selection); ok {
			e.logger.Debug("answer cache hit", zap.String("question", question))
			return result, nil
		}
	}

	var result models.AnswerResult
	var generated bool
	if strings.TrimSpace(selection) != "" {
		result, generated = e.answerSelection(ctx, question, selection)
	} else {
		result, generated = e.answerRetrieved(ctx, question)
	}

	// Only genuinely generated answers are worth caching; degraded
	// responses should retry the provider on the next ask.
	if generated && e.cache != nil {
		e.cache.Set(question, selection, result)
	}
	return result, nil
}

// answerSelection explains a reader-selected passage. Retrieval is
// bypassed and the single source is the sentinel label.
func (e *Engine) answerSelection(ctx context.Context, question, selection string) (models.AnswerResult, bool) {
	p := e.builder.Selection(question, selection)
	answer, ok := e.generate(ctx, p)
	return models.AnswerResult{
		Answer:  answer,
		Sources: []models.Source{{Label: SelectedTextLabel, Score: 0}},
	}, ok
}

// answerRetrieved runs retrieval and picks the grounded or ungrounded
// template based on whether anything matched.
func (e *Engine) answerRetrieved(ctx context.Context, question string) (models.AnswerResult, bool) {
	results := e.retriever.Retrieve(ctx, question, e.topK)

	if len(results) == 0 {
		p := e.builder.Ungrounded(question)
		answer, ok := e.generate(ctx, p)
		if ok {
			answer = noContentPreamble + "\n\n" + answer
		}
		return models.AnswerResult{Answer: answer, Sources: []models.Source{}}, ok
	}

	p := e.builder.Grounded(question, results)
	answer, ok := e.generate(ctx, p)
	return models.AnswerResult{Answer: answer, Sources: sourcesFrom(results)}, ok
}

// generate calls the generator, downgrading configuration gaps and
// provider failures to fixed user-visible answers. The bool reports
// whether the text came from the model.
func (e *Engine) generate(ctx context.Context, prompt string) (string, bool) {
	if e.generator == nil {
		return generationDisabledAnswer, false
	}
	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.logger.Error("answer generation failed", zap.Error(err))
		return apologyAnswer, false
	}
	return answer, true
}

// sourcesFrom maps retrieval results to answer sources: positive
// scores only, rank order preserved, de-duplicated by label.
func sourcesFrom(results []models.RetrievalResult) []models.Source {
	seen := make(map[string]bool, len(results))
	sources := make([]models.Source, 0, len(results))
	for _, r := range results {
		if r.Score <= 0 || seen[r.SourceLabel] {
			continue
		}
		seen[r.SourceLabel] = true
		sources = append(sources, models.Source{Label: r.SourceLabel, Score: r.Score})
	}
	return sources
}
