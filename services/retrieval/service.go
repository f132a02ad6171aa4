// Package retrieval ranks book content against a user question,
// degrading from semantic (vector) search to lexical keyword search.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/physical-ai/tutor-backend/models"
	"github.com/physical-ai/tutor-backend/services/embedding"
	"github.com/physical-ai/tutor-backend/services/vectorstore"
	"go.uber.org/zap"
)

// Service retrieves ranked chunks for a query. The fallback chain is
// total: semantic search when an embedder is configured and reachable,
// otherwise lexical search over the in-memory corpus. Retrieve never
// returns an error; a failed retrieval degrades to the next tier and a
// zero-result retrieval is a valid outcome.
type Service struct {
	embedder embedding.Embedder // nil when semantic search is disabled
	store    vectorstore.Store
	corpus   []models.Document
	topK     int
	logger   *zap.Logger
}

// NewService creates a retriever. Pass a nil embedder to disable the
// semantic tier entirely; the capability is fixed at construction, not
// probed per call.
func NewService(embedder embedding.Embedder, store vectorstore.Store, corpus []models.Document, topK int, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = 3
	}
	return &Service{
		embedder: embedder,
		store:    store,
		corpus:   corpus,
		topK:     topK,
		logger:   logger,
	}
}

// SemanticEnabled reports whether the semantic tier is available.
func (s *Service) SemanticEnabled() bool {
	return s.embedder != nil && s.store != nil
}

// Retrieve returns at most topK results ordered by descending score.
// topK <= 0 uses the configured default.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) []models.RetrievalResult {
	if topK <= 0 {
		topK = s.topK
	}

	if s.SemanticEnabled() {
		results, ok := s.semantic(ctx, query, topK)
		if ok {
			return results
		}
		// Connectivity failure, not "no matches": fall through to lexical.
	}
	return s.lexical(query, topK)
}

// semantic runs embed + vector search. The bool result distinguishes a
// completed search (including zero hits, a valid outcome) from a
// failure that should fall back to lexical search.
func (s *Service) semantic(ctx context.Context, query string, topK int) ([]models.RetrievalResult, bool) {
	vec, err := s.embedder.Embed(ctx, query, embedding.IntentQuery)
	if err != nil {
		s.logger.Warn("query embedding failed, falling back to lexical search", zap.Error(err))
		return nil, false
	}

	hits, err := s.store.Search(ctx, vec, topK)
	if err != nil {
		s.logger.Warn("vector search failed, falling back to lexical search", zap.Error(err))
		return nil, false
	}

	results := make([]models.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, models.RetrievalResult{
			Text:        h.Chunk.Text,
			SourceLabel: h.Chunk.Title,
			Score:       h.Score,
		})
	}
	return results, true
}

// lexical scores each document by case-insensitive occurrence counts of
// the query's keywords, summed per document. Short filler tokens are
// ignored so "what is X" ranks by "X". Documents with a zero score are
// excluded; ties keep corpus load order (stable sort). No network is
// involved.
func (s *Service) lexical(query string, topK int) []models.RetrievalResult {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return nil
	}

	var results []models.RetrievalResult
	for _, doc := range s.corpus {
		text := strings.ToLower(doc.Text)
		count := 0
		for _, tok := range tokens {
			count += strings.Count(text, tok)
		}
		if count == 0 {
			continue
		}
		results = append(results, models.RetrievalResult{
			Text:        doc.Text,
			SourceLabel: doc.Title,
			Score:       float64(count),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results
}

// minTokenLen drops articles and other filler from lexical queries.
const minTokenLen = 3

func queryTokens(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
