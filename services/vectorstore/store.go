// Package vectorstore provides the vector index used for semantic
// retrieval: a thin Qdrant REST adapter and a process-lifetime
// in-memory fallback with the same contract.
package vectorstore

import (
	"context"

	"github.com/physical-ai/tutor-backend/models"
)

// SearchHit is a single nearest-neighbor match.
type SearchHit struct {
	Chunk models.Chunk
	Score float64
}

// Store persists chunk vectors and supports similarity search.
//
// EnsureCollection is idempotent. Upsert overwrites any existing point
// with the same chunk ID. Search returns at most topK hits ordered by
// descending similarity.
type Store interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchHit, error)
}
