package vectorstore

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/physical-ai/tutor-backend/models"
)

// Memory is a process-lifetime, non-persistent vector store using
// brute-force cosine similarity. It backs the pipeline when the vector
// database is unreachable at startup, at the cost of losing indexed
// data on restart.
type Memory struct {
	mu      sync.RWMutex
	dim     int
	byID    map[string]int
	chunks  []models.Chunk
	vectors [][]float32
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]int)}
}

// EnsureCollection fixes the vector dimension. Calling it again with
// the same dimension is a no-op; a different dimension resets the store.
func (m *Memory) EnsureCollection(_ context.Context, dim int) error {
	if dim <= 0 {
		return errors.New("invalid dimension")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim == dim {
		return nil
	}
	m.dim = dim
	m.byID = make(map[string]int)
	m.chunks = nil
	m.vectors = nil
	return nil
}

// Upsert stores vectors, overwriting any existing point with the same
// chunk ID.
func (m *Memory) Upsert(_ context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range vectors {
		if len(v) != m.dim {
			return errors.New("vector dimension mismatch")
		}
		if idx, ok := m.byID[chunks[i].ChunkID]; ok {
			m.chunks[idx] = chunks[i]
			m.vectors[idx] = v
			continue
		}
		m.byID[chunks[i].ChunkID] = len(m.chunks)
		m.chunks = append(m.chunks, chunks[i])
		m.vectors = append(m.vectors, v)
	}
	return nil
}

// Search returns the topK stored chunks by descending cosine similarity.
func (m *Memory) Search(_ context.Context, vector []float32, topK int) ([]SearchHit, error) {
	if topK <= 0 {
		topK = 3
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]SearchHit, 0, len(m.vectors))
	for i := range m.vectors {
		hits = append(hits, SearchHit{
			Chunk: m.chunks[i],
			Score: cosine(m.vectors[i], vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// cosine computes cosine similarity without assuming normalized inputs.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
