package models

// Document is a single book file loaded into the in-memory corpus.
// Documents are created once at startup by the content loader and are
// never mutated afterwards, so concurrent reads need no synchronization.
type Document struct {
	SourceID string `json:"source_id"` // file path relative to the content root
	Title    string `json:"title"`     // file base name without extension
	Text     string `json:"text"`
}

// Chunk is a retrievable unit of text, either a whole document or a
// paragraph-level sub-span produced at indexing time.
//
// Embedding, when present, has exactly the configured embedding
// dimension (768 for text-embedding-004).
type Chunk struct {
	ChunkID   string    `json:"chunk_id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// RetrievalResult is one ranked hit produced for a query. Results are
// built fresh per request and ordered by descending score.
type RetrievalResult struct {
	Text        string  `json:"text"`
	SourceLabel string  `json:"source_label"`
	Score       float64 `json:"score"`
}

// Source attributes part of an answer to a corpus location.
//
// Score semantics depend on the retrieval mode that produced it: cosine
// similarity (typically within [0,1]) for semantic search, raw
// occurrence count (>= 1, unbounded) for the lexical fallback. The two
// never mix within a single answer because a request runs exactly one
// retrieval mode.
type Source struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// AnswerResult is the orchestrator's response to a single question.
type AnswerResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}
