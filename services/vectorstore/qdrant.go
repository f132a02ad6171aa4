package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/physical-ai/tutor-backend/config"
	"github.com/physical-ai/tutor-backend/models"
	"go.uber.org/zap"
)

// QdrantClient is a minimal REST adapter over a Qdrant collection.
//
// Point IDs are allocated from a dense counter with a chunkID side
// table instead of hashing the chunk ID, so two distinct chunks can
// never silently overwrite each other. The table lives for the process
// lifetime, which is sufficient because this backend is the only
// writer and re-indexes its corpus at startup.
type QdrantClient struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     *zap.Logger

	mu     sync.Mutex
	ids    map[string]uint64
	nextID uint64
}

// NewQdrantClient creates a client from configuration. No connection is
// attempted until Ping or the first operation.
func NewQdrantClient(cfg config.QdrantConfig, logger *zap.Logger) *QdrantClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantClient{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		ids:        make(map[string]uint64),
		nextID:     1,
	}
}

// Ping checks connectivity by listing collections. Callers use it at
// startup (bounded by the configured connect timeout) to decide whether
// to fall back to the in-memory store.
func (c *QdrantClient) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/collections", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant list collections failed: %s", resp.Status)
	}
	return nil
}

// EnsureCollection creates the collection with cosine distance if it
// does not exist yet. Transient failures are returned for the caller to
// log and continue; they do not take the system down.
func (c *QdrantClient) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return errors.New("invalid dimension")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/collections/%s", c.url, c.collection), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("qdrant get collection failed: %s", resp.Status)
	}

	c.logger.Info("creating vector collection",
		zap.String("collection", c.collection),
		zap.Int("dim", dim))
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	return c.putJSON(ctx, fmt.Sprintf("%s/collections/%s", c.url, c.collection), body)
}

// Upsert writes or overwrites one point per chunk, keyed by the dense
// numeric ID assigned to the chunk ID.
func (c *QdrantClient) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		points[i] = map[string]any{
			"id":     c.pointID(chunks[i].ChunkID),
			"vector": vectors[i],
			"payload": map[string]any{
				"chunk_id": chunks[i].ChunkID,
				"title":    chunks[i].Title,
				"text":     chunks[i].Text,
			},
		}
	}
	body := map[string]any{"points": points}
	return c.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", c.url, c.collection), body)
}

// Search returns the topK nearest points by descending similarity.
// Connectivity failures are returned as errors; the retriever converts
// them into a degraded (lexical or empty) result, never a crash.
func (c *QdrantClient) Search(ctx context.Context, vector []float32, topK int) ([]SearchHit, error) {
	if topK <= 0 {
		topK = 3
	}
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := c.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", c.url, c.collection), reqBody, &resp)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := models.Chunk{}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			chunk.ChunkID = v
		}
		if v, ok := r.Payload["title"].(string); ok {
			chunk.Title = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		hits = append(hits, SearchHit{Chunk: chunk, Score: r.Score})
	}
	return hits, nil
}

// pointID returns the stable numeric ID for a chunk, allocating the
// next counter value on first sight.
func (c *QdrantClient) pointID(chunkID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.ids[chunkID]; ok {
		return id
	}
	id := c.nextID
	c.nextID++
	c.ids[chunkID] = id
	return id
}

func (c *QdrantClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}

func (c *QdrantClient) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (c *QdrantClient) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
