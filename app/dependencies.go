// Package app wires the application dependencies: corpus, embedding,
// vector store, RAG engine and optional auth, assembled once at startup.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/physical-ai/tutor-backend/config"
	"github.com/physical-ai/tutor-backend/middleware"
	"github.com/physical-ai/tutor-backend/models"
	"github.com/physical-ai/tutor-backend/repositories"
	"github.com/physical-ai/tutor-backend/repositories/postgres"
	"github.com/physical-ai/tutor-backend/services"
	"github.com/physical-ai/tutor-backend/services/content"
	"github.com/physical-ai/tutor-backend/services/embedding"
	"github.com/physical-ai/tutor-backend/services/generation"
	"github.com/physical-ai/tutor-backend/services/prompt"
	"github.com/physical-ai/tutor-backend/services/rag"
	"github.com/physical-ai/tutor-backend/services/retrieval"
	"github.com/physical-ai/tutor-backend/services/vectorstore"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection: external collaborators are
// probed once here and the resulting capabilities stay fixed for the
// process lifetime.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *postgres.DB // nil when auth is disabled

	// Content and retrieval
	Corpus          []models.Document
	Store           vectorstore.Store
	SemanticSearch  bool
	VectorStoreMode string // "qdrant", "memory" or "disabled"

	// Pipeline
	Engine *rag.Engine

	// Auth
	Users          repositories.UserRepository
	Auth           *services.AuthService // nil when auth is disabled
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
// Missing credentials degrade capabilities instead of failing startup;
// only an explicitly configured but unreachable database is fatal.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initCorpus(cfg)
	embedder := deps.initEmbedder(cfg)
	deps.initVectorStore(ctx, cfg, embedder)
	deps.indexCorpus(ctx, cfg, embedder)
	deps.initEngine(cfg, embedder)

	if err := deps.initAuth(ctx, cfg); err != nil {
		return nil, err
	}

	logger.Info("all dependencies initialized",
		zap.Int("documents", len(deps.Corpus)),
		zap.Bool("semantic_search", deps.SemanticSearch),
		zap.String("vector_store", deps.VectorStoreMode),
		zap.Bool("auth_enabled", deps.Auth != nil))
	return deps, nil
}

// initCorpus loads the book content. A missing or unreadable content
// directory leaves the corpus empty; the pipeline still answers from
// general knowledge.
func (d *Dependencies) initCorpus(cfg *config.Config) {
	loader := content.NewLoader(cfg.Content.Dir, d.Logger)
	docs, err := loader.Load()
	if err != nil {
		d.Logger.Warn("failed to load book content, starting with empty corpus",
			zap.String("dir", cfg.Content.Dir),
			zap.Error(err))
	}
	d.Corpus = docs
}

// initEmbedder constructs the embedding client, returning nil when no
// API key is configured.
func (d *Dependencies) initEmbedder(cfg *config.Config) embedding.Embedder {
	emb, err := embedding.NewGeminiEmbedder(cfg.Gemini, d.Logger)
	if err != nil {
		d.Logger.Warn("embedding provider not configured, semantic search disabled")
		return nil
	}
	return emb
}

// initVectorStore picks the vector backend: Qdrant when reachable
// within the connect timeout, otherwise the in-memory store. Without an
// embedder no vector store is wired at all.
func (d *Dependencies) initVectorStore(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) {
	if embedder == nil {
		d.VectorStoreMode = "disabled"
		return
	}

	qdrant := vectorstore.NewQdrantClient(cfg.Qdrant, d.Logger)
	if err := qdrant.Ping(ctx, cfg.Qdrant.ConnectTimeout); err != nil {
		d.Logger.Warn("qdrant unreachable, using in-memory vector store",
			zap.String("url", cfg.Qdrant.URL),
			zap.Error(err))
		d.Store = vectorstore.NewMemory()
		d.VectorStoreMode = "memory"
	} else {
		d.Store = qdrant
		d.VectorStoreMode = "qdrant"
	}

	if err := d.Store.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		d.Logger.Warn("failed to ensure vector collection", zap.Error(err))
	}
}

// indexCorpus chunks and embeds every document into the vector store. A
// per-chunk failure is logged and skipped; if the provider is plainly
// unavailable, indexing stops early and query-time fallback takes over.
func (d *Dependencies) indexCorpus(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) {
	if embedder == nil || d.Store == nil || len(d.Corpus) == 0 {
		return
	}

	indexed := 0
	for _, doc := range d.Corpus {
		chunks := content.SplitDocument(doc, cfg.Content.ChunkMaxChars)
		vectors := make([][]float32, 0, len(chunks))
		kept := make([]models.Chunk, 0, len(chunks))
		for _, chunk := range chunks {
			vec, err := embedder.Embed(ctx, chunk.Text, embedding.IntentDocument)
			if err != nil {
				if errors.Is(err, services.ErrEmbeddingUnavailable) {
					d.Logger.Warn("embedding provider unavailable, stopping corpus indexing",
						zap.Int("indexed_chunks", indexed),
						zap.Error(err))
					return
				}
				d.Logger.Warn("skipping chunk, embedding failed",
					zap.String("chunk_id", chunk.ChunkID),
					zap.Error(err))
				continue
			}
			vectors = append(vectors, vec)
			kept = append(kept, chunk)
		}
		if len(kept) == 0 {
			continue
		}
		if err := d.Store.Upsert(ctx, kept, vectors); err != nil {
			d.Logger.Warn("failed to index document",
				zap.String("source", doc.SourceID),
				zap.Error(err))
			continue
		}
		indexed += len(kept)
	}
	d.Logger.Info("corpus indexed", zap.Int("chunks", indexed))
}

// initEngine wires retriever, prompt builder and generator into the
// answer engine.
func (d *Dependencies) initEngine(cfg *config.Config, embedder embedding.Embedder) {
	retriever := retrieval.NewService(embedder, d.Store, d.Corpus, cfg.RAG.TopK, d.Logger)
	d.SemanticSearch = retriever.SemanticEnabled()

	builder := prompt.NewBuilder(cfg.RAG.TopK, cfg.RAG.ChunkBudget, cfg.RAG.SelectionBudget)

	var generator generation.Generator
	if gen, err := generation.NewGeminiGenerator(cfg.Gemini, d.Logger); err != nil {
		d.Logger.Warn("generation provider not configured, answers will be degraded")
	} else {
		generator = gen
	}

	d.Engine = rag.NewEngine(retriever, builder, generator, cfg.RAG.TopK,
		cfg.RAG.CacheSize, cfg.RAG.CacheTTL, d.Logger)
}

// initAuth wires the database-backed auth layer when both a signing
// secret and a database are configured. Otherwise auth endpoints are
// disabled and protected routes reject every token.
func (d *Dependencies) initAuth(ctx context.Context, cfg *config.Config) error {
	if !cfg.AuthEnabled() {
		d.Logger.Warn("auth not configured, auth endpoints disabled")
		d.AuthMiddleware = middleware.NewAuthMiddleware(&rejectAllValidator{}, d.Logger)
		return nil
	}

	db, err := postgres.NewDB(*cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	d.DB = db
	d.Users = postgres.NewUserRepository(db, d.Logger)

	auth, err := services.NewAuthService(cfg.Auth, d.Users, d.Logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}
	d.Auth = auth
	d.AuthMiddleware = middleware.NewAuthMiddleware(auth, d.Logger)

	d.Logger.Info("auth layer initialized")
	return nil
}

// rejectAllValidator rejects all tokens (used when auth is not configured)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*middleware.Claims, error) {
	return nil, services.ErrAuthNotConfigured
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
