package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      *DatabaseConfig // Optional: when nil, auth endpoints are disabled
	Auth          AuthConfig
	Gemini        GeminiConfig
	Qdrant        QdrantConfig
	Content       ContentConfig
	RAG           RAGConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration for the user store.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds JWT authentication configuration
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// GeminiConfig holds the Gemini embedding/generation provider configuration.
// An empty APIKey is a valid, detected state: it disables semantic search and
// answer generation instead of failing startup.
type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	EmbedModel     string
	GenerateModel  string
	EmbeddingDim   int
	Timeout        time.Duration
	EmbedMaxRetries int
}

// QdrantConfig holds the vector database connection configuration
type QdrantConfig struct {
	URL            string
	APIKey         string
	Collection     string
	ConnectTimeout time.Duration
	Timeout        time.Duration
}

// ContentConfig holds the book content source configuration
type ContentConfig struct {
	Dir           string
	ChunkMaxChars int
}

// RAGConfig holds retrieval and prompt budgeting parameters
type RAGConfig struct {
	TopK            int
	ChunkBudget     int
	SelectionBudget int
	CacheSize       int
	CacheTTL        time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists (backend/.env when run from project root, .env when run from backend/)
	_ = godotenv.Load("backend/.env")
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8000),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret:       getEnv("SECRET_KEY", ""),
			AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
			RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		Gemini: GeminiConfig{
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			BaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			EmbedModel:      getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
			GenerateModel:   getEnv("GEMINI_GENERATE_MODEL", "gemini-2.5-flash"),
			EmbeddingDim:    getEnvAsInt("EMBEDDING_DIM", 768),
			Timeout:         getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
			EmbedMaxRetries: getEnvAsInt("GEMINI_EMBED_MAX_RETRIES", 2),
		},
		Qdrant: QdrantConfig{
			URL:            getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:         getEnv("QDRANT_API_KEY", ""),
			Collection:     getEnv("COLLECTION_NAME", "book_chunks"),
			ConnectTimeout: getEnvAsDuration("QDRANT_CONNECT_TIMEOUT", 5*time.Second),
			Timeout:        getEnvAsDuration("QDRANT_TIMEOUT", 15*time.Second),
		},
		Content: ContentConfig{
			Dir:           getEnv("CONTENT_DIR", "my-book/docs"),
			ChunkMaxChars: getEnvAsInt("CHUNK_MAX_CHARS", 1200),
		},
		RAG: RAGConfig{
			TopK:            getEnvAsInt("RAG_TOP_K", 3),
			ChunkBudget:     getEnvAsInt("RAG_CHUNK_BUDGET", 1000),
			SelectionBudget: getEnvAsInt("RAG_SELECTION_BUDGET", 500),
			CacheSize:       getEnvAsInt("ANSWER_CACHE_SIZE", 256),
			CacheTTL:        getEnvAsDuration("ANSWER_CACHE_TTL", 5*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Content.Dir == "" {
		return fmt.Errorf("content directory is required")
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("vector collection name is required")
	}
	if c.Gemini.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	// Auth is optional in development but required in production
	if c.IsProduction() {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("SECRET_KEY is required in production")
		}
		if c.Database == nil {
			return fmt.Errorf("database configuration required in production: set DATABASE_URL or DB_HOST")
		}
	}

	return nil
}

// AuthEnabled reports whether the auth collaborator can be wired: it needs
// both a signing secret and a user store.
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != "" && c.Database != nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars.
// Returns nil when neither is set, which disables the auth endpoints.
func loadDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return &DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	if getEnv("DB_HOST", "") == "" {
		return nil
	}
	return &DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "tutor"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "tutor"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
