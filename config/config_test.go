package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "text-embedding-004", cfg.Gemini.EmbedModel)
	assert.Equal(t, 768, cfg.Gemini.EmbeddingDim)
	assert.Equal(t, "http://localhost:6333", cfg.Qdrant.URL)
	assert.Equal(t, "book_chunks", cfg.Qdrant.Collection)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, 1000, cfg.RAG.ChunkBudget)
	assert.Equal(t, 500, cfg.RAG.SelectionBudget)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("RAG_TOP_K", "5")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, "key", cfg.Gemini.APIKey)
	assert.Equal(t, "http://qdrant:6333", cfg.Qdrant.URL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
}

func TestAuthEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.AuthEnabled())

	cfg.Auth.JWTSecret = "secret"
	assert.False(t, cfg.AuthEnabled())

	cfg.Database = &DatabaseConfig{Host: "localhost"}
	assert.True(t, cfg.AuthEnabled())
}

func TestDatabaseConfigFromURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://tutor:pw@db.internal:5433/tutordb?sslmode=require")

	cfg, err := New()
	require.NoError(t, err)
	require.NotNil(t, cfg.Database)
	assert.Equal(t, "postgres://tutor:pw@db.internal:5433/tutordb?sslmode=require", cfg.Database.DSN())

	safe := cfg.Database.LogString()
	assert.Contains(t, safe, "db.internal")
	assert.Contains(t, safe, "tutordb")
	assert.NotContains(t, safe, "pw")
}

func TestDatabaseConfigFromFields(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := New()
	require.NoError(t, err)
	require.NotNil(t, cfg.Database)
	assert.Contains(t, cfg.Database.DSN(), "host=localhost")
	assert.NotContains(t, cfg.Database.LogString(), "pw")
}

func TestDatabaseConfigAbsent(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)
	assert.Nil(t, cfg.Database)
}

func TestValidateProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")

	t.Setenv("SECRET_KEY", "prod-secret")
	_, err = New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")

	t.Setenv("DATABASE_URL", "postgres://u:p@h:5432/db")
	cfg, err := New()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.AuthEnabled())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero topK", "RAG_TOP_K", "0"},
		{"negative dim", "EMBEDDING_DIM", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 42, getEnvAsInt("SOME_INT", 42))

	t.Setenv("SOME_DUR", "bogus")
	assert.Equal(t, time.Minute, getEnvAsDuration("SOME_DUR", time.Minute))

	assert.Equal(t, "fallback", getEnv("UNSET_VAR_FOR_TEST", "fallback"))
}

func TestServerAddress(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8000}
	assert.Equal(t, "0.0.0.0:8000", s.Address())
}
