package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, VectorBadger, cfg.VectorBackend)
	assert.Equal(t, 512, cfg.ChunkMaxTokens)
	assert.Equal(t, 1, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.SimilarTopK)
	assert.False(t, cfg.ContraindicationTags)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DRUGLABEL_DATA_DIR", "/var/lib/druglabel")
	t.Setenv("DRUGLABEL_CHUNK_MAX_TOKENS", "128")
	t.Setenv("DRUGLABEL_CONTRAINDICATION_TAGS", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/druglabel", cfg.DataDir)
	assert.Equal(t, 128, cfg.ChunkMaxTokens)
	assert.True(t, cfg.ContraindicationTags)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DRUGLABEL_SIMILAR_TOP_K=9\nDRUGLABEL_EMBEDDING_MODEL=nomic-embed-text\n"), 0o644))
	// Set through t.Setenv so the variables godotenv adds are restored afterwards.
	t.Setenv("DRUGLABEL_SIMILAR_TOP_K", "")
	os.Unsetenv("DRUGLABEL_SIMILAR_TOP_K")
	t.Setenv("DRUGLABEL_EMBEDDING_MODEL", "")
	os.Unsetenv("DRUGLABEL_EMBEDDING_MODEL")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.SimilarTopK)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{VectorBackend: VectorBadger, ChunkMaxTokens: 512, ChunkOverlap: 1, SimilarTopK: 5, VectorDimension: 384}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"chromem", func(c *Config) { c.VectorBackend = VectorChromem }, false},
		{"pgvector without dsn", func(c *Config) { c.VectorBackend = VectorPgvector }, true},
		{"pgvector with dsn", func(c *Config) {
			c.VectorBackend = VectorPgvector
			c.PostgresDSN = "postgres://localhost/drugs"
		}, false},
		{"unknown backend", func(c *Config) { c.VectorBackend = "qdrant" }, true},
		{"zero max tokens", func(c *Config) { c.ChunkMaxTokens = 0 }, true},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, true},
		{"zero top k", func(c *Config) { c.SimilarTopK = 0 }, true},
		{"negative pool", func(c *Config) { c.PoolSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
