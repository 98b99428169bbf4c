package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "https://api.openai.com/v1", cfg.GenerationHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "all-minilm", cfg.EmbeddingModel)
	assert.Equal(t, 1024, cfg.EmbeddingCacheSize)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.GenerationHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithGenerationHost("http://generate:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://generate:9090/v1", cfg.GenerationHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithAPIKey("sk-test"),
			WithEmbeddingCacheSize(0),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, 0, cfg.EmbeddingCacheSize)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name               string
		generationHost     string
		embeddingHost      string
		expectedGeneration string
		expectedEmbedding  string
	}{
		{
			name:               "already has /v1",
			generationHost:     "http://localhost:11434/v1",
			embeddingHost:      "http://localhost:11434/v1",
			expectedGeneration: "http://localhost:11434/v1",
			expectedEmbedding:  "http://localhost:11434/v1",
		},
		{
			name:               "missing /v1",
			generationHost:     "http://localhost:11434",
			embeddingHost:      "http://localhost:11434",
			expectedGeneration: "http://localhost:11434/v1",
			expectedEmbedding:  "http://localhost:11434/v1",
		},
		{
			name:               "has trailing slash",
			generationHost:     "http://localhost:11434/",
			embeddingHost:      "http://localhost:11434/",
			expectedGeneration: "http://localhost:11434/v1",
			expectedEmbedding:  "http://localhost:11434/v1",
		},
		{
			name:               "empty hosts",
			expectedGeneration: "",
			expectedEmbedding:  "",
		},
		{
			name:               "different formats",
			generationHost:     "http://generate:9090/v1",
			embeddingHost:      "http://embed:8080",
			expectedGeneration: "http://generate:9090/v1",
			expectedEmbedding:  "http://embed:8080/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				GenerationHost: tt.generationHost,
				EmbeddingHost:  tt.embeddingHost,
			}

			cfg.Normalize()

			assert.Equal(t, tt.expectedGeneration, cfg.GenerationHost)
			assert.Equal(t, tt.expectedEmbedding, cfg.EmbeddingHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GenerationHost: "http://localhost:11434",
			EmbeddingHost:  "http://localhost:11434",
			EmbeddingModel: "all-minilm",
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()

		err := cfg.Validate()
		assert.NoError(t, err)

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.GenerationHost)
	})

	t.Run("missing generation host", func(t *testing.T) {
		cfg := valid()
		cfg.GenerationHost = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "GenerationHost")
	})

	t.Run("missing embedding host", func(t *testing.T) {
		cfg := valid()
		cfg.EmbeddingHost = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingHost")
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := valid()
		cfg.EmbeddingModel = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingModel")
	})

	t.Run("negative cache size", func(t *testing.T) {
		cfg := valid()
		cfg.EmbeddingCacheSize = -1

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingCacheSize")
	})
}

func TestConfigValidate_Integration(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	require.NoError(t, cfg.Validate())
}
