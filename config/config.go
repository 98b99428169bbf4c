// Package config loads process configuration from the environment, reading a
// .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Vector backends.
const (
	VectorBadger   = "badger"
	VectorChromem  = "chromem"
	VectorPgvector = "pgvector"
)

// Config is the environment-driven configuration of a pipeline run.
type Config struct {
	DataDir      string `env:"DRUGLABEL_DATA_DIR" envDefault:"./data"`
	ArtifactsDir string `env:"DRUGLABEL_ARTIFACTS_DIR" envDefault:"./artifacts"`
	LogLevel     string `env:"DRUGLABEL_LOG_LEVEL" envDefault:"info"`

	GenerationHost string `env:"DRUGLABEL_GENERATION_HOST" envDefault:"https://api.openai.com/v1"`
	EmbeddingHost  string `env:"DRUGLABEL_EMBEDDING_HOST" envDefault:"http://localhost:11434/v1"`
	EmbeddingModel string `env:"DRUGLABEL_EMBEDDING_MODEL" envDefault:"all-minilm"`
	APIKey         string `env:"OPENAI_API_KEY"`

	VectorBackend string `env:"DRUGLABEL_VECTOR_BACKEND" envDefault:"badger"`
	ChromemPath   string `env:"DRUGLABEL_CHROMEM_PATH" envDefault:"./data/chunks.gob.gz"`
	PostgresDSN   string `env:"DRUGLABEL_POSTGRES_DSN"`
	// VectorDimension sizes the pgvector column.
	VectorDimension int `env:"DRUGLABEL_VECTOR_DIMENSION" envDefault:"384"`

	ChunkMaxTokens int `env:"DRUGLABEL_CHUNK_MAX_TOKENS" envDefault:"512"`
	ChunkOverlap   int `env:"DRUGLABEL_CHUNK_OVERLAP" envDefault:"1"`
	SimilarTopK    int `env:"DRUGLABEL_SIMILAR_TOP_K" envDefault:"5"`
	PoolSize       int `env:"DRUGLABEL_POOL_SIZE" envDefault:"0"`

	ContraindicationTags bool `env:"DRUGLABEL_CONTRAINDICATION_TAGS" envDefault:"false"`
}

// Load reads .env files (default ".env") when present, then parses the
// environment into a Config. Variables already set win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and backend requirements.
func (c *Config) Validate() error {
	switch c.VectorBackend {
	case VectorBadger, VectorChromem:
	case VectorPgvector:
		if c.PostgresDSN == "" {
			return errors.New("config: pgvector backend requires DRUGLABEL_POSTGRES_DSN")
		}
		if c.VectorDimension < 1 {
			return errors.New("config: DRUGLABEL_VECTOR_DIMENSION must be positive")
		}
	default:
		return fmt.Errorf("config: unknown vector backend %q", c.VectorBackend)
	}
	if c.ChunkMaxTokens < 1 {
		return errors.New("config: DRUGLABEL_CHUNK_MAX_TOKENS must be positive")
	}
	if c.ChunkOverlap < 0 {
		return errors.New("config: DRUGLABEL_CHUNK_OVERLAP cannot be negative")
	}
	if c.SimilarTopK < 1 {
		return errors.New("config: DRUGLABEL_SIMILAR_TOP_K must be positive")
	}
	if c.PoolSize < 0 {
		return errors.New("config: DRUGLABEL_POOL_SIZE cannot be negative")
	}
	return nil
}
