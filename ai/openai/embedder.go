package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/druglabel/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	cache    *lru.Cache[string, []float32]
	mu       sync.Mutex
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return newEmbedderWith(embedder, config.EmbeddingCacheSize)
}

func newEmbedderWith(embedder embeddings.Embedder, cacheSize int) (*Embedder, error) {
	e := &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, []float32](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("init embedding cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// Cached texts are served locally; only misses reach the service.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missing := make([]string, 0, len(texts))
	missingIdx := make([]int, 0, len(texts))
	for i, text := range texts {
		if vec, ok := e.lookup(text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	e.logger.Debug("generating embeddings for texts", "count", len(missing), "cached", len(texts)-len(missing))
	vectors, err := e.embedder.EmbedDocuments(ctx, missing)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(missing), "err", err)
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(missing))
	}
	for j, vec := range vectors {
		out[missingIdx[j]] = vec
		e.store(missing[j], vec)
	}
	return out, nil
}

func (e *Embedder) lookup(text string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	e.mu.Lock()
	vec, ok := e.cache.Get(text)
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	return append([]float32(nil), vec...), true
}

func (e *Embedder) store(text string, vec []float32) {
	if e.cache == nil || len(vec) == 0 {
		return
	}
	e.mu.Lock()
	e.cache.Add(text, append([]float32(nil), vec...))
	e.mu.Unlock()
}
