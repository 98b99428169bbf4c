package index

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/druglabel/ai"
	"github.com/poiesic/druglabel/core"
)

// BatchProcessor embeds chunk texts in fixed-size batches.
type BatchProcessor struct {
	embedder       ai.Embedder
	batchSize      int
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// batchSize: maximum texts per embedding call
// maxRetries: maximum number of attempts per embedding call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(embedder ai.Embedder, batchSize, maxRetries int, retryBaseDelay time.Duration) (*BatchProcessor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if batchSize < 1 {
		return nil, ErrInvalidBatchSize
	}
	if maxRetries < 1 {
		return nil, ErrInvalidMaxAttempts
	}
	return &BatchProcessor{
		embedder:       embedder,
		batchSize:      batchSize,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}, nil
}

// Process embeds every chunk in place. Vectors are normalized after
// embedding so stores can rank by dot product.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []core.Chunk) error {
	for start := 0; start < len(chunks); start += bp.batchSize {
		end := min(start+bp.batchSize, len(chunks))
		if err := bp.embed(ctx, chunks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (bp *BatchProcessor) embed(ctx context.Context, chunks []core.Chunk) error {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(chunks), len(embeddings))
	}

	for i := range chunks {
		chunks[i].Vector = NormalizeVector(embeddings[i])
	}
	return nil
}
