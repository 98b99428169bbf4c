package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator issues a single text-generation request against a named model.
// Implementations must be thread-safe for concurrent use and must not retry;
// callers own admission control and failure handling.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is one text-generation call.
type Request struct {
	// Model is the generation model identifier, e.g. "gpt-4o".
	Model string

	// System is an optional system message sent before the prompt.
	System string

	// Prompt is the user message.
	Prompt string

	Temperature float64
	MaxTokens   int
	// TopP is applied only when positive.
	TopP float64

	// JSONMode asks the service for a JSON object response.
	JSONMode bool
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text-generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
