package similarity

import "errors"

var (
	// ErrNoEmbeddingsFound is returned when a document has no stored vectors.
	ErrNoEmbeddingsFound = errors.New("no embeddings found")

	// ErrVectorStoreRequired is returned when no vector store is supplied.
	ErrVectorStoreRequired = errors.New("vector store is required")

	// ErrInvalidTopK is returned for a topK below 1.
	ErrInvalidTopK = errors.New("topK must be greater than 0")
)
