package storage

import (
	"context"

	"github.com/poiesic/druglabel/core"
)

// DocumentRepository stores documents as they leave each pipeline stage.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// SaveDocuments stores documents under a stage, replacing earlier
	// versions with the same set id.
	SaveDocuments(ctx context.Context, stage core.Stage, docs ...*core.Document) error

	// GetDocument retrieves one document of a stage.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, stage core.Stage, setID string) (*core.Document, error)

	// ListDocuments returns every document of a stage ordered by set id.
	ListDocuments(ctx context.Context, stage core.Stage) ([]*core.Document, error)

	// SaveEnriched stores enriched documents, replacing earlier versions.
	SaveEnriched(ctx context.Context, docs ...*core.EnrichedDocument) error

	// GetEnriched retrieves one enriched document.
	// Returns ErrNotFound if the document doesn't exist.
	GetEnriched(ctx context.Context, setID string) (*core.EnrichedDocument, error)

	// ListEnriched returns every enriched document ordered by set id.
	ListEnriched(ctx context.Context) ([]*core.EnrichedDocument, error)
}

// Filter restricts vector queries to chunks whose metadata equals every
// key and value given. Keys are the core.Meta* constants.
type Filter map[string]string

// Matches reports whether metadata satisfies the filter.
func (f Filter) Matches(metadata map[string]string) bool {
	for k, v := range f {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// VectorStore holds embedded chunks.
type VectorStore interface {
	// Upsert stores chunks keyed by chunk id. Re-upserting a chunk replaces it.
	Upsert(ctx context.Context, chunks []core.Chunk) error

	// Query returns up to k chunks nearest to vector, most similar first.
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]core.ChunkMatch, error)

	// ByDocument returns every chunk of a document ordered by index, vectors included.
	ByDocument(ctx context.Context, documentID string) ([]core.Chunk, error)

	// DeleteDocument removes every chunk of a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Close releases resources held by the store.
	Close() error
}

// SearchIndex holds flattened documents for lookup and the tag index.
type SearchIndex interface {
	// UpsertSearchDocuments stores documents keyed by set id.
	UpsertSearchDocuments(ctx context.Context, docs ...*core.SearchDocument) error

	// GetSearchDocument retrieves one document.
	// Returns ErrNotFound if the document doesn't exist.
	GetSearchDocument(ctx context.Context, setID string) (*core.SearchDocument, error)

	// FindByTag returns the set ids of documents carrying a tag, in set id order.
	// Tags match case-insensitively.
	FindByTag(ctx context.Context, kind core.TagKind, tag string) ([]string, error)
}

// RankingWriter persists similarity rankings. Each write replaces any
// earlier ranking of the same document.
type RankingWriter interface {
	UpdateRanking(ctx context.Context, ranking *core.SimilarityRanking) error
}

// RankingReader reads persisted similarity rankings.
type RankingReader interface {
	// GetRanking returns ErrNotFound if no ranking was stored.
	GetRanking(ctx context.Context, documentID string) (*core.SimilarityRanking, error)
}

// RelationalStore is the relational drug catalogue.
type RelationalStore interface {
	RankingWriter

	// EnsureSchema creates the tables when missing.
	EnsureSchema(ctx context.Context) error

	// UpsertDocuments writes labelers and drugs in a single transaction.
	// Any failure rolls the whole batch back.
	UpsertDocuments(ctx context.Context, docs []*core.EnrichedDocument) error

	// Close releases the connection pool.
	Close() error
}

// CheckpointRepository tracks the progress of each pipeline stage.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, stamping UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, stage core.Stage) (*core.Checkpoint, error)
}
