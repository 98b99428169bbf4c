// Package chromem implements storage.VectorStore on an embedded chromem-go
// database that is persisted as a single export file.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/druglabel/ai"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// CollectionName is the collection holding drug-label chunks.
const CollectionName = "drug_similar_data"

const metaTokenCount = "token_count"

var errNoEmbedder = errors.New("chunk has no vector and no embedder is configured")

// Store keeps chunks in a chromem-go collection. Vectors are normalized by
// chromem on insert; scores are cosine similarities.
type Store struct {
	db     *chromem.DB
	coll   *chromem.Collection
	path   string
	logger *slog.Logger

	mu  sync.Mutex
	dim int
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*options)

type options struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// WithEmbedder embeds chunks that arrive without a vector.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open loads the store from path when the file exists. An empty path keeps
// the store in memory only. Close writes the export back to path.
func Open(path string, opts ...Option) (*Store, error) {
	o := &options{logger: slog.Default().With("component", "chromem")}
	for _, opt := range opts {
		opt(o)
	}

	db := chromem.NewDB()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			o.logger.Info("loading vector export", "path", path)
			if err := db.ImportFromFile(path, "", CollectionName); err != nil {
				return nil, fmt.Errorf("failed to import %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	coll, err := db.GetOrCreateCollection(CollectionName, nil, embeddingFunc(o.embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}

	return &Store{db: db, coll: coll, path: path, logger: o.logger}, nil
}

func embeddingFunc(embedder ai.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if embedder == nil {
			return nil, errNoEmbedder
		}
		return embedder.EmbedText(ctx, text)
	}
}

// Count returns the number of stored chunks.
func (s *Store) Count() int {
	return s.coll.Count()
}

func documentKey(documentID string, index int) string {
	return documentID + "#" + strconv.Itoa(index)
}

// Upsert adds or replaces chunks by document and index.
func (s *Store) Upsert(ctx context.Context, chunks []core.Chunk) error {
	docs := make([]chromem.Document, 0, len(chunks))

	s.mu.Lock()
	for i := range chunks {
		chunk := &chunks[i]
		if err := core.ValidateChunk(chunk); err != nil {
			s.mu.Unlock()
			return err
		}
		if n := len(chunk.Vector); n > 0 {
			if s.dim == 0 {
				s.dim = n
			}
			if n != s.dim {
				s.mu.Unlock()
				return fmt.Errorf("%w: chunk %d of %s has %d, store has %d",
					storage.ErrDimensionMismatch, chunk.Index, chunk.DocumentID, n, s.dim)
			}
		}
		meta := chunk.Metadata()
		meta[metaTokenCount] = strconv.Itoa(chunk.TokenCount)
		docs = append(docs, chromem.Document{
			ID:        documentKey(chunk.DocumentID, chunk.Index),
			Metadata:  meta,
			Embedding: chunk.Vector,
			Content:   chunk.Text,
		})
	}
	s.mu.Unlock()

	if len(docs) == 0 {
		return nil
	}
	return s.coll.AddDocuments(ctx, docs, runtime.NumCPU())
}

// Query returns the k chunks most similar to vector among those matching filter.
func (s *Store) Query(ctx context.Context, vector []float32, k int, filter storage.Filter) ([]core.ChunkMatch, error) {
	if k < 1 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	s.mu.Lock()
	dim := s.dim
	s.mu.Unlock()
	if dim != 0 && len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d, store has %d", storage.ErrDimensionMismatch, len(vector), dim)
	}

	// chromem rejects nResults above the collection size.
	n := min(k, s.coll.Count())
	if n == 0 {
		return []core.ChunkMatch{}, nil
	}

	results, err := s.coll.QueryEmbedding(ctx, vector, n, map[string]string(filter), nil)
	if err != nil {
		return nil, err
	}

	matches := make([]core.ChunkMatch, 0, len(results))
	for _, r := range results {
		chunk, err := toChunk(r.ID, r.Metadata, r.Content, r.Embedding)
		if err != nil {
			return nil, err
		}
		matches = append(matches, core.ChunkMatch{Chunk: chunk, Score: r.Similarity})
	}
	return matches, nil
}

// ByDocument returns a document's chunks ordered by index. Indices are
// contiguous from zero, so the scan stops at the first missing one.
func (s *Store) ByDocument(ctx context.Context, documentID string) ([]core.Chunk, error) {
	var chunks []core.Chunk
	for i := 0; ; i++ {
		doc, err := s.coll.GetByID(ctx, documentKey(documentID, i))
		if err != nil {
			break
		}
		chunk, err := toChunk(doc.ID, doc.Metadata, doc.Content, doc.Embedding)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, nil
}

// DeleteDocument removes a document's chunks.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	if s.coll.Count() == 0 {
		return nil
	}
	return s.coll.Delete(ctx, map[string]string{core.MetaDocumentID: documentID}, nil)
}

// Export writes every chunk to path. Paths ending in .gz are gzip-compressed.
func (s *Store) Export(path string) error {
	return s.db.ExportToFile(path, strings.HasSuffix(path, ".gz"), "", CollectionName)
}

// Close exports the store to the path it was opened from.
func (s *Store) Close() error {
	if s.path == "" {
		return nil
	}
	if err := s.Export(s.path); err != nil {
		return fmt.Errorf("failed to export %s: %w", s.path, err)
	}
	s.logger.Debug("exported vector store", "path", s.path, "chunks", s.coll.Count())
	return nil
}

func toChunk(id string, meta map[string]string, content string, embedding []float32) (*core.Chunk, error) {
	index, err := strconv.Atoi(meta[core.MetaChunkIndex])
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %s has index %q", storage.ErrSerializationFailed, id, meta[core.MetaChunkIndex])
	}
	tokens, _ := strconv.Atoi(meta[metaTokenCount])
	documentID := meta[core.MetaDocumentID]
	return &core.Chunk{
		ID:           core.ChunkID(documentID, index),
		DocumentID:   documentID,
		DocumentName: meta[core.MetaName],
		Slug:         meta[core.MetaSlug],
		Index:        index,
		Text:         content,
		TokenCount:   tokens,
		Vector:       embedding,
	}, nil
}
