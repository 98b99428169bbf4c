package badger

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// VectorStore implements storage.VectorStore for BadgerDB. Vectors are
// expected to be unit length; similarity is the dot product.
type VectorStore struct {
	backend *Backend
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a new VectorStore.
func NewVectorStore(backend *Backend) *VectorStore {
	return &VectorStore{backend: backend}
}

// Close is a no-op; the backend owns the database.
func (s *VectorStore) Close() error {
	return nil
}

// Upsert stores chunks keyed by document and index. Every vector must have
// the dimension of the first vector ever stored.
func (s *VectorStore) Upsert(ctx context.Context, chunks []core.Chunk) error {
	return s.backend.update(func(tx *badger.Txn) error {
		dim, err := s.dimension(tx)
		if err != nil {
			return err
		}
		for i := range chunks {
			chunk := &chunks[i]
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			if len(chunk.Vector) > 0 {
				if dim == 0 {
					dim = len(chunk.Vector)
					if err := tx.Set([]byte(vectorDimKey), storage.MarshalID(core.ID(dim))); err != nil {
						return err
					}
				}
				if len(chunk.Vector) != dim {
					return fmt.Errorf("%w: chunk %d of %s has %d, store has %d",
						storage.ErrDimensionMismatch, chunk.Index, chunk.DocumentID, len(chunk.Vector), dim)
				}
			}
			if err := tx.Set(makeChunkKey(chunk.DocumentID, chunk.Index), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *VectorStore) dimension(tx *badger.Txn) (int, error) {
	item, err := tx.Get([]byte(vectorDimKey))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var dim core.ID
	err = item.Value(func(val []byte) error {
		var decodeErr error
		dim, decodeErr = storage.UnmarshalID(val)
		return decodeErr
	})
	return int(dim), err
}

// Query scans every chunk and returns the k most similar. Ties keep key order.
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int, filter storage.Filter) ([]core.ChunkMatch, error) {
	if k < 1 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var matches []core.ChunkMatch
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, []byte(chunkPrefix+":"), func(_, val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			if len(chunk.Vector) == 0 || !filter.Matches(chunk.Metadata()) {
				return nil
			}
			if len(chunk.Vector) != len(vector) {
				return fmt.Errorf("%w: query has %d, store has %d", storage.ErrDimensionMismatch, len(vector), len(chunk.Vector))
			}
			matches = append(matches, core.ChunkMatch{Chunk: chunk, Score: dotProduct(vector, chunk.Vector)})
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(matches, func(a, b core.ChunkMatch) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// ByDocument returns a document's chunks ordered by index.
func (s *VectorStore) ByDocument(ctx context.Context, documentID string) ([]core.Chunk, error) {
	var chunks []core.Chunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, makeChunkDocumentPrefix(documentID), func(_, val []byte) error {
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			chunks = append(chunks, *chunk)
			return nil
		})
	}, false)
	return chunks, err
}

// DeleteDocument removes a document's chunks.
func (s *VectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	return s.backend.update(func(tx *badger.Txn) error {
		for _, key := range scanKeys(tx, makeChunkDocumentPrefix(documentID)) {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
