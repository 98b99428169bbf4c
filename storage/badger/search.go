package badger

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// SearchIndex implements storage.SearchIndex for BadgerDB. Tags are indexed
// with one composite key per (kind, tag, document).
type SearchIndex struct {
	backend *Backend
}

var _ storage.SearchIndex = (*SearchIndex)(nil)

// NewSearchIndex creates a new SearchIndex.
func NewSearchIndex(backend *Backend) *SearchIndex {
	return &SearchIndex{backend: backend}
}

// UpsertSearchDocuments stores documents and rewrites their tag postings.
func (s *SearchIndex) UpsertSearchDocuments(ctx context.Context, docs ...*core.SearchDocument) error {
	return s.backend.update(func(tx *badger.Txn) error {
		for _, doc := range docs {
			key := makeSearchDocKey(doc.SetID)

			old, err := get(tx, key, storage.UnmarshalSearchDocument)
			switch {
			case err == nil:
				if err := deleteTagPostings(tx, old); err != nil {
					return err
				}
			case err != storage.ErrNotFound:
				return err
			}

			if err := tx.Set(key, storage.MarshalSearchDocument(doc)); err != nil {
				return err
			}
			for kind, tags := range doc.Tags {
				for _, tag := range tags {
					if strings.TrimSpace(tag) == "" {
						continue
					}
					if err := tx.Set(makeTagKey(kind, tag, doc.SetID), []byte{}); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func deleteTagPostings(tx *badger.Txn, doc *core.SearchDocument) error {
	for kind, tags := range doc.Tags {
		for _, tag := range tags {
			if err := tx.Delete(makeTagKey(kind, tag, doc.SetID)); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetSearchDocument retrieves one document.
func (s *SearchIndex) GetSearchDocument(ctx context.Context, setID string) (*core.SearchDocument, error) {
	var doc *core.SearchDocument
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = get(tx, makeSearchDocKey(setID), storage.UnmarshalSearchDocument)
		return err
	}, false)
	return doc, err
}

// FindByTag returns the set ids carrying a tag.
func (s *SearchIndex) FindByTag(ctx context.Context, kind core.TagKind, tag string) ([]string, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, storage.ErrInvalidQuery
	}
	prefix := makeTagPrefix(kind, tag)

	var ids []string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range scanKeys(tx, prefix) {
			ids = append(ids, string(key[len(prefix):]))
		}
		return nil
	}, false)
	return ids, err
}
