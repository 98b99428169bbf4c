package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
// Documents are stored as JSON because their schema mirrors the export.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// SaveDocuments stores documents under a stage.
func (r *DocumentRepository) SaveDocuments(ctx context.Context, stage core.Stage, docs ...*core.Document) error {
	return r.backend.batch(func(wb *badger.WriteBatch) error {
		for _, doc := range docs {
			if err := core.ValidateDocument(doc); err != nil {
				return err
			}
			value, err := storage.MarshalJSON(doc)
			if err != nil {
				return err
			}
			if err := wb.Set(makeDocumentKey(stage, doc.SetID), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDocument retrieves one document of a stage.
func (r *DocumentRepository) GetDocument(ctx context.Context, stage core.Stage, setID string) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = get(tx, makeDocumentKey(stage, setID), storage.UnmarshalJSON[core.Document])
		return err
	}, false)
	return doc, err
}

// ListDocuments returns every document of a stage ordered by set id.
func (r *DocumentRepository) ListDocuments(ctx context.Context, stage core.Stage) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, makeDocumentStagePrefix(stage), func(_, val []byte) error {
			doc, err := storage.UnmarshalJSON[core.Document](val)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	}, false)
	return docs, err
}

// SaveEnriched stores enriched documents.
func (r *DocumentRepository) SaveEnriched(ctx context.Context, docs ...*core.EnrichedDocument) error {
	return r.backend.batch(func(wb *badger.WriteBatch) error {
		for _, doc := range docs {
			if err := core.ValidateDocument(&doc.Document); err != nil {
				return err
			}
			value, err := storage.MarshalJSON(doc)
			if err != nil {
				return err
			}
			if err := wb.Set(makeEnrichedKey(doc.SetID), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetEnriched retrieves one enriched document.
func (r *DocumentRepository) GetEnriched(ctx context.Context, setID string) (*core.EnrichedDocument, error) {
	var doc *core.EnrichedDocument
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = get(tx, makeEnrichedKey(setID), storage.UnmarshalJSON[core.EnrichedDocument])
		return err
	}, false)
	return doc, err
}

// ListEnriched returns every enriched document ordered by set id.
func (r *DocumentRepository) ListEnriched(ctx context.Context) ([]*core.EnrichedDocument, error) {
	var docs []*core.EnrichedDocument
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, []byte(enrichedPrefix+":"), func(_, val []byte) error {
			doc, err := storage.UnmarshalJSON[core.EnrichedDocument](val)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	}, false)
	return docs, err
}
