package badger

import (
	"github.com/poiesic/druglabel/storage"
)

// Stores bundles every BadgerDB-backed store over one database.
type Stores struct {
	Documents   storage.DocumentRepository
	Vectors     storage.VectorStore
	Search      storage.SearchIndex
	Rankings    *RankingRepository
	Checkpoints *CheckpointRepository

	backend *Backend
}

// Open opens the stores in a database directory.
func Open(path string) (*Stores, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStores(backend), nil
}

// NewMemoryStores opens the stores over an in-memory database. Nothing is
// written to disk; Close discards the data.
func NewMemoryStores() (*Stores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newStores(backend), nil
}

func newStores(backend *Backend) *Stores {
	return &Stores{
		Documents:   NewDocumentRepository(backend),
		Vectors:     NewVectorStore(backend),
		Search:      NewSearchIndex(backend),
		Rankings:    NewRankingRepository(backend),
		Checkpoints: NewCheckpointRepository(backend),
		backend:     backend,
	}
}

// Backend returns the underlying database handle.
func (s *Stores) Backend() *Backend {
	return s.backend
}

// Close closes the database.
func (s *Stores) Close() error {
	return s.backend.Close()
}
