package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// RankingRepository stores similarity rankings for BadgerDB.
type RankingRepository struct {
	backend *Backend
}

var (
	_ storage.RankingWriter = (*RankingRepository)(nil)
	_ storage.RankingReader = (*RankingRepository)(nil)
)

// NewRankingRepository creates a new RankingRepository.
func NewRankingRepository(backend *Backend) *RankingRepository {
	return &RankingRepository{backend: backend}
}

// UpdateRanking replaces a document's ranking.
func (r *RankingRepository) UpdateRanking(ctx context.Context, ranking *core.SimilarityRanking) error {
	value, err := storage.MarshalJSON(ranking)
	if err != nil {
		return err
	}
	return r.backend.update(func(tx *badger.Txn) error {
		return tx.Set(makeRankingKey(ranking.DocumentID), value)
	})
}

// GetRanking reads a document's ranking.
func (r *RankingRepository) GetRanking(ctx context.Context, documentID string) (*core.SimilarityRanking, error) {
	var ranking *core.SimilarityRanking
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		ranking, err = get(tx, makeRankingKey(documentID), storage.UnmarshalJSON[core.SimilarityRanking])
		return err
	}, false)
	return ranking, err
}
