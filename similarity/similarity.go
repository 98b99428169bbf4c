// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package similarity ranks drug labels by how often their chunks appear among
// the nearest neighbors of another label's mean embedding.
package similarity

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// DefaultTopK is the number of neighbor documents kept per ranking.
const DefaultTopK = 5

// neighborFactor multiplies topK to size the chunk query.
const neighborFactor = 3

// Aggregator computes similarity rankings over a vector store.
type Aggregator struct {
	store   storage.VectorStore
	writers []storage.RankingWriter
	topK    int
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger.With("component", "similarity")
		return nil
	}
}

// WithTopK sets the default ranking size used by RankAll.
func WithTopK(k int) Option {
	return func(a *Aggregator) error {
		if k < 1 {
			return ErrInvalidTopK
		}
		a.topK = k
		return nil
	}
}

// WithWriters adds stores that RankAll persists each ranking to.
func WithWriters(writers ...storage.RankingWriter) Option {
	return func(a *Aggregator) error {
		for _, w := range writers {
			if w != nil {
				a.writers = append(a.writers, w)
			}
		}
		return nil
	}
}

// New creates an Aggregator.
func New(store storage.VectorStore, opts ...Option) (*Aggregator, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	a := &Aggregator{
		store:  store,
		topK:   DefaultTopK,
		logger: slog.Default().With("component", "similarity"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Rank returns the topK documents whose chunks occur most often among the
// neighbors of documentID's mean embedding. The document itself is never
// ranked. Equal hit counts keep the order of first appearance. A topK
// below 1 uses the default.
func (a *Aggregator) Rank(ctx context.Context, documentID string, topK int) (*core.SimilarityRanking, error) {
	if topK < 1 {
		topK = DefaultTopK
	}

	chunks, err := a.store.ByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vectors of %s: %w", documentID, err)
	}
	vectors := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) > 0 {
			vectors = append(vectors, c.Vector)
		}
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w for document %s", ErrNoEmbeddingsFound, documentID)
	}

	matches, err := a.store.Query(ctx, meanVector(vectors), topK*neighborFactor, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors of %s: %w", documentID, err)
	}

	ranking := &core.SimilarityRanking{
		DocumentID: documentID,
		Entries:    tally(documentID, matches),
		ComputedAt: a.now(),
	}
	if len(ranking.Entries) > topK {
		ranking.Entries = ranking.Entries[:topK]
	}
	return ranking, nil
}

// tally counts hits per owning document in order of first appearance, then
// sorts by descending hits. The sort is stable so ties keep that order.
func tally(self string, matches []core.ChunkMatch) []core.RankEntry {
	entries := []core.RankEntry{}
	position := make(map[string]int)
	for _, m := range matches {
		id := m.Chunk.DocumentID
		if id == self {
			continue
		}
		i, ok := position[id]
		if !ok {
			i = len(entries)
			position[id] = i
			entries = append(entries, core.RankEntry{
				DocumentID: id,
				Name:       m.Chunk.DocumentName,
				Slug:       m.Chunk.Slug,
			})
		}
		entries[i].Hits++
	}
	slices.SortStableFunc(entries, func(x, y core.RankEntry) int {
		return cmp.Compare(y.Hits, x.Hits)
	})
	return entries
}

func meanVector(vectors [][]float32) []float32 {
	mean := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i := 0; i < len(mean) && i < len(v); i++ {
			mean[i] += v[i]
		}
	}
	n := float32(len(vectors))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}

// RankAll ranks every document with the default topK and persists each
// ranking to the configured writers. Documents without embeddings are logged
// and skipped. The first writer failure aborts the run.
func (a *Aggregator) RankAll(ctx context.Context, documentIDs []string) ([]*core.SimilarityRanking, error) {
	rankings := make([]*core.SimilarityRanking, 0, len(documentIDs))
	for _, id := range documentIDs {
		if err := ctx.Err(); err != nil {
			return rankings, err
		}

		ranking, err := a.Rank(ctx, id, a.topK)
		if errors.Is(err, ErrNoEmbeddingsFound) {
			a.logger.Warn("skipping document without embeddings", "setId", id)
			continue
		}
		if err != nil {
			return rankings, err
		}

		for _, w := range a.writers {
			if err := w.UpdateRanking(ctx, ranking); err != nil {
				return rankings, fmt.Errorf("failed to persist ranking of %s: %w", id, err)
			}
		}
		a.logger.Debug("ranked document", "setId", id, "neighbors", len(ranking.Entries))
		rankings = append(rankings, ranking)
	}
	return rankings, nil
}
