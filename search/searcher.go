package search

import (
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/druglabel/ai"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

const (
	// candidateFactor multiplies the hit limit to size the chunk query.
	candidateFactor = 3
	// verbatimBoost is added to a chunk containing every query word.
	verbatimBoost = 0.3
	// maxSnippets caps the chunk texts returned per document.
	maxSnippets = 3
)

// DocumentHit is one document matching a query.
type DocumentHit struct {
	DocumentID string
	Name       string
	Slug       string
	Score      float32
	// Snippets holds the matching chunk texts, best first.
	Snippets []string
}

// Searcher runs semantic and tag queries over indexed documents.
type Searcher struct {
	store    storage.VectorStore
	index    storage.SearchIndex
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithSearchIndex enables tag queries.
func WithSearchIndex(index storage.SearchIndex) Option {
	return func(s *Searcher) error {
		s.index = index
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		logger:   slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns up to limit documents whose chunks are closest to query.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]*DocumentHit, error) {
	return s.SearchWithMonitor(ctx, query, limit, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, limit int, monitor SearchMonitor) ([]*DocumentHit, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if limit < 1 {
		return []*DocumentHit{}, nil
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(embedding)

	matches, err := s.store.Query(ctx, embedding, limit*candidateFactor, nil)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterVectorQuery(matches)

	queryTerms := terms(query)
	hits := make([]*DocumentHit, 0, len(matches))
	byDocument := make(map[string]*DocumentHit)
	for _, match := range matches {
		score := match.Score
		if verbatim(match.Chunk.Text, queryTerms) {
			score += verbatimBoost
			monitor.VerbatimHit(match.Chunk)
		}

		hit, ok := byDocument[match.Chunk.DocumentID]
		if !ok {
			hit = &DocumentHit{
				DocumentID: match.Chunk.DocumentID,
				Name:       match.Chunk.DocumentName,
				Slug:       match.Chunk.Slug,
				Score:      score,
			}
			byDocument[hit.DocumentID] = hit
			hits = append(hits, hit)
		}
		hit.Score = max(hit.Score, score)
		if len(hit.Snippets) < maxSnippets {
			hit.Snippets = append(hit.Snippets, match.Chunk.Text)
		}
	}

	slices.SortStableFunc(hits, func(a, b *DocumentHit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	monitor.Finish(hits)

	return hits, nil
}

// FindByTag returns the indexed documents carrying a tag of the given kind.
// Matching ignores case.
func (s *Searcher) FindByTag(ctx context.Context, kind core.TagKind, tag string) ([]*core.SearchDocument, error) {
	if s.index == nil {
		return nil, ErrSearchIndexRequired
	}
	ids, err := s.index.FindByTag(ctx, kind, tag)
	if err != nil {
		return nil, err
	}

	docs := make([]*core.SearchDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := s.index.GetSearchDocument(ctx, id)
		if err != nil {
			s.logger.Warn("tag posting without document", "setId", id, "err", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
