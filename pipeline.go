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


// Package druglabel runs drug-label exports through normalization,
// enrichment, chunking, embedding, and similarity ranking.
package druglabel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/druglabel/ai"
	"github.com/poiesic/druglabel/ai/openai"
	"github.com/poiesic/druglabel/chunk"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/enrich"
	"github.com/poiesic/druglabel/gateway"
	"github.com/poiesic/druglabel/index"
	"github.com/poiesic/druglabel/normalize"
	"github.com/poiesic/druglabel/search"
	"github.com/poiesic/druglabel/similarity"
	"github.com/poiesic/druglabel/storage"
	"github.com/poiesic/druglabel/storage/artifacts"
	"github.com/poiesic/druglabel/storage/badger"
	"github.com/poiesic/druglabel/tokens"
)

// Pipeline owns the stores and services of a batch run.
type Pipeline struct {
	stores     *badger.Stores
	vectors    storage.VectorStore
	relational storage.RelationalStore
	provider   ai.AIProvider
	gateway    *gateway.Gateway
	enricher   *enrich.Orchestrator
	chunker    *chunk.Chunker
	indexer    *index.Indexer
	ranker     *similarity.Aggregator
	artifacts  *artifacts.Writer
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	aiConfig     *ai.Config
	provider     ai.AIProvider
	limits       map[string]gateway.Limits
	vectors      storage.VectorStore
	relational   storage.RelationalStore
	artifactsDir string
	counter      tokens.Counter
	maxTokens    int
	overlap      int
	topK         int
	poolSize     int
	contraTags   bool
	inMemory     bool
	progress     io.Writer
	logger       *slog.Logger
}

// WithAIConfig sets the configuration of the default OpenAI-compatible provider.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) { o.aiConfig = cfg }
}

// WithProvider replaces the AI provider. The pipeline closes it.
func WithProvider(p ai.AIProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithModelLimits replaces the gateway's per-model limits.
func WithModelLimits(limits map[string]gateway.Limits) Option {
	return func(o *options) { o.limits = limits }
}

// WithVectorStore keeps chunks in store instead of the badger database.
func WithVectorStore(store storage.VectorStore) Option {
	return func(o *options) { o.vectors = store }
}

// WithRelationalStore also writes enriched documents and rankings to store.
func WithRelationalStore(store storage.RelationalStore) Option {
	return func(o *options) { o.relational = store }
}

// WithArtifactsDir writes the JSON stage artifacts under dir.
func WithArtifactsDir(dir string) Option {
	return func(o *options) { o.artifactsDir = dir }
}

// WithCounter sets the token counter used by the chunker.
func WithCounter(counter tokens.Counter) Option {
	return func(o *options) { o.counter = counter }
}

// WithChunking sets the chunk token ceiling and sentence overlap.
func WithChunking(maxTokens, overlap int) Option {
	return func(o *options) {
		o.maxTokens = maxTokens
		o.overlap = overlap
	}
}

// WithTopK sets how many neighbor documents a ranking keeps.
func WithTopK(k int) Option {
	return func(o *options) { o.topK = k }
}

// WithPoolSize sets the worker count of enrichment and indexing.
func WithPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// WithContraindicationTags enables the contraindication tag transform.
func WithContraindicationTags(enabled bool) Option {
	return func(o *options) { o.contraTags = enabled }
}

// WithInMemory keeps the badger database in memory and ignores the path.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithProgress reports indexing progress to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) { o.progress = w }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open opens the badger database at path and assembles the pipeline services.
func Open(path string, opts ...Option) (*Pipeline, error) {
	o := &options{
		aiConfig:  ai.DefaultConfig(),
		limits:    gateway.DefaultLimits(),
		maxTokens: chunk.DefaultMaxTokens,
		overlap:   chunk.DefaultOverlap,
		topK:      similarity.DefaultTopK,
		logger:    slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}

	var (
		stores *badger.Stores
		err    error
	)
	if o.inMemory {
		stores, err = badger.NewMemoryStores()
	} else {
		stores, err = badger.Open(path)
	}
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		stores:     stores,
		vectors:    o.vectors,
		relational: o.relational,
		provider:   o.provider,
		logger:     o.logger,
	}
	if err := p.build(o); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) build(o *options) error {
	if p.vectors == nil {
		p.vectors = p.stores.Vectors
	}

	if p.provider == nil {
		provider, err := openai.NewProvider(o.aiConfig)
		if err != nil {
			return err
		}
		p.provider = provider
	}

	registry, err := gateway.NewRegistry(o.limits)
	if err != nil {
		return err
	}
	if p.gateway, err = gateway.New(registry, gateway.WithLogger(o.logger)); err != nil {
		return err
	}

	enrichOpts := []enrich.Option{enrich.WithContraindicationTags(o.contraTags)}
	if o.poolSize > 0 {
		enrichOpts = append(enrichOpts, enrich.WithPoolSize(o.poolSize))
	}
	if p.enricher, err = enrich.New(p.provider.Generator(), p.gateway, enrichOpts...); err != nil {
		return err
	}

	counter := o.counter
	if counter == nil {
		counter = tokens.ForModel(chunk.DefaultModel)
	}
	if p.chunker, err = chunk.New(counter, chunk.WithMaxTokens(o.maxTokens), chunk.WithOverlap(o.overlap)); err != nil {
		return err
	}

	indexOpts := []index.Option{index.WithCheckpoints(p.stores.Checkpoints)}
	if o.poolSize > 0 {
		indexOpts = append(indexOpts, index.WithPoolSize(o.poolSize))
	}
	if o.progress != nil {
		indexOpts = append(indexOpts, index.WithProgress(o.progress))
	}
	if p.indexer, err = index.New(p.chunker, p.provider.Embedder(), p.vectors, indexOpts...); err != nil {
		return err
	}

	writers := []storage.RankingWriter{p.stores.Rankings}
	if p.relational != nil {
		writers = append(writers, p.relational)
	}
	if p.ranker, err = similarity.New(p.vectors, similarity.WithTopK(o.topK), similarity.WithWriters(writers...)); err != nil {
		return err
	}

	if o.artifactsDir != "" {
		if p.artifacts, err = artifacts.NewWriter(o.artifactsDir); err != nil {
			return err
		}
	}
	return nil
}

// Report summarizes one Process run.
type Report struct {
	RunID     string
	Documents int
	Skipped   int
	// Degraded counts documents with at least one placeholder transform.
	Degraded  int
	Indexed   *index.Result
	Ranked    int
	Artifacts []string
	Duration  time.Duration
}

// Process runs docs through every stage. Invalid documents are skipped,
// transform and embedding failures are isolated per document, and storage
// failures abort the batch.
func (p *Pipeline) Process(ctx context.Context, docs []*core.Document) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	logger := p.logger.With("run", report.RunID)

	valid := make([]*core.Document, 0, len(docs))
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			logger.Warn("skipping invalid document", "err", err)
			report.Skipped++
			continue
		}
		doc.EnsureSlug()
		valid = append(valid, doc)
	}
	report.Documents = len(valid)
	if len(valid) == 0 {
		logger.Info("no documents to process")
		return report, nil
	}

	normalize.NormalizeDocuments(valid)
	if err := p.writeArtifact(report, func(w *artifacts.Writer) (string, error) { return w.WriteCleaned(valid) }); err != nil {
		return report, err
	}
	if err := p.stores.Documents.SaveDocuments(ctx, core.StageCleaned, valid...); err != nil {
		return report, fmt.Errorf("failed to save cleaned documents: %w", err)
	}
	if err := p.checkpoint(ctx, core.StageCleaned, valid[len(valid)-1].SetID, len(valid)); err != nil {
		return report, err
	}
	logger.Info("normalized documents", "documents", len(valid))

	enriched, err := p.enricher.EnrichAll(ctx, valid)
	if err != nil {
		return report, fmt.Errorf("enrichment interrupted: %w", err)
	}
	for _, doc := range enriched {
		if len(doc.Errors) > 0 {
			report.Degraded++
		}
	}
	if err := p.writeArtifact(report, func(w *artifacts.Writer) (string, error) { return w.WriteStructured(enriched) }); err != nil {
		return report, err
	}
	if err := p.stores.Documents.SaveEnriched(ctx, enriched...); err != nil {
		return report, fmt.Errorf("failed to save enriched documents: %w", err)
	}
	if err := p.checkpoint(ctx, core.StageStructured, enriched[len(enriched)-1].SetID, len(enriched)); err != nil {
		return report, err
	}
	logger.Info("enriched documents", "documents", len(enriched), "degraded", report.Degraded)

	if err := p.writeArtifact(report, func(w *artifacts.Writer) (string, error) { return w.WriteQueryReady(enriched) }); err != nil {
		return report, err
	}
	searchDocs := make([]*core.SearchDocument, 0, len(enriched))
	for _, doc := range enriched {
		searchDocs = append(searchDocs, storage.ToSearchDocument(doc))
	}
	if err := p.stores.Search.UpsertSearchDocuments(ctx, searchDocs...); err != nil {
		return report, fmt.Errorf("failed to update search index: %w", err)
	}
	if p.relational != nil {
		if err := p.relational.UpsertDocuments(ctx, enriched); err != nil {
			return report, err
		}
	}
	if err := p.checkpoint(ctx, core.StageQueryReady, enriched[len(enriched)-1].SetID, len(enriched)); err != nil {
		return report, err
	}

	report.Indexed, err = p.indexer.Index(ctx, enriched)
	if err != nil {
		return report, fmt.Errorf("indexing failed: %w", err)
	}
	if err := p.checkpoint(ctx, core.StageIndexed, "", report.Indexed.Documents); err != nil {
		return report, err
	}
	logger.Info("indexed documents", "documents", report.Indexed.Documents, "chunks", report.Indexed.Chunks, "failed", len(report.Indexed.Failed))

	ids, err := p.documentIDs(ctx)
	if err != nil {
		return report, err
	}
	rankings, err := p.ranker.RankAll(ctx, ids)
	report.Ranked = len(rankings)
	if err != nil {
		return report, fmt.Errorf("ranking failed: %w", err)
	}
	if err := p.checkpoint(ctx, core.StageRanked, "", len(rankings)); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	logger.Info("batch complete", "documents", report.Documents, "ranked", report.Ranked, "duration", report.Duration)
	return report, nil
}

// documentIDs lists every enriched document, not only the current batch, so
// earlier documents pick up neighbors from the new one.
func (p *Pipeline) documentIDs(ctx context.Context) ([]string, error) {
	docs, err := p.stores.Documents.ListEnriched(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enriched documents: %w", err)
	}
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.SetID
	}
	return ids, nil
}

func (p *Pipeline) writeArtifact(report *Report, write func(*artifacts.Writer) (string, error)) error {
	if p.artifacts == nil {
		return nil
	}
	path, err := write(p.artifacts)
	if err != nil {
		return err
	}
	report.Artifacts = append(report.Artifacts, path)
	return nil
}

func (p *Pipeline) checkpoint(ctx context.Context, stage core.Stage, last string, processed int) error {
	err := p.stores.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Stage:          stage,
		LastDocumentID: last,
		Processed:      processed,
	})
	if err != nil {
		return fmt.Errorf("failed to save %s checkpoint: %w", stage, err)
	}
	return nil
}

// Reindex re-chunks and re-embeds every enriched document, resuming from
// the indexed checkpoint.
func (p *Pipeline) Reindex(ctx context.Context) (*index.Result, error) {
	return p.indexer.Reindex(ctx, p.stores.Documents)
}

// Similar ranks one document's neighbors without persisting the result.
func (p *Pipeline) Similar(ctx context.Context, setID string, topK int) (*core.SimilarityRanking, error) {
	return p.ranker.Rank(ctx, setID, topK)
}

// Rank recomputes and persists the rankings of every enriched document.
func (p *Pipeline) Rank(ctx context.Context) ([]*core.SimilarityRanking, error) {
	ids, err := p.documentIDs(ctx)
	if err != nil {
		return nil, err
	}
	return p.ranker.RankAll(ctx, ids)
}

// NewSearcher returns a searcher over the pipeline's chunks and search index.
func (p *Pipeline) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithSearchIndex(p.stores.Search)}, opts...)
	return search.NewSearcher(p.vectors, p.provider.Embedder(), opts...)
}

// Chunker returns the configured chunker.
func (p *Pipeline) Chunker() *chunk.Chunker {
	return p.chunker
}

// Stores returns the badger stores.
func (p *Pipeline) Stores() *badger.Stores {
	return p.stores
}

// Gateway returns the dispatch gateway, for its stats.
func (p *Pipeline) Gateway() *gateway.Gateway {
	return p.gateway
}

// Close releases every service and store. Errors from every closer are
// joined.
func (p *Pipeline) Close() error {
	var errs []error
	if p.indexer != nil {
		p.indexer.Release()
	}
	if p.enricher != nil {
		p.enricher.Release()
	}
	if p.provider != nil {
		if err := p.provider.Close(); err != nil {
			p.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if p.relational != nil {
		if err := p.relational.Close(); err != nil {
			p.logger.Error("error closing relational store", "err", err)
			errs = append(errs, err)
		}
	}
	if p.vectors != nil && p.vectors != p.stores.Vectors {
		if err := p.vectors.Close(); err != nil {
			p.logger.Error("error closing vector store", "err", err)
			errs = append(errs, err)
		}
	}
	if err := p.stores.Close(); err != nil {
		p.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
