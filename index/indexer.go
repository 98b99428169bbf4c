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


package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/druglabel/ai"
	"github.com/poiesic/druglabel/chunk"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// Config holds configuration for indexing runs.
type Config struct {
	// BatchSize is the number of chunk texts sent per embedding call
	BatchSize int

	// ReportInterval is how often to report progress and save the
	// checkpoint (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      64,
		ReportInterval: 25,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result summarizes an indexing run.
type Result struct {
	Documents int
	Chunks    int
	// Failed maps set ids to the embedding error that skipped them.
	Failed map[string]error
}

func (r *Result) merge(o *Result) {
	r.Documents += o.Documents
	r.Chunks += o.Chunks
	for id, err := range o.Failed {
		if r.Failed == nil {
			r.Failed = make(map[string]error)
		}
		r.Failed[id] = err
	}
}

// Indexer turns enriched documents into embedded chunks in a vector store.
type Indexer struct {
	chunker     *chunk.Chunker
	store       storage.VectorStore
	processor   *BatchProcessor
	pool        *ants.Pool
	config      *Config
	progress    io.Writer
	checkpoints storage.CheckpointRepository
	logger      *slog.Logger

	// Store writes are serialized; embedding runs concurrently.
	writeMu sync.Mutex
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(ix *Indexer) error {
		if config == nil {
			return nil
		}
		if config.BatchSize < 1 {
			return ErrInvalidBatchSize
		}
		if config.MaxRetries < 1 {
			return ErrInvalidMaxAttempts
		}
		ix.config = config
		return nil
	}
}

// WithPoolSize sets the number of documents embedded concurrently.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		pool, err := ants.NewPool(max(size, 1))
		if err != nil {
			return err
		}
		if ix.pool != nil {
			ix.pool.Release()
		}
		ix.pool = pool
		return nil
	}
}

// WithProgress sets where Reindex writes progress output.
func WithProgress(w io.Writer) Option {
	return func(ix *Indexer) error {
		ix.progress = w
		return nil
	}
}

// WithCheckpoints enables resumable Reindex runs.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(ix *Indexer) error {
		ix.checkpoints = repo
		return nil
	}
}

// New creates an Indexer.
func New(chunker *chunk.Chunker, embedder ai.Embedder, store storage.VectorStore, opts ...Option) (*Indexer, error) {
	if chunker == nil {
		return nil, ErrChunkerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}

	pool, err := ants.NewPool(max(runtime.NumCPU()/2, 1))
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		chunker:  chunker,
		store:    store,
		pool:     pool,
		config:   DefaultConfig(),
		progress: io.Discard,
		logger:   slog.Default().With("component", "indexer"),
	}

	for _, opt := range opts {
		if optErr := opt(ix); optErr != nil {
			ix.Release()
			return nil, optErr
		}
	}

	ix.processor, err = NewBatchProcessor(embedder, ix.config.BatchSize, ix.config.MaxRetries, ix.config.RetryDelay)
	if err != nil {
		ix.Release()
		return nil, err
	}
	return ix, nil
}

// Release releases the worker pool.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}

// Index chunks, embeds, and stores docs. A document whose embedding fails is
// skipped and recorded in Result.Failed; a vector store failure aborts the
// run and is returned.
func (ix *Indexer) Index(ctx context.Context, docs []*core.EnrichedDocument) (*Result, error) {
	result := &Result{}
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		storeErr error
	)

	for _, doc := range docs {
		wg.Add(1)
		submitErr := ix.pool.Submit(func() {
			defer wg.Done()
			n, err := ix.indexDocument(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			var se *storeError
			switch {
			case errors.As(err, &se):
				if storeErr == nil {
					storeErr = se.err
				}
			case err != nil:
				if result.Failed == nil {
					result.Failed = make(map[string]error)
				}
				result.Failed[doc.SetID] = err
				ix.logger.Error("failed to embed document", "setId", doc.SetID, "err", err)
			default:
				result.Documents++
				result.Chunks += n
			}
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return result, submitErr
		}
	}
	wg.Wait()

	if storeErr != nil {
		return result, storeErr
	}
	return result, ctx.Err()
}

// storeError marks a vector store failure, which aborts the run.
type storeError struct {
	err error
}

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

// indexDocument returns the number of stored chunks. Embedding errors skip
// only this document; store errors come back as *storeError.
func (ix *Indexer) indexDocument(ctx context.Context, doc *core.EnrichedDocument) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	chunks := ix.chunker.ChunkDocument(doc)
	if err := ix.processor.Process(ctx, chunks); err != nil {
		return 0, err
	}

	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	if err := ix.store.DeleteDocument(ctx, doc.SetID); err != nil {
		return 0, &storeError{fmt.Errorf("failed to delete chunks of %s: %w", doc.SetID, err)}
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := ix.store.Upsert(ctx, chunks); err != nil {
		return 0, &storeError{fmt.Errorf("failed to store chunks of %s: %w", doc.SetID, err)}
	}
	ix.logger.Debug("indexed document", "setId", doc.SetID, "chunks", len(chunks))
	return len(chunks), nil
}

// Reindex indexes every enriched document in repo in set id order. With
// checkpoints enabled it resumes after the last document of an interrupted
// run; a completed run clears the resume point.
func (ix *Indexer) Reindex(ctx context.Context, repo storage.DocumentRepository) (*Result, error) {
	docs, err := repo.ListEnriched(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enriched documents: %w", err)
	}

	checkpoint, err := ix.loadCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	if checkpoint.LastDocumentID != "" {
		skip := 0
		for skip < len(docs) && docs[skip].SetID <= checkpoint.LastDocumentID {
			skip++
		}
		ix.logger.Info("resuming reindex", "after", checkpoint.LastDocumentID, "skipped", skip)
		docs = docs[skip:]
	} else {
		checkpoint.Processed = 0
	}

	result := &Result{}
	if len(docs) == 0 {
		fmt.Fprintf(ix.progress, "No documents to index (0 documents)\n")
		return result, ix.saveCheckpoint(ctx, checkpoint, "")
	}

	fmt.Fprintf(ix.progress, "Starting indexing of %d documents (batch size: %d)\n", len(docs), ix.config.BatchSize)
	tracker := NewProgressTracker(ix.progress, len(docs), ix.config.ReportInterval)
	tracker.Start()

	step := max(ix.config.ReportInterval, 1)
	for start := 0; start < len(docs); start += step {
		group := docs[start:min(start+step, len(docs))]
		part, err := ix.Index(ctx, group)
		if part != nil {
			result.merge(part)
		}
		if err != nil {
			return result, err
		}
		checkpoint.Processed += len(group)
		if err := ix.saveCheckpoint(ctx, checkpoint, group[len(group)-1].SetID); err != nil {
			return result, err
		}
		tracker.Increment(len(group))
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(ix.progress, "Indexing complete. Processed %d documents (%d chunks) in %v\n",
		result.Documents, result.Chunks, elapsed.Round(time.Second))

	return result, ix.saveCheckpoint(ctx, checkpoint, "")
}

func (ix *Indexer) loadCheckpoint(ctx context.Context) (*core.Checkpoint, error) {
	if ix.checkpoints != nil {
		checkpoint, err := ix.checkpoints.LoadCheckpoint(ctx, core.StageIndexed)
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if checkpoint != nil {
			return checkpoint, nil
		}
	}
	return &core.Checkpoint{Stage: core.StageIndexed}, nil
}

func (ix *Indexer) saveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint, last string) error {
	if ix.checkpoints == nil {
		return nil
	}
	checkpoint.LastDocumentID = last
	if err := ix.checkpoints.SaveCheckpoint(ctx, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
