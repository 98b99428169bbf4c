package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/druglabel"
	"github.com/poiesic/druglabel/ai"
	"github.com/poiesic/druglabel/chunk"
	"github.com/poiesic/druglabel/config"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/normalize"
	"github.com/poiesic/druglabel/storage/artifacts"
	"github.com/poiesic/druglabel/storage/chromem"
	"github.com/poiesic/druglabel/storage/postgres"
	"github.com/poiesic/druglabel/tokens"
)

// loadConfig reads the environment and applies the flags set on c.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("db") {
		cfg.DataDir = c.String("db")
	}
	if c.IsSet("artifacts") {
		cfg.ArtifactsDir = c.String("artifacts")
	}
	if c.IsSet("vector-backend") {
		cfg.VectorBackend = c.String("vector-backend")
	}
	if c.IsSet("postgres-dsn") {
		cfg.PostgresDSN = c.String("postgres-dsn")
	}
	if c.IsSet("top-k") {
		cfg.SimilarTopK = c.Int("top-k")
	}
	if c.IsSet("contraindication-tags") {
		cfg.ContraindicationTags = c.Bool("contraindication-tags")
	}
	if c.IsSet("max-tokens") {
		cfg.ChunkMaxTokens = c.Int("max-tokens")
	}
	if c.IsSet("overlap") {
		cfg.ChunkOverlap = c.Int("overlap")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openPipeline assembles a pipeline and its optional Postgres and chromem
// stores from cfg.
func openPipeline(ctx context.Context, cfg *config.Config, withArtifacts bool) (*druglabel.Pipeline, error) {
	aiConfig := ai.NewConfig(
		ai.WithGenerationHost(cfg.GenerationHost),
		ai.WithEmbeddingHost(cfg.EmbeddingHost),
		ai.WithEmbeddingModel(cfg.EmbeddingModel),
		ai.WithAPIKey(cfg.APIKey),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []druglabel.Option{
		druglabel.WithAIConfig(aiConfig),
		druglabel.WithChunking(cfg.ChunkMaxTokens, cfg.ChunkOverlap),
		druglabel.WithTopK(cfg.SimilarTopK),
		druglabel.WithContraindicationTags(cfg.ContraindicationTags),
		druglabel.WithProgress(os.Stderr),
	}
	if cfg.PoolSize > 0 {
		opts = append(opts, druglabel.WithPoolSize(cfg.PoolSize))
	}
	if withArtifacts {
		opts = append(opts, druglabel.WithArtifactsDir(cfg.ArtifactsDir))
	}

	// Closing twice is safe for both the pool and the chromem store, so a
	// failed Open may run these after the pipeline already did.
	var closers []func() error
	fail := func(err error) (*druglabel.Pipeline, error) {
		for _, c := range closers {
			c()
		}
		return nil, err
	}

	if cfg.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.DefaultConnectConfig())
		if err != nil {
			return nil, err
		}
		catalogue := postgres.NewCatalogue(pool, pool.Close)
		closers = append(closers, catalogue.Close)
		if err := catalogue.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		opts = append(opts, druglabel.WithRelationalStore(catalogue))

		if cfg.VectorBackend == config.VectorPgvector {
			vectors, err := postgres.NewVectorStore(pool, cfg.VectorDimension)
			if err == nil {
				err = vectors.EnsureSchema(ctx)
			}
			if err != nil {
				return fail(err)
			}
			opts = append(opts, druglabel.WithVectorStore(vectors))
		}
	}

	if cfg.VectorBackend == config.VectorChromem {
		vectors, err := chromem.Open(cfg.ChromemPath)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, vectors.Close)
		opts = append(opts, druglabel.WithVectorStore(vectors))
	}

	p, err := druglabel.Open(cfg.DataDir, opts...)
	if err != nil {
		return fail(err)
	}
	return p, nil
}

func processCommand(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	docs, err := artifacts.ReadDocuments(c.String("input"))
	if err != nil {
		return err
	}

	p, err := openPipeline(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer p.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.DataDir)
	fmt.Fprintf(os.Stderr, "Artifacts: %s\n", cfg.ArtifactsDir)
	fmt.Fprintf(os.Stderr, "Vector backend: %s\n", cfg.VectorBackend)
	fmt.Fprintf(os.Stderr, "Documents: %d\n", len(docs))
	fmt.Fprintln(os.Stderr)

	report, err := p.Process(ctx, docs)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Run %s: %d documents (%d skipped, %d degraded)\n",
		report.RunID, report.Documents, report.Skipped, report.Degraded)
	if report.Indexed != nil {
		fmt.Fprintf(out, "Indexed %d documents into %d chunks, %d failed\n",
			report.Indexed.Documents, report.Indexed.Chunks, len(report.Indexed.Failed))
		for id, err := range report.Indexed.Failed {
			fmt.Fprintf(out, "  %s: %v\n", id, err)
		}
	}
	fmt.Fprintf(out, "Ranked %d documents in %s\n", report.Ranked, report.Duration)
	for model, stats := range p.Gateway().Stats() {
		fmt.Fprintf(out, "  %s: %+v\n", model, stats)
	}
	return nil
}

func normalizeCommand(c *cli.Context) error {
	docs, err := artifacts.ReadDocuments(c.String("input"))
	if err != nil {
		return err
	}
	normalize.NormalizeDocuments(docs)

	w, err := artifacts.NewWriter(c.String("output"))
	if err != nil {
		return err
	}
	path, err := w.WriteCleaned(docs)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Normalized %d documents into %s\n", len(docs), path)
	return nil
}

type chunkLine struct {
	DocumentID string `json:"documentId"`
	Index      int    `json:"index"`
	Tokens     int    `json:"tokens"`
	Text       string `json:"text"`
}

func chunkCommand(c *cli.Context) error {
	docs, err := artifacts.ReadEnriched(c.String("input"))
	if err != nil {
		return err
	}

	var counter tokens.Counter = tokens.EstimateCounter{}
	if !c.Bool("estimate-tokens") {
		counter = tokens.ForModel(chunk.DefaultModel)
	}
	opts := []chunk.Option{}
	if c.IsSet("max-tokens") {
		opts = append(opts, chunk.WithMaxTokens(c.Int("max-tokens")))
	}
	if c.IsSet("overlap") {
		opts = append(opts, chunk.WithOverlap(c.Int("overlap")))
	}
	chunker, err := chunk.New(counter, opts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	for _, doc := range docs {
		for _, ch := range chunker.ChunkDocument(doc) {
			line := chunkLine{DocumentID: ch.DocumentID, Index: ch.Index, Tokens: ch.TokenCount, Text: ch.Text}
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
	}
	return nil
}

func similarCommand(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	p, err := openPipeline(ctx, cfg, false)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer p.Close()

	ranking, err := p.Similar(ctx, c.String("id"), c.Int("top-k"))
	if err != nil {
		return err
	}
	for _, e := range ranking.Entries {
		fmt.Fprintf(c.App.Writer, "%4d  %s  %s\n", e.Hits, e.Slug, e.Name)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	p, err := openPipeline(ctx, cfg, false)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer p.Close()

	searcher, err := p.NewSearcher()
	if err != nil {
		return err
	}
	hits, err := searcher.Search(ctx, c.String("query"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	for _, hit := range hits {
		fmt.Fprintf(c.App.Writer, "%.3f  %s  %s\n", hit.Score, hit.Slug, hit.Name)
		for _, snippet := range hit.Snippets {
			fmt.Fprintf(c.App.Writer, "       %s\n", snippet)
		}
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	p, err := openPipeline(ctx, cfg, false)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer p.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.DataDir)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	result, err := p.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Reindexed %d documents into %d chunks, %d failed\n",
		result.Documents, result.Chunks, len(result.Failed))
	return nil
}

func rankCommand(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	p, err := openPipeline(ctx, cfg, false)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer p.Close()

	rankings, err := p.Rank(ctx)
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}
	for _, r := range rankings {
		fmt.Fprintf(c.App.Writer, "%s  %d neighbors\n", r.DocumentID, len(r.Entries))
	}
	fmt.Fprintf(c.App.Writer, "Ranked %d documents\n", len(rankings))
	return nil
}

func tagsCommand(c *cli.Context) error {
	ctx := c.Context

	kind := core.TagKind(c.String("kind"))
	if !slices.Contains(core.TagKinds, kind) {
		return fmt.Errorf("unknown tag kind %q", kind)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	p, err := openPipeline(ctx, cfg, false)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer p.Close()

	searcher, err := p.NewSearcher()
	if err != nil {
		return err
	}
	docs, err := searcher.FindByTag(ctx, kind, c.String("tag"))
	if err != nil {
		return fmt.Errorf("tag lookup failed: %w", err)
	}
	for _, doc := range docs {
		fmt.Fprintf(c.App.Writer, "%s  %s  %s\n", doc.SetID, doc.Slug, doc.DrugName)
	}
	return nil
}
