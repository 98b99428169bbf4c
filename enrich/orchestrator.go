package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/druglabel/ai"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/decompose"
	"github.com/poiesic/druglabel/gateway"
	"github.com/poiesic/druglabel/normalize"
	"github.com/poiesic/druglabel/tokens"
	"golang.org/x/sync/errgroup"
)

// Orchestrator enriches documents through the transform catalogue.
type Orchestrator struct {
	generator  ai.Generator
	gateway    *gateway.Gateway
	counter    tokens.Counter
	catalogue  Catalogue
	contraTags bool
	pool       *ants.Pool
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "enrich")
		return nil
	}
}

// WithPoolSize sets how many documents are enriched at once.
// Default is runtime.NumCPU(), with a minimum of 2.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			return ErrInvalidPoolSize
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if o.pool != nil {
			o.pool.Release()
		}
		o.pool = pool
		return nil
	}
}

// WithContraindicationTags enables extraction of contraindication tags.
func WithContraindicationTags(enabled bool) Option {
	return func(o *Orchestrator) error {
		o.contraTags = enabled
		return nil
	}
}

// WithCatalogue replaces the default catalogue.
func WithCatalogue(c Catalogue) Option {
	return func(o *Orchestrator) error {
		o.catalogue = c
		return nil
	}
}

// WithCounter sets the token counter used for permit estimates.
// Default is tokens.EstimateCounter.
func WithCounter(counter tokens.Counter) Option {
	return func(o *Orchestrator) error {
		if counter != nil {
			o.counter = counter
		}
		return nil
	}
}

// New creates an Orchestrator. Every model the catalogue names must be
// registered with the gateway.
func New(generator ai.Generator, gw *gateway.Gateway, opts ...Option) (*Orchestrator, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if gw == nil {
		return nil, ErrGatewayRequired
	}

	poolSize := max(runtime.NumCPU(), 2)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		generator: generator,
		gateway:   gw,
		counter:   tokens.EstimateCounter{},
		catalogue: DefaultCatalogue(),
		pool:      pool,
		logger:    slog.Default().With("component", "enrich"),
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}

	if o.contraTags && !o.catalogue.HasTags(core.TagContraindication) {
		o.catalogue.Tags = append(o.catalogue.Tags, ContraindicationTags())
	}
	if o.catalogue.Len() == 0 {
		o.Release()
		return nil, ErrEmptyCatalogue
	}
	for _, model := range o.catalogue.Models() {
		if _, ok := gw.Registry().Limits(model); !ok {
			o.Release()
			return nil, &gateway.UnknownModelError{Model: model}
		}
	}

	return o, nil
}

// Catalogue returns the transforms in use.
func (o *Orchestrator) Catalogue() Catalogue {
	return o.catalogue
}

// Release frees the document pool.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

type outcome struct {
	text string
	tags []string
	err  error
}

// Enrich runs both stages for one document. The input is not modified.
func (o *Orchestrator) Enrich(ctx context.Context, doc *core.Document) *core.EnrichedDocument {
	start := time.Now()
	out := &core.EnrichedDocument{
		Document: *doc,
		Tags:     make(core.TagSet, len(o.catalogue.Tags)),
	}
	out.Label = doc.Label.Clone()
	out.EnsureSlug()

	o.rewriteStage(ctx, out)
	o.deriveStage(ctx, out)
	out.ViewBlocks = decompose.DecomposeBlocks(out.Summaries.Blocks())

	o.logger.Debug("document enriched",
		"set_id", out.SetID,
		"failures", len(out.Errors),
		"duration", time.Since(start))
	return out
}

func (o *Orchestrator) rewriteStage(ctx context.Context, out *core.EnrichedDocument) {
	transforms := o.catalogue.Rewrites
	results := make([]outcome, len(transforms))

	var g errgroup.Group
	for i, t := range transforms {
		input := out.Label.Concat(t.Inputs...)
		g.Go(func() error {
			results[i] = o.rewrite(ctx, t, input)
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range transforms {
		r := results[i]
		if r.err != nil {
			out.Errors = recordError(out.Errors, t.Name, r.err)
		}
		if _, present := out.Label.Lookup(t.Target); present || r.text != "" {
			if err := out.Label.SetSection(t.Target, r.text); err != nil {
				out.Errors = recordError(out.Errors, t.Name, err)
			}
		}
	}
}

func (o *Orchestrator) deriveStage(ctx context.Context, out *core.EnrichedDocument) {
	plain := make(map[string]string)
	inputOf := func(t Transform) string {
		parts := make([]string, 0, len(t.Inputs))
		for _, key := range t.Inputs {
			text, ok := plain[key]
			if !ok {
				text = normalize.PlainText(out.Label.Section(key))
				plain[key] = text
			}
			if text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	}

	transforms := make([]Transform, 0, len(o.catalogue.Summaries)+len(o.catalogue.Tags))
	transforms = append(transforms, o.catalogue.Summaries...)
	transforms = append(transforms, o.catalogue.Tags...)
	results := make([]outcome, len(transforms))

	var g errgroup.Group
	for i, t := range transforms {
		input := inputOf(t)
		g.Go(func() error {
			switch t.Kind {
			case KindTags:
				results[i] = o.extractTags(ctx, t, input)
			default:
				results[i] = o.summarize(ctx, t, input)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range transforms {
		r := results[i]
		if r.err != nil {
			out.Errors = recordError(out.Errors, t.Name, r.err)
		}
		switch t.Kind {
		case KindTags:
			out.Tags.Put(core.TagKind(t.Target), r.tags)
		default:
			if !out.Summaries.Set(t.Target, r.text) {
				o.logger.Warn("unknown summary field", "transform", t.Name, "field", t.Target)
			}
		}
	}
}

func (o *Orchestrator) rewrite(ctx context.Context, t Transform, input string) outcome {
	if strings.TrimSpace(input) == "" {
		return outcome{}
	}
	resp, err := o.call(ctx, t, input)
	if err == nil {
		resp, err = asHTML(resp)
	}
	if err != nil {
		return outcome{text: placeholder(t, err), err: err}
	}
	return outcome{text: normalize.Normalize(resp)}
}

func (o *Orchestrator) summarize(ctx context.Context, t Transform, input string) outcome {
	if strings.TrimSpace(input) == "" {
		return outcome{}
	}
	resp, err := o.call(ctx, t, input)
	if err != nil {
		return outcome{text: placeholder(t, err), err: err}
	}
	return outcome{text: resp}
}

func (o *Orchestrator) extractTags(ctx context.Context, t Transform, input string) outcome {
	if strings.TrimSpace(input) == "" {
		return outcome{tags: []string{}}
	}
	resp, err := o.call(ctx, t, input)
	if err == nil {
		var tags []string
		if tags, err = ParseTags(resp); err == nil {
			return outcome{tags: tags}
		}
		o.logger.Error("unusable tag response", "transform", t.Name, "err", err)
	}
	return outcome{tags: []string{}, err: err}
}

// call issues exactly one admitted request for a transform.
func (o *Orchestrator) call(ctx context.Context, t Transform, input string) (string, error) {
	req := t.Request(input)
	estimate := o.counter.Count(req.System) + o.counter.Count(req.Prompt) + req.MaxTokens

	permit, err := o.gateway.Acquire(ctx, t.Model, estimate)
	if err != nil {
		o.logger.Error("transform not admitted", "transform", t.Name, "err", err)
		return "", err
	}

	resp, err := o.generator.Generate(ctx, req)
	permit.Release(err)
	if err != nil {
		o.logger.Error("transform failed", "transform", t.Name, "model", t.Model, "err", err)
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// EnrichAll enriches documents concurrently on the document pool. Results are
// in input order. A cancelled context still yields one result per document,
// with the unfinished transforms replaced by placeholders.
func (o *Orchestrator) EnrichAll(ctx context.Context, docs []*core.Document) ([]*core.EnrichedDocument, error) {
	out := make([]*core.EnrichedDocument, len(docs))
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		err := o.pool.Submit(func() {
			defer wg.Done()
			out[i] = o.Enrich(ctx, doc)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("failed to submit document %s: %w", doc.SetID, err)
		}
	}
	wg.Wait()

	o.logger.Info("batch enriched", "documents", len(docs))
	return out, ctx.Err()
}

func placeholder(t Transform, err error) string {
	return fmt.Sprintf("Error in %s: %v", t.Name, err)
}

func recordError(errs map[string]string, name string, err error) map[string]string {
	if errs == nil {
		errs = make(map[string]string)
	}
	errs[name] = err.Error()
	return errs
}
