// Package chunk splits enriched document text into token-bounded windows of
// whole sentences.
package chunk

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/normalize"
	"github.com/poiesic/druglabel/tokens"
)

const (
	// DefaultMaxTokens is the default token ceiling of a chunk.
	DefaultMaxTokens = 512
	// DefaultOverlap is the default number of sentences carried into the next chunk.
	DefaultOverlap = 1
	// DefaultModel names the encoding used to count chunk tokens.
	DefaultModel = "gpt-4o"
)

// Chunker accumulates sentences into chunks. It is safe for concurrent use
// when its counter is.
type Chunker struct {
	counter   tokens.Counter
	maxTokens int
	overlap   int
	logger    *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithMaxTokens sets the token ceiling of a chunk.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) error {
		if n < 1 {
			return ErrInvalidMaxTokens
		}
		c.maxTokens = n
		return nil
	}
}

// WithOverlap sets how many trailing sentences seed the next chunk.
func WithOverlap(n int) Option {
	return func(c *Chunker) error {
		if n < 0 {
			return ErrInvalidOverlap
		}
		c.overlap = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "chunker")
		return nil
	}
}

// New creates a Chunker.
func New(counter tokens.Counter, opts ...Option) (*Chunker, error) {
	if counter == nil {
		return nil, ErrCounterRequired
	}
	c := &Chunker{
		counter:   counter,
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
		logger:    slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MaxTokens returns the token ceiling.
func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// Chunk splits text into chunks of whole sentences. Each chunk stays within
// the token ceiling unless it is a single sentence that exceeds it on its own.
// Consecutive chunks share the configured number of sentences.
func (c *Chunker) Chunk(text string) []string {
	var (
		chunks  []string
		current []string
		// fresh counts sentences in current that no earlier chunk holds.
		fresh int
	)

	for _, s := range SplitSentences(text) {
		if c.fits(current, s) {
			current = append(current, s)
			fresh++
			continue
		}

		if fresh > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = slices.Clone(current[max(len(current)-c.overlap, 0):])
		}
		// Keep the longest suffix of the overlap that still leaves room for s.
		for len(current) > 0 && !c.fits(current, s) {
			current = current[1:]
		}
		current = append(current, s)
		fresh = 1

		if len(current) == 1 && c.counter.Count(s) > c.maxTokens {
			c.logger.Debug("sentence exceeds chunk ceiling", "tokens", c.counter.Count(s), "max", c.maxTokens)
		}
	}

	if fresh > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

func (c *Chunker) fits(current []string, next string) bool {
	if len(current) == 0 {
		return c.counter.Count(next) <= c.maxTokens
	}
	joined := strings.Join(current, " ") + " " + next
	return c.counter.Count(joined) <= c.maxTokens
}

// DocumentText renders the text a document is chunked from: the drug name,
// the non-empty summaries, then the plain text of each content section.
func DocumentText(doc *core.EnrichedDocument) string {
	parts := []string{strings.TrimSpace(doc.DrugName)}
	for _, block := range doc.Summaries.Blocks() {
		if text := strings.TrimSpace(block.Text); text != "" {
			parts = append(parts, text)
		}
	}
	for _, key := range core.ContentSectionKeys {
		if text := normalize.PlainText(doc.Label.Section(key)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(slices.DeleteFunc(parts, func(s string) bool { return s == "" }), "\n"))
}

// ChunkDocument chunks a document and tags each chunk with the document's
// identity. Indices start at zero.
func (c *Chunker) ChunkDocument(doc *core.EnrichedDocument) []core.Chunk {
	texts := c.Chunk(DocumentText(doc))
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{
			ID:           core.ChunkID(doc.SetID, i),
			DocumentID:   doc.SetID,
			DocumentName: doc.DrugName,
			Slug:         doc.Slug,
			Index:        i,
			Text:         text,
			TokenCount:   c.counter.Count(text),
		}
	}
	return chunks
}
