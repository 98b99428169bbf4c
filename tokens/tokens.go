// Package tokens counts model tokens for budget accounting and chunk sizing.
package tokens

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when a model has no known encoding.
const DefaultEncoding = "cl100k_base"

// Counter counts the tokens in a text. Implementations are safe for concurrent use.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a tiktoken encoding.
type TiktokenCounter struct {
	encoding string
	mu       sync.Mutex
	tke      *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for a model name or encoding name,
// falling back to DefaultEncoding for unknown models.
func NewTiktokenCounter(modelOrEncoding string) (*TiktokenCounter, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = DefaultEncoding
	}

	encoding := modelOrEncoding
	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(modelOrEncoding)
		if err != nil {
			tke, err = tiktoken.GetEncoding(DefaultEncoding)
			if err != nil {
				return nil, fmt.Errorf("failed to get default encoding '%s': %w", DefaultEncoding, err)
			}
			encoding = DefaultEncoding
		}
	}

	return &TiktokenCounter{encoding: encoding, tke: tke}, nil
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tke.Encode(text, nil, nil))
}

// Encoding returns the name of the encoding in use.
func (c *TiktokenCounter) Encoding() string {
	return c.encoding
}

// EstimateCounter approximates four bytes per token.
type EstimateCounter struct{}

// Count returns len(text)/4, rounded down.
func (EstimateCounter) Count(text string) int {
	return len(text) / 4
}

// CounterFunc adapts a plain function to Counter.
type CounterFunc func(text string) int

// Count calls f(text).
func (f CounterFunc) Count(text string) int {
	return f(text)
}

// ForModel returns a tiktoken counter for model, or an EstimateCounter when the
// encoding tables cannot be loaded.
func ForModel(model string) Counter {
	c, err := NewTiktokenCounter(model)
	if err != nil {
		slog.Default().With("component", "tokens").Warn("tiktoken unavailable, estimating tokens", "model", model, "err", err)
		return EstimateCounter{}
	}
	return c
}
