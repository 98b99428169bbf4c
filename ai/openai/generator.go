package openai

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/poiesic/druglabel/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyResponse is returned when the service answers with no choices.
var ErrEmptyResponse = errors.New("generation returned no choices")

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
// One client is created lazily per model.
type Generator struct {
	host    string
	token   string
	mu      sync.Mutex
	clients map[string]llms.Model
	newFn   func(model string) (llms.Model, error)
	logger  *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	token := config.APIKey
	if token == "" {
		token = "none"
	}
	g := &Generator{
		host:    config.GenerationHost,
		token:   token,
		clients: make(map[string]llms.Model),
		logger:  slog.Default().With("component", "openai-generator"),
	}
	g.newFn = g.dial
	return g, nil
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

func (g *Generator) dial(model string) (llms.Model, error) {
	return openai.New(
		openai.WithBaseURL(g.host),
		openai.WithToken(g.token),
		openai.WithModel(model),
	)
}

func (g *Generator) client(model string) (llms.Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[model]; ok {
		return c, nil
	}
	c, err := g.newFn(model)
	if err != nil {
		return nil, err
	}
	g.clients[model] = c
	return c, nil
}

// Generate issues exactly one chat completion request.
func (g *Generator) Generate(ctx context.Context, req ai.Request) (string, error) {
	client, err := g.client(req.Model)
	if err != nil {
		g.logger.Error("failed to create client", "model", req.Model, "err", err)
		return "", err
	}

	content := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.System)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Prompt)},
	})

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.TopP > 0 {
		opts = append(opts, llms.WithTopP(req.TopP))
	}
	if req.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}

	response, err := client.GenerateContent(ctx, content, opts...)
	if err != nil {
		g.logger.Error("failed to generate content", "model", req.Model, "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrEmptyResponse
	}
	return response.Choices[0].Content, nil
}
