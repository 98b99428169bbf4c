package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/druglabel/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	lastMessages []llms.MessageContent
	lastOptions  llms.CallOptions
	response     *llms.ContentResponse
	err          error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.lastMessages = messages
	f.lastOptions = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.lastOptions)
	}
	return f.response, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

type fakeEmbeddings struct {
	calls [][]string
}

func (f *fakeEmbeddings) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func (f *fakeEmbeddings) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func newTestGenerator(t *testing.T, model *fakeModel) *Generator {
	t.Helper()
	g, err := newGenerator(ai.DefaultConfig())
	require.NoError(t, err)
	dialed := 0
	g.newFn = func(string) (llms.Model, error) {
		dialed++
		require.LessOrEqual(t, dialed, 1, "client should be created once per model")
		return model, nil
	}
	return g
}

func TestGenerator_Generate(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "<p>ok</p>"}}}}
	g := newTestGenerator(t, model)

	text, err := g.Generate(context.Background(), ai.Request{
		Model:       "gpt-4",
		System:      "You are precise.",
		Prompt:      "Summarize",
		Temperature: 0.1,
		MaxTokens:   500,
		TopP:        0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", text)

	require.Len(t, model.lastMessages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.lastMessages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.lastMessages[1].Role)
	assert.Equal(t, 0.1, model.lastOptions.Temperature)
	assert.Equal(t, 500, model.lastOptions.MaxTokens)
	assert.Equal(t, 0.9, model.lastOptions.TopP)
	assert.False(t, model.lastOptions.JSONMode)

	// second call reuses the cached client
	_, err = g.Generate(context.Background(), ai.Request{Model: "gpt-4", Prompt: "again", JSONMode: true})
	require.NoError(t, err)
	assert.Len(t, model.lastMessages, 1)
	assert.True(t, model.lastOptions.JSONMode)
}

func TestGenerator_Errors(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		boom := errors.New("boom")
		g := newTestGenerator(t, &fakeModel{err: boom})

		_, err := g.Generate(context.Background(), ai.Request{Model: "gpt-4o", Prompt: "x"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no choices", func(t *testing.T) {
		g := newTestGenerator(t, &fakeModel{response: &llms.ContentResponse{}})

		_, err := g.Generate(context.Background(), ai.Request{Model: "gpt-4o", Prompt: "x"})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestEmbedder_Cache(t *testing.T) {
	fake := &fakeEmbeddings{}
	e, err := newEmbedderWith(fake, 8)
	require.NoError(t, err)

	vecs, err := e.EmbedTexts(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)

	vecs, err = e.EmbedTexts(context.Background(), []string{"bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}}, vecs)

	require.Len(t, fake.calls, 2)
	assert.Equal(t, []string{"ccc"}, fake.calls[1], "cached text must not be re-embedded")

	vec, err := e.EmbedText(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Len(t, fake.calls, 2)
}

func TestEmbedder_NoCache(t *testing.T) {
	fake := &fakeEmbeddings{}
	e, err := newEmbedderWith(fake, 0)
	require.NoError(t, err)

	_, err = e.EmbedText(context.Background(), "a")
	require.NoError(t, err)
	_, err = e.EmbedText(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, fake.calls, 2)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(&ai.Config{})
	assert.Error(t, err)
}
