package mock

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/druglabel/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("lisinopril", 16)
	b := DeterministicVector("lisinopril", 16)
	c := DeterministicVector("metformin", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockGenerator_Defaults(t *testing.T) {
	gen := NewMockGenerator()

	text, err := gen.Generate(context.Background(), ai.Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	text, err = gen.Generate(context.Background(), ai.Request{Prompt: "tags", JSONMode: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags": []}`, text)

	assert.Equal(t, 2, gen.CallCount())
	assert.Len(t, gen.Requests(), 2)

	gen.Reset()
	assert.Zero(t, gen.CallCount())
	assert.Empty(t, gen.Requests())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)

	vec, err := p.Embedder().EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, vec, DefaultDimension)
	assert.Equal(t, 1, p.GetMockEmbedder().CallCount())
	assert.NoError(t, p.Close())
}
