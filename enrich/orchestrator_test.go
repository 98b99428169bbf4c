package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/druglabel/ai"
	"github.com/poiesic/druglabel/ai/mock"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) *gateway.Gateway {
	t.Helper()
	r, err := gateway.NewRegistry(map[string]gateway.Limits{
		ModelRewrite: {CallsPerWindow: 1000},
		ModelSummary: {CallsPerWindow: 1000},
	})
	require.NoError(t, err)
	g, err := gateway.New(r)
	require.NoError(t, err)
	return g
}

func newTestOrchestrator(t *testing.T, gen ai.Generator, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(gen, newTestGateway(t), opts...)
	require.NoError(t, err)
	t.Cleanup(o.Release)
	return o
}

// scriptedGenerator answers by transform kind.
func scriptedGenerator(rewrite, summary, tags string) *mock.MockGenerator {
	gen := mock.NewMockGenerator()
	gen.GenerateFunc = func(_ context.Context, req ai.Request) (string, error) {
		switch {
		case req.JSONMode:
			return tags, nil
		case req.Model == ModelSummary:
			return summary, nil
		default:
			return rewrite, nil
		}
	}
	return gen
}

func sampleDocument() *core.Document {
	return &core.Document{
		SetID:    "set-1",
		DrugName: "Lisinopril Tablets",
		Label: core.Label{
			Description:         core.StringPtr("<p>original description</p>"),
			IndicationsAndUsage: core.StringPtr("<p>original indications</p>"),
		},
	}
}

func TestNew_Requires(t *testing.T) {
	_, err := New(nil, newTestGateway(t))
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = New(mock.NewMockGenerator(), nil)
	assert.ErrorIs(t, err, ErrGatewayRequired)

	_, err = New(mock.NewMockGenerator(), newTestGateway(t), WithPoolSize(0))
	assert.ErrorIs(t, err, ErrInvalidPoolSize)

	_, err = New(mock.NewMockGenerator(), newTestGateway(t), WithCatalogue(Catalogue{}))
	assert.ErrorIs(t, err, ErrEmptyCatalogue)
}

func TestNew_UnknownModel(t *testing.T) {
	r, err := gateway.NewRegistry(map[string]gateway.Limits{ModelRewrite: {CallsPerWindow: 10}})
	require.NoError(t, err)
	g, err := gateway.New(r)
	require.NoError(t, err)

	_, err = New(mock.NewMockGenerator(), g)

	var unknown *gateway.UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, ModelSummary, unknown.Model)
}

func TestDefaultCatalogue(t *testing.T) {
	c := DefaultCatalogue()

	assert.Len(t, c.Rewrites, 7)
	assert.Len(t, c.Summaries, 6)
	assert.Len(t, c.Tags, 5)
	assert.False(t, c.HasTags(core.TagContraindication))
	assert.Equal(t, []string{ModelSummary, ModelRewrite}, c.Models())

	for _, tr := range c.Rewrites {
		req := tr.Request("<p>x</p>")
		assert.Equal(t, 0.1, req.Temperature)
		assert.Equal(t, 4000, req.MaxTokens)
		assert.True(t, strings.HasSuffix(req.Prompt, "<p>x</p>"))
		assert.Empty(t, req.System)
	}
	for _, tr := range c.Summaries {
		req := tr.Request("text")
		assert.Equal(t, 0.9, req.TopP)
		assert.Equal(t, summarySystemPrompt, req.System)
		assert.Contains(t, req.Prompt, "## Original content:\ntext\n### END OF Original content")
	}
	for _, tr := range c.Tags {
		req := tr.Request("text")
		assert.True(t, req.JSONMode)
		assert.Zero(t, req.Temperature)
		assert.True(t, strings.HasSuffix(req.Prompt, "### Input:\ntext"))
	}
}

func TestTransform_PromptIsDeterministic(t *testing.T) {
	for _, tr := range DefaultCatalogue().Tags {
		assert.Equal(t, tr.Request("same").Prompt, tr.Request("same").Prompt, tr.Name)
	}
}

func TestWithContraindicationTags(t *testing.T) {
	o := newTestOrchestrator(t, mock.NewMockGenerator(), WithContraindicationTags(true))
	assert.True(t, o.Catalogue().HasTags(core.TagContraindication))
	assert.Len(t, o.Catalogue().Tags, 6)
}

func TestEnrich_EmptyDocumentMakesNoCalls(t *testing.T) {
	gen := mock.NewMockGenerator()
	o := newTestOrchestrator(t, gen)

	out := o.Enrich(context.Background(), &core.Document{SetID: "set-empty", DrugName: "Nothing"})

	assert.Equal(t, 0, gen.CallCount())
	assert.Empty(t, out.Errors)
	assert.Equal(t, core.Summaries{}, out.Summaries)
	for _, tr := range o.Catalogue().Tags {
		tags, ok := out.Tags[core.TagKind(tr.Target)]
		assert.True(t, ok, tr.Target)
		assert.Empty(t, tags)
	}
	_, present := out.Label.Lookup(core.SectionDescription)
	assert.False(t, present)
	assert.Equal(t, "nothing", out.Slug)
}

func TestEnrich_FullDocument(t *testing.T) {
	gen := scriptedGenerator("<div><p>REWRITTEN</p></div>", "Short summary.", `{"indications": ["Hypertension", "Hypertension"]}`)
	o := newTestOrchestrator(t, gen)
	doc := sampleDocument()

	out := o.Enrich(context.Background(), doc)

	assert.Equal(t, "<p>REWRITTEN</p>", out.Label.Section(core.SectionDescription))
	assert.Equal(t, "<p>REWRITTEN</p>", out.Label.Section(core.SectionIndicationsAndUsage))
	_, present := out.Label.Lookup(core.SectionDosageAndAdministration)
	assert.False(t, present)

	assert.Equal(t, "Short summary.", out.Summaries.MetaDescription)
	assert.Equal(t, "Short summary.", out.Summaries.Description)
	assert.Equal(t, "Short summary.", out.Summaries.UseAndConditions)
	assert.Empty(t, out.Summaries.ContraIndications)
	assert.Empty(t, out.Summaries.Warnings)
	assert.Empty(t, out.Summaries.Dosing)

	assert.Equal(t, []string{"Hypertension"}, out.Tags.Get(core.TagIndication))
	assert.Equal(t, []string{"Hypertension"}, out.Tags.Get(core.TagSubstance))
	assert.Empty(t, out.Errors)

	require.Len(t, out.ViewBlocks["metaDescription"], 1)
	assert.Equal(t, "Short summary.", out.ViewBlocks["metaDescription"][0].Content())
	assert.Empty(t, out.ViewBlocks["dosing"])

	// 2 rewrites, 3 summaries, 5 tag sets
	assert.Equal(t, 10, gen.CallCount())
	assert.Equal(t, "<p>original description</p>", doc.Label.Section(core.SectionDescription))
}

func TestEnrich_SecondStageSeesRewrittenText(t *testing.T) {
	gen := scriptedGenerator("<p>REWRITTEN</p>", "ok", `{"tags": []}`)
	o := newTestOrchestrator(t, gen)

	o.Enrich(context.Background(), sampleDocument())

	for _, req := range gen.Requests() {
		if req.Model == ModelSummary || req.JSONMode {
			assert.Contains(t, req.Prompt, "REWRITTEN")
			assert.NotContains(t, req.Prompt, "original description")
			assert.NotContains(t, req.Prompt, "original indications")
			assert.NotContains(t, req.Prompt, "<p>")
		}
	}
}

func TestEnrich_MarkdownRewriteIsRendered(t *testing.T) {
	gen := scriptedGenerator("# Dosage\n\n- 10 mg daily\n- 20 mg daily", "ok", `{"tags": []}`)
	o := newTestOrchestrator(t, gen)

	out := o.Enrich(context.Background(), sampleDocument())

	section := out.Label.Section(core.SectionDescription)
	assert.Contains(t, section, "<h1>Dosage</h1>")
	assert.Contains(t, section, "<li>10 mg daily</li>")
}

func TestEnrich_FailuresFallBack(t *testing.T) {
	boom := errors.New("boom")
	gen := mock.NewMockGenerator()
	gen.GenerateFunc = func(_ context.Context, req ai.Request) (string, error) {
		switch {
		case req.JSONMode && strings.Contains(req.Prompt, `"substances"`):
			return "", boom
		case req.JSONMode:
			return "not json at all", nil
		case req.Model == ModelSummary && strings.Contains(req.Prompt, "60 characters"):
			return "", boom
		case req.Model == ModelSummary:
			return "fine", nil
		default:
			return strings.TrimPrefix(req.Prompt, rewriteInstructions), nil
		}
	}
	o := newTestOrchestrator(t, gen)

	out := o.Enrich(context.Background(), sampleDocument())

	assert.Equal(t, "Error in summary:metaDescription: boom", out.Summaries.MetaDescription)
	assert.Equal(t, "fine", out.Summaries.Description)
	assert.Equal(t, "boom", out.Errors["summary:metaDescription"])
	assert.Equal(t, "boom", out.Errors["tags:substance"])
	assert.Contains(t, out.Errors["tags:condition"], ErrInvalidTagResponse.Error())
	assert.Empty(t, out.Tags.Get(core.TagSubstance))
	assert.Empty(t, out.Tags.Get(core.TagCondition))
	assert.NotContains(t, out.Errors, "summary:description")
}

func TestEnrich_CancelledContextUsesPlaceholders(t *testing.T) {
	gen := mock.NewMockGenerator()
	o := newTestOrchestrator(t, gen)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := o.Enrich(ctx, sampleDocument())

	assert.Equal(t, 0, gen.CallCount())
	assert.Equal(t, fmt.Sprintf("Error in rewrite:description: %v", context.Canceled), out.Label.Section(core.SectionDescription))
	assert.NotEmpty(t, out.Errors)
}

func TestEnrichAll_KeepsInputOrder(t *testing.T) {
	gen := scriptedGenerator("<p>x</p>", "ok", `{"tags": ["T"]}`)
	o := newTestOrchestrator(t, gen, WithPoolSize(3))

	docs := make([]*core.Document, 8)
	for i := range docs {
		docs[i] = sampleDocument()
		docs[i].SetID = fmt.Sprintf("set-%d", i)
	}

	out, err := o.EnrichAll(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, out, len(docs))
	for i, doc := range out {
		assert.Equal(t, fmt.Sprintf("set-%d", i), doc.SetID)
		assert.Equal(t, []string{"T"}, doc.Tags.Get(core.TagCondition))
	}
}

func TestEnrich_PermitsMatchCalls(t *testing.T) {
	gw := newTestGateway(t)
	gen := scriptedGenerator("<p>x</p>", "ok", `{"tags": []}`)
	o, err := New(gen, gw)
	require.NoError(t, err)
	defer o.Release()

	o.Enrich(context.Background(), sampleDocument())

	stats := gw.Stats()
	admitted := stats[ModelRewrite].Admitted + stats[ModelSummary].Admitted
	assert.Equal(t, int64(gen.CallCount()), admitted)
}
