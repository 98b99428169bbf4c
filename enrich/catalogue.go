package enrich

import (
	"slices"

	"github.com/poiesic/druglabel/ai"
	"github.com/poiesic/druglabel/core"
)

// Kind classifies a transform by what it produces.
type Kind string

const (
	// KindRewrite maps a section to a restructured HTML section.
	KindRewrite Kind = "rewrite"
	// KindSummary maps sections to one summary field.
	KindSummary Kind = "summary"
	// KindTags maps sections to one tag set.
	KindTags Kind = "tags"
)

// Models used by the default catalogue.
const (
	ModelRewrite = "gpt-4o"
	ModelSummary = "gpt-4"
	ModelTags    = "gpt-4o"
)

// Transform is one catalogued generation step. Its prompt is a pure function
// of its input, so the same input always yields the same request.
type Transform struct {
	Name string
	Kind Kind
	// Target is the section key of a rewrite, the summary field of a summary,
	// or the tag kind of a tag extraction.
	Target string
	// Inputs are section keys, concatenated in order to form the input.
	Inputs []string

	Model       string
	System      string
	Temperature float64
	MaxTokens   int
	TopP        float64
	JSONMode    bool

	// Prompt renders the user message for an input.
	Prompt func(input string) string
}

// Request builds the generation request for an input.
func (t Transform) Request(input string) ai.Request {
	return ai.Request{
		Model:       t.Model,
		System:      t.System,
		Prompt:      t.Prompt(input),
		Temperature: t.Temperature,
		MaxTokens:   t.MaxTokens,
		TopP:        t.TopP,
		JSONMode:    t.JSONMode,
	}
}

// Catalogue is the full set of transforms applied to each document.
type Catalogue struct {
	Rewrites  []Transform
	Summaries []Transform
	Tags      []Transform
}

// Models returns every model named by the catalogue, sorted and deduplicated.
func (c Catalogue) Models() []string {
	var models []string
	for _, group := range [][]Transform{c.Rewrites, c.Summaries, c.Tags} {
		for _, t := range group {
			models = append(models, t.Model)
		}
	}
	slices.Sort(models)
	return slices.Compact(models)
}

// Len returns the number of transforms in the catalogue.
func (c Catalogue) Len() int {
	return len(c.Rewrites) + len(c.Summaries) + len(c.Tags)
}

// HasTags reports whether the catalogue extracts tags of the given kind.
func (c Catalogue) HasTags(kind core.TagKind) bool {
	return slices.ContainsFunc(c.Tags, func(t Transform) bool {
		return t.Target == string(kind)
	})
}

// RewriteSections lists the sections the default catalogue rewrites.
var RewriteSections = []string{
	core.SectionDescription,
	core.SectionIndicationsAndUsage,
	core.SectionDosageAndAdministration,
	core.SectionDosageFormsAndStrengths,
	core.SectionContraindications,
	core.SectionWarningsAndPrecautions,
	core.SectionAdverseReactions,
}

// DefaultCatalogue returns the standard rewrite, summary and tag transforms.
// Contraindication tags are not included; see ContraindicationTags.
func DefaultCatalogue() Catalogue {
	var c Catalogue

	for _, section := range RewriteSections {
		c.Rewrites = append(c.Rewrites, Transform{
			Name:        "rewrite:" + section,
			Kind:        KindRewrite,
			Target:      section,
			Inputs:      []string{section},
			Model:       ModelRewrite,
			Temperature: 0.1,
			MaxTokens:   4000,
			Prompt:      rewritePrompt,
		})
	}

	summaries := []struct {
		field  string
		prompt func(string) string
		inputs []string
	}{
		{"metaDescription", metaDescriptionPrompt, []string{core.SectionDescription}},
		{"description", descriptionPrompt, []string{core.SectionDescription}},
		{"useAndConditions", useAndConditionsPrompt, []string{core.SectionIndicationsAndUsage, core.SectionDosageAndAdministration}},
		{"contraIndications", contraindicationsPrompt, []string{core.SectionContraindications}},
		{"warnings", warningsPrompt, []string{core.SectionBoxedWarning, core.SectionWarningsAndPrecautions}},
		{"dosing", dosingPrompt, []string{core.SectionDosageAndAdministration, core.SectionDosageFormsAndStrengths}},
	}
	for _, s := range summaries {
		c.Summaries = append(c.Summaries, Transform{
			Name:        "summary:" + s.field,
			Kind:        KindSummary,
			Target:      s.field,
			Inputs:      s.inputs,
			Model:       ModelSummary,
			System:      summarySystemPrompt,
			Temperature: 0.1,
			MaxTokens:   500,
			TopP:        0.9,
			Prompt:      s.prompt,
		})
	}

	strengthInputs := []string{core.SectionIndicationsAndUsage, core.SectionDosageFormsAndStrengths, core.SectionDescription}
	tags := []struct {
		kind   core.TagKind
		inputs []string
	}{
		{core.TagCondition, []string{core.SectionIndicationsAndUsage, core.SectionDosageAndAdministration, core.SectionDescription}},
		{core.TagSubstance, []string{core.SectionDescription}},
		{core.TagIndication, []string{core.SectionIndicationsAndUsage, core.SectionDosageAndAdministration}},
		{core.TagStrength, strengthInputs},
		{core.TagPopulation, strengthInputs},
	}
	for _, tg := range tags {
		c.Tags = append(c.Tags, tagTransform(tg.kind, tg.inputs))
	}

	return c
}

// ContraindicationTags returns the contraindication tag transform, which is
// kept out of the default catalogue.
func ContraindicationTags() Transform {
	return tagTransform(core.TagContraindication, []string{core.SectionContraindications})
}

func tagTransform(kind core.TagKind, inputs []string) Transform {
	render := tagPrompts[kind]
	return Transform{
		Name:        "tags:" + string(kind),
		Kind:        KindTags,
		Target:      string(kind),
		Inputs:      inputs,
		Model:       ModelTags,
		System:      tagSystemPrompt,
		Temperature: 0,
		MaxTokens:   500,
		JSONMode:    true,
		Prompt:      render,
	}
}
