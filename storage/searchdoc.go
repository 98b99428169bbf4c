package storage

import "github.com/poiesic/druglabel/core"

// Field name prefix of summaries in a search document.
const SummaryFieldPrefix = "summary."

// ToSearchDocument flattens an enriched document: every present section under
// its key, every non-empty summary under SummaryFieldPrefix plus its name,
// and a copy of the tag sets.
func ToSearchDocument(doc *core.EnrichedDocument) *core.SearchDocument {
	fields := make(map[string]string)
	for _, key := range core.SectionKeys {
		if v, ok := doc.Label.Lookup(key); ok && v != "" {
			fields[key] = v
		}
	}
	for _, block := range doc.Summaries.Blocks() {
		if block.Text != "" {
			fields[SummaryFieldPrefix+block.Name] = block.Text
		}
	}
	fields["labeler"] = doc.LabelerName()
	if date := core.FormatEffectiveTime(doc.Label.Section(core.SectionEffectiveTime)); date != "" {
		fields["effectiveDate"] = date
	}

	tags := make(core.TagSet, len(doc.Tags))
	for kind, values := range doc.Tags {
		tags[kind] = append([]string(nil), values...)
	}

	return &core.SearchDocument{
		SetID:    doc.SetID,
		DrugName: doc.DrugName,
		Slug:     doc.Slug,
		Fields:   fields,
		Tags:     tags,
	}
}
