package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

func testDoc(id string) *core.Document {
	doc := &core.Document{SetID: id, DrugName: "Drug " + id, Slug: "drug-" + id}
	doc.Label.IndicationsAndUsage = core.StringPtr("<p>Relieves pain.</p>")
	return doc
}

func TestWriter_CleanedRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	path, err := w.WriteCleaned([]*core.Document{testDoc("a"), testDoc("b")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, CleanedFile), path)

	docs, err := ReadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[1].SetID)
	assert.Equal(t, "<p>Relieves pain.</p>", docs[0].Label.Section(core.SectionIndicationsAndUsage))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")
}

func TestWriter_EmptyBatchIsEmptyArray(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	path, err := w.WriteStructured(nil)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriter_StructuredAndQueryReady(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	doc := &core.EnrichedDocument{
		Document:  *testDoc("a"),
		Summaries: core.Summaries{Description: "A pain reliever."},
		Tags:      core.TagSet{core.TagCondition: {"pain"}},
		ViewBlocks: map[string][]core.StructuredNode{
			core.SectionIndicationsAndUsage: {{Type: core.NodeParagraph, Text: "Relieves pain."}},
		},
	}

	path, err := w.WriteStructured([]*core.EnrichedDocument{doc})
	require.NoError(t, err)
	enriched, err := ReadEnriched(path)
	require.NoError(t, err)
	require.Len(t, enriched, 1)
	assert.Equal(t, "A pain reliever.", enriched[0].Summaries.Description)
	assert.Equal(t, "Relieves pain.", enriched[0].ViewBlocks[core.SectionIndicationsAndUsage][0].Text)

	path, err = w.WriteQueryReady([]*core.EnrichedDocument{doc})
	require.NoError(t, err)
	assert.Equal(t, QueryReadyFile, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0]["setId"])
	fields := items[0]["fields"].(map[string]any)
	assert.Equal(t, "A pain reliever.", fields[storage.SummaryFieldPrefix+"description"])
	assert.Equal(t, []any{"pain"}, items[0]["tags"].(map[string]any)["condition"])
}

func TestReadDocuments_Errors(t *testing.T) {
	_, err := ReadDocuments(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = ReadDocuments(path)
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)
}
