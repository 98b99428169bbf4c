package decompose

import (
	"testing"

	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompose(t *testing.T) {
	input := "<h2> Indications </h2><p>Treats hypertension.</p>" +
		"<ul><li>Adults</li><li>Children <ul><li>nested</li></ul></li></ul>" +
		"<ol><li>First</li></ol>" +
		"<table><thead><tr><th>Dose</th><th>Form</th></tr></thead><tbody><tr><td>10 mg</td><td>tablet</td></tr></tbody></table>" +
		"<blockquote>Quoted</blockquote>tail text"

	got := Decompose(input)

	want := []core.StructuredNode{
		{Type: core.NodeHeader, Level: 2, Text: "Indications"},
		{Type: core.NodeParagraph, Text: "Treats hypertension."},
		{Type: core.NodeUnorderedList, Items: []string{"Adults", "Children nested"}},
		{Type: core.NodeOrderedList, Items: []string{"First"}},
		{Type: core.NodeTable, Rows: []core.StructuredNode{
			{Type: core.NodeTableRow, Cells: []core.StructuredNode{
				{Type: core.NodeTableCell, Text: "Dose"},
				{Type: core.NodeTableCell, Text: "Form"},
			}},
			{Type: core.NodeTableRow, Cells: []core.StructuredNode{
				{Type: core.NodeTableCell, Text: "10 mg"},
				{Type: core.NodeTableCell, Text: "tablet"},
			}},
		}},
		{Type: core.NodeText, Text: "Quoted"},
		{Type: core.NodeText, Text: "tail text"},
	}
	assert.Equal(t, want, got)
}

func TestDecompose_NormalizedOrphanRow(t *testing.T) {
	got := Decompose(normalize.Normalize("<tr><td>A</td></tr>"))

	require.Len(t, got, 1)
	table := got[0]
	assert.Equal(t, core.NodeTable, table.Type)
	require.Len(t, table.Rows, 1)
	require.Len(t, table.Rows[0].Cells, 1)
	assert.Equal(t, "A", table.Rows[0].Cells[0].Text)
}

func TestDecompose_OmitsEmptyNodes(t *testing.T) {
	got := Decompose("<p>  </p><ul><li> </li></ul><table><tr><td></td></tr></table><p>kept</p>")

	assert.Equal(t, []core.StructuredNode{{Type: core.NodeParagraph, Text: "kept"}}, got)
}

func TestDecompose_TextOnly(t *testing.T) {
	assert.Equal(t, []core.StructuredNode{{Type: core.NodeText, Text: "just words"}}, Decompose("  just words "))
	assert.Nil(t, Decompose(""))
	assert.Nil(t, Decompose("<p> </p>"))
}

func TestDecompose_ContentPreserved(t *testing.T) {
	got := Decompose("<p>Take <b>one</b> tablet</p>")

	require.Len(t, got, 1)
	assert.Equal(t, "Take one tablet", got[0].Content())
}

func TestDecomposeBlocks(t *testing.T) {
	blocks := core.Summaries{Description: "<p>An ACE inhibitor.</p>", Warnings: ""}.Blocks()

	got := DecomposeBlocks(blocks)

	assert.Len(t, got, 1)
	assert.Equal(t, []core.StructuredNode{{Type: core.NodeParagraph, Text: "An ACE inhibitor."}}, got["description"])
}
