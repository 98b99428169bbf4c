// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:generate go run ../cmd/musgen

package core

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/gosimple/slug"
)

// ID is a unique identifier for derived entities such as chunks and tags.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID in decimal form.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Document is one drug label as it appears in the label-database export.
// It is mutated in place by each pipeline stage.
type Document struct {
	SetID    string `json:"setId"`
	DrugName string `json:"drugName"`
	Slug     string `json:"slug"`
	Labeler  string `json:"labeler"`
	Label    Label  `json:"label"`
}

// EnsureSlug derives the slug from the drug name when the export omits it.
func (d *Document) EnsureSlug() string {
	if d.Slug == "" && d.DrugName != "" {
		d.Slug = slug.Make(d.DrugName)
	}
	return d.Slug
}

// LabelerName returns the labeler, falling back to the label's own field and then "Unknown".
func (d *Document) LabelerName() string {
	if name := strings.TrimSpace(d.Labeler); name != "" {
		return name
	}
	if d.Label.LabelerName != nil && strings.TrimSpace(*d.Label.LabelerName) != "" {
		return strings.TrimSpace(*d.Label.LabelerName)
	}
	return "Unknown"
}

// Highlights holds the highlight sub-sections of a label.
type Highlights struct {
	DosageAndAdministration *string `json:"dosageAndAdministration,omitempty"`
}

// Summaries are the generated short-form views of a document.
type Summaries struct {
	MetaDescription   string `json:"metaDescription"`
	Description       string `json:"description"`
	UseAndConditions  string `json:"useAndConditions"`
	ContraIndications string `json:"contraIndications"`
	Warnings          string `json:"warnings"`
	Dosing            string `json:"dosing"`
}

// Blocks returns the summaries keyed by field name, in display order.
func (s Summaries) Blocks() []NamedText {
	return []NamedText{
		{Name: "metaDescription", Text: s.MetaDescription},
		{Name: "description", Text: s.Description},
		{Name: "useAndConditions", Text: s.UseAndConditions},
		{Name: "contraIndications", Text: s.ContraIndications},
		{Name: "warnings", Text: s.Warnings},
		{Name: "dosing", Text: s.Dosing},
	}
}

// Set assigns a summary by field name. It reports false for unknown names.
func (s *Summaries) Set(name, text string) bool {
	switch name {
	case "metaDescription":
		s.MetaDescription = text
	case "description":
		s.Description = text
	case "useAndConditions":
		s.UseAndConditions = text
	case "contraIndications":
		s.ContraIndications = text
	case "warnings":
		s.Warnings = text
	case "dosing":
		s.Dosing = text
	default:
		return false
	}
	return true
}

// NamedText pairs a field name with its text.
type NamedText struct {
	Name string
	Text string
}

// TagKind names one independently extracted tag category.
type TagKind string

const (
	TagCondition        TagKind = "condition"
	TagSubstance        TagKind = "substance"
	TagIndication       TagKind = "indication"
	TagStrength         TagKind = "strength"
	TagPopulation       TagKind = "population"
	TagContraindication TagKind = "contraindication"
)

// TagKinds lists every tag kind in catalogue order.
var TagKinds = []TagKind{
	TagCondition,
	TagSubstance,
	TagIndication,
	TagStrength,
	TagPopulation,
	TagContraindication,
}

// TagSet holds the extracted tags of a document, one list per kind.
type TagSet map[TagKind][]string

// Get returns the tags of one kind.
func (t TagSet) Get(kind TagKind) []string {
	if t == nil {
		return nil
	}
	return t[kind]
}

// Put replaces the tags of one kind, dropping blanks and duplicates.
func (t TagSet) Put(kind TagKind, tags []string) {
	seen := make(map[string]struct{}, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		cleaned = append(cleaned, tag)
	}
	t[kind] = cleaned
}

// NodeType identifies the variant of a StructuredNode.
type NodeType string

const (
	NodeHeader        NodeType = "header"
	NodeParagraph     NodeType = "paragraph"
	NodeOrderedList   NodeType = "ordered-list"
	NodeUnorderedList NodeType = "unordered-list"
	NodeTable         NodeType = "table"
	NodeTableRow      NodeType = "table-row"
	NodeTableCell     NodeType = "table-cell"
	NodeText          NodeType = "text"
)

// StructuredNode is one block of a decomposed HTML section.
type StructuredNode struct {
	Type  NodeType         `json:"type"`
	Level int              `json:"level,omitempty"`
	Text  string           `json:"text,omitempty"`
	Items []string         `json:"items,omitempty"`
	Rows  []StructuredNode `json:"rows,omitempty"`
	Cells []StructuredNode `json:"cells,omitempty"`
}

// Content renders the node's text: its own text, or the concatenation of its
// descendants in document order.
func (n StructuredNode) Content() string {
	switch {
	case len(n.Items) > 0:
		return strings.Join(n.Items, "\n")
	case len(n.Rows) > 0:
		parts := make([]string, 0, len(n.Rows))
		for _, row := range n.Rows {
			parts = append(parts, row.Content())
		}
		return strings.Join(parts, "\n")
	case len(n.Cells) > 0:
		parts := make([]string, 0, len(n.Cells))
		for _, cell := range n.Cells {
			parts = append(parts, cell.Content())
		}
		return strings.Join(parts, " ")
	default:
		return n.Text
	}
}

// EnrichedDocument is a document after the enrichment stage.
type EnrichedDocument struct {
	Document
	Summaries  Summaries                   `json:"summaries"`
	Tags       TagSet                      `json:"tags"`
	ViewBlocks map[string][]StructuredNode `json:"viewBlocks,omitempty"`
	// Errors records the transforms that fell back to a placeholder.
	Errors map[string]string `json:"errors,omitempty"`
}

// Chunk is a token-bounded span of a document's enriched text.
type Chunk struct {
	ID           ID
	DocumentID   string
	DocumentName string
	Slug         string
	Index        int
	Text         string
	TokenCount   int
	Vector       []float32
}

// Metadata keys attached to chunks in vector stores.
const (
	MetaDocumentID = "document_id"
	MetaName       = "name"
	MetaSlug       = "slug"
	MetaChunkIndex = "chunk_index"
)

// ChunkID derives the content ID of a document's chunk at the given index.
func ChunkID(documentID string, index int) ID {
	return IDFromContent(documentID + ":" + strconv.Itoa(index))
}

// Metadata returns the chunk's parent-document metadata as string pairs.
func (c *Chunk) Metadata() map[string]string {
	return map[string]string{
		MetaDocumentID: c.DocumentID,
		MetaName:       c.DocumentName,
		MetaSlug:       c.Slug,
		MetaChunkIndex: strconv.Itoa(c.Index),
	}
}

// ChunkMatch is a chunk returned from a nearest-neighbor query.
type ChunkMatch struct {
	Chunk *Chunk
	Score float32
}

// RankEntry is one neighbor document in a similarity ranking.
type RankEntry struct {
	DocumentID string `json:"documentId"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Hits       int    `json:"hits"`
}

// SimilarityRanking maps neighbor documents to their hit counts, most hits first.
type SimilarityRanking struct {
	DocumentID string      `json:"documentId"`
	Entries    []RankEntry `json:"entries"`
	ComputedAt time.Time   `json:"computedAt"`
}

// AsMap returns the ranking as document id to hit count.
func (r *SimilarityRanking) AsMap() map[string]int {
	out := make(map[string]int, len(r.Entries))
	for _, e := range r.Entries {
		out[e.DocumentID] = e.Hits
	}
	return out
}

// BySlug returns the ranking keyed by neighbor slug, the form stored on drug rows.
func (r *SimilarityRanking) BySlug() map[string]int {
	out := make(map[string]int, len(r.Entries))
	for _, e := range r.Entries {
		key := e.Slug
		if key == "" {
			key = e.DocumentID
		}
		out[key] = e.Hits
	}
	return out
}

// Stage names a pipeline checkpoint.
type Stage string

const (
	StageCleaned    Stage = "cleaned"
	StageStructured Stage = "structured"
	StageQueryReady Stage = "query-ready"
	StageIndexed    Stage = "indexed"
	StageRanked     Stage = "ranked"
)

// Stages lists the pipeline stages in run order.
var Stages = []Stage{StageCleaned, StageStructured, StageQueryReady, StageIndexed, StageRanked}

// Checkpoint records the progress of one pipeline stage.
type Checkpoint struct {
	Stage          Stage
	LastDocumentID string
	Processed      int
	UpdatedAt      time.Time
}

// SearchDocument is the flattened form of an enriched document held by the search index.
type SearchDocument struct {
	SetID    string
	DrugName string
	Slug     string
	// Fields holds flattened section and summary text keyed by field name.
	Fields map[string]string
	Tags   TagSet
}
