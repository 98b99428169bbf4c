package search

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/druglabel/ai/mock"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(doc string, index int, text string, vec ...float32) core.Chunk {
	return core.Chunk{
		ID:           core.ChunkID(doc, index),
		DocumentID:   doc,
		DocumentName: "Drug " + doc,
		Slug:         "drug-" + doc,
		Index:        index,
		Text:         text,
		Vector:       vec,
	}
}

func setupSearcher(t *testing.T) (*Searcher, *badger.Stores, *mock.MockEmbedder) {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	require.NoError(t, stores.Vectors.Upsert(context.Background(), []core.Chunk{
		chunk("a", 0, "Treats high blood pressure.", 1, 0),
		chunk("a", 1, "Take once daily.", 0.9, 0.1),
		chunk("b", 0, "Relieves migraine pain.", 0.8, 0.6),
		chunk("c", 0, "Lowers cholesterol.", 0, 1),
	}))

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	s, err := NewSearcher(stores.Vectors, embedder, WithSearchIndex(stores.Search))
	require.NoError(t, err)
	return s, stores, embedder
}

func TestNewSearcher_Requirements(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = NewSearcher(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrVectorStoreRequired)
	_, err = NewSearcher(stores.Vectors, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestSearch_GroupsByDocument(t *testing.T) {
	s, _, _ := setupSearcher(t)

	hits, err := s.Search(context.Background(), "anything unrelated", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "a", hits[0].DocumentID)
	assert.Equal(t, "Drug a", hits[0].Name)
	assert.Equal(t, "drug-a", hits[0].Slug)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, []string{"Treats high blood pressure.", "Take once daily."}, hits[0].Snippets)

	assert.Equal(t, "b", hits[1].DocumentID)
}

func TestSearch_VerbatimBoost(t *testing.T) {
	s, _, _ := setupSearcher(t)

	hits, err := s.Search(context.Background(), "the migraine", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "b", hits[0].DocumentID)
	assert.InDelta(t, 1.1, hits[0].Score, 1e-6)
}

func TestSearch_ZeroLimit(t *testing.T) {
	s, _, embedder := setupSearcher(t)

	hits, err := s.Search(context.Background(), "query", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Zero(t, embedder.CallCount())
}

func TestSearch_EmbedderError(t *testing.T) {
	s, _, embedder := setupSearcher(t)
	failure := errors.New("embedding failed")
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, failure
	}

	_, err := s.Search(context.Background(), "query", 5)
	assert.ErrorIs(t, err, failure)
}

type recordingMonitor struct {
	noopMonitor
	query    string
	matches  int
	verbatim int
	hits     int
}

func (m *recordingMonitor) Start(q string)                           { m.query = q }
func (m *recordingMonitor) AfterVectorQuery(found []core.ChunkMatch) { m.matches = len(found) }
func (m *recordingMonitor) VerbatimHit(_ *core.Chunk)                { m.verbatim++ }
func (m *recordingMonitor) Finish(h []*DocumentHit)                  { m.hits = len(h) }

func TestSearchWithMonitor(t *testing.T) {
	s, _, _ := setupSearcher(t)
	monitor := &recordingMonitor{}

	_, err := s.SearchWithMonitor(context.Background(), "daily", 1, monitor)
	require.NoError(t, err)

	assert.Equal(t, "daily", monitor.query)
	assert.Equal(t, 3, monitor.matches)
	assert.Equal(t, 1, monitor.verbatim)
	assert.Equal(t, 1, monitor.hits)
}

func TestFindByTag(t *testing.T) {
	s, stores, _ := setupSearcher(t)
	ctx := context.Background()

	require.NoError(t, stores.Search.UpsertSearchDocuments(ctx,
		&core.SearchDocument{SetID: "a", DrugName: "Drug a", Fields: map[string]string{}, Tags: core.TagSet{core.TagCondition: {"Hypertension"}}},
		&core.SearchDocument{SetID: "b", DrugName: "Drug b", Fields: map[string]string{}, Tags: core.TagSet{core.TagCondition: {"Migraine"}}},
	))

	docs, err := s.FindByTag(ctx, core.TagCondition, "hypertension")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Drug a", docs[0].DrugName)

	plain, err := NewSearcher(stores.Vectors, mock.NewMockEmbedder())
	require.NoError(t, err)
	_, err = plain.FindByTag(ctx, core.TagCondition, "hypertension")
	assert.ErrorIs(t, err, ErrSearchIndexRequired)
}

func TestVerbatim(t *testing.T) {
	tests := []struct {
		text, query string
		want        bool
	}{
		{"Take once daily with food.", "daily food", true},
		{"Take once daily with food.", "the daily", true},
		{"Take once daily.", "twice daily", false},
		{"Anything.", "the of and", false},
		{"Reduces PAIN (acute).", "pain, acute?", true},
		{"Use once-daily dosing.", "daily dosing", true},
		{"Contains 10mg lisinopril.", "10mg", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, verbatim(tt.text, terms(tt.query)))
		})
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"relieves", "pain", "fever"}, terms("Relieves pain and/or fever."))
	assert.Empty(t, terms("the of"))
}
