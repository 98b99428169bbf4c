package chromem

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/druglabel/ai/mock"
	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk(doc string, index int, vec ...float32) core.Chunk {
	return core.Chunk{
		ID:           core.ChunkID(doc, index),
		DocumentID:   doc,
		DocumentName: "Drug " + doc,
		Slug:         "drug-" + doc,
		Index:        index,
		Text:         "chunk " + doc,
		TokenCount:   2,
		Vector:       vec,
	}
}

func seeded(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(context.Background(), []core.Chunk{
		testChunk("a", 0, 1, 0),
		testChunk("a", 1, 0.6, 0.8),
		testChunk("b", 0, 0, 1),
	}))
	return s
}

func TestStore_Query(t *testing.T) {
	s := seeded(t, "")
	ctx := context.Background()

	matches, err := s.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "a", matches[0].Chunk.DocumentID)
	assert.Equal(t, 0, matches[0].Chunk.Index)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Equal(t, 1, matches[1].Chunk.Index)
	assert.Equal(t, "b", matches[2].Chunk.DocumentID)
	assert.Equal(t, "drug-b", matches[2].Chunk.Slug)
	assert.Equal(t, 2, matches[2].Chunk.TokenCount)
	assert.Equal(t, core.ChunkID("b", 0), matches[2].Chunk.ID)

	filtered, err := s.Query(ctx, []float32{1, 0}, 1, storage.Filter{core.MetaDocumentID: "b"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "b", filtered[0].Chunk.DocumentID)

	_, err = s.Query(ctx, nil, 1, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	_, err = s.Query(ctx, []float32{1, 0, 0}, 1, nil)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestStore_EmptyQuery(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	matches, err := s.Query(context.Background(), []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_ByDocumentAndDelete(t *testing.T) {
	s := seeded(t, "")
	ctx := context.Background()

	chunks, err := s.ByDocument(ctx, "a")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)

	require.NoError(t, s.DeleteDocument(ctx, "a"))
	chunks, err = s.ByDocument(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 1, s.Count())
}

func TestStore_UpsertReplaces(t *testing.T) {
	s := seeded(t, "")
	ctx := context.Background()

	replacement := testChunk("b", 0, 1, 0)
	replacement.Text = "replaced"
	require.NoError(t, s.Upsert(ctx, []core.Chunk{replacement}))

	chunks, err := s.ByDocument(ctx, "b")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "replaced", chunks[0].Text)
	assert.Equal(t, 3, s.Count())
}

func TestStore_DimensionMismatch(t *testing.T) {
	s := seeded(t, "")
	err := s.Upsert(context.Background(), []core.Chunk{testChunk("c", 0, 1, 0, 0)})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestStore_EmbedsMissingVectors(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 4
	s, err := Open("", WithEmbedder(embedder))
	require.NoError(t, err)

	require.NoError(t, s.Upsert(context.Background(), []core.Chunk{testChunk("a", 0)}))
	assert.Equal(t, 1, embedder.CallCount())

	chunks, err := s.ByDocument(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0].Vector, 4)
}

func TestStore_ExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.gob")
	s := seeded(t, path)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Count())

	matches, err := reopened.Query(context.Background(), []float32{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].Chunk.DocumentID)
}
