package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

var chunkRowColumns = []string{"document_id", "name", "slug", "chunk_index", "content", "token_count", "embedding"}

func TestNewVectorStore_RejectsBadDimension(t *testing.T) {
	_, err := NewVectorStore(nil, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestVectorStore_EnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("embedding vector\\(3\\)").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS drug_chunks_document_idx").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store, err := NewVectorStore(mock, 3)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorStore_Upsert(t *testing.T) {
	t.Run("writes every chunk in one transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		chunks := []core.Chunk{
			{DocumentID: "a", DocumentName: "Alpha", Slug: "alpha", Index: 0, Text: "one", TokenCount: 1, Vector: []float32{1, 0}},
			{DocumentID: "a", DocumentName: "Alpha", Slug: "alpha", Index: 1, Text: "two", TokenCount: 1, Vector: []float32{0, 1}},
		}

		mock.ExpectBegin()
		for _, c := range chunks {
			mock.ExpectExec("INSERT INTO drug_chunks").
				WithArgs(chunkRowID(c.DocumentID, c.Index), c.DocumentID, c.DocumentName, c.Slug, c.Index, c.Text, c.TokenCount, pgvector.NewVector(c.Vector)).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
		mock.ExpectCommit()

		store, err := NewVectorStore(mock, 2)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(context.Background(), chunks))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("dimension mismatch touches nothing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store, err := NewVectorStore(mock, 2)
		require.NoError(t, err)
		err = store.Upsert(context.Background(), []core.Chunk{{DocumentID: "a", Text: "x", Vector: []float32{1}}})
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBuildQuery(t *testing.T) {
	sql, args, err := buildQuery([]float32{1, 0}, 5, storage.Filter{
		core.MetaSlug:       "alpha",
		core.MetaDocumentID: "a",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT document_id, name, slug, chunk_index, content, token_count, embedding, 1 - (embedding <=> $1) AS score FROM drug_chunks"+
			" WHERE document_id = $2 AND slug = $3 ORDER BY embedding <=> $1 ASC, id ASC LIMIT $4",
		sql)
	assert.Equal(t, []any{pgvector.NewVector([]float32{1, 0}), "a", "alpha", 5}, args)

	_, _, err = buildQuery([]float32{1}, 1, storage.Filter{"colour": "red"})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestVectorStore_Query(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT document_id, name, slug, chunk_index, content, token_count, embedding, 1 - \\(embedding <=> \\$1\\) AS score").
		WithArgs(pgvector.NewVector([]float32{1, 0}), 2).
		WillReturnRows(pgxmock.NewRows(append(chunkRowColumns, "score")).
			AddRow("a", "Alpha", "alpha", 0, "one", 1, pgvector.NewVector([]float32{1, 0}), float64(1)).
			AddRow("b", "Beta", "beta", 3, "two", 1, pgvector.NewVector([]float32{0.8, 0.6}), float64(0.8)))

	store, err := NewVectorStore(mock, 2)
	require.NoError(t, err)

	matches, err := store.Query(context.Background(), []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Chunk.DocumentID)
	assert.Equal(t, core.ChunkID("b", 3), matches[1].Chunk.ID)
	assert.InDelta(t, 0.8, matches[1].Score, 1e-6)
	assert.Equal(t, []float32{0.8, 0.6}, matches[1].Chunk.Vector)
	assert.NoError(t, mock.ExpectationsWereMet())

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := store.Query(context.Background(), []float32{1, 0}, 0, nil)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
		_, err = store.Query(context.Background(), []float32{1}, 1, nil)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})
}

func TestVectorStore_ByDocumentAndDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("WHERE document_id = \\$1 ORDER BY chunk_index").
		WithArgs("a").
		WillReturnRows(pgxmock.NewRows(chunkRowColumns).
			AddRow("a", "Alpha", "alpha", 0, "one", 1, pgvector.NewVector([]float32{1, 0})).
			AddRow("a", "Alpha", "alpha", 1, "two", 1, pgvector.NewVector([]float32{0, 1})))
	mock.ExpectExec("DELETE FROM drug_chunks WHERE document_id = \\$1").
		WithArgs("a").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	store, err := NewVectorStore(mock, 2)
	require.NoError(t, err)

	chunks, err := store.ByDocument(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, "two", chunks[1].Text)

	require.NoError(t, store.DeleteDocument(context.Background(), "a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
