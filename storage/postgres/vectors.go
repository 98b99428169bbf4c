package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// ChunkTable holds embedded chunks.
const ChunkTable = "drug_chunks"

const upsertChunkSQL = `INSERT INTO drug_chunks (id, document_id, name, slug, chunk_index, content, token_count, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    slug = EXCLUDED.slug,
    content = EXCLUDED.content,
    token_count = EXCLUDED.token_count,
    embedding = EXCLUDED.embedding`

const chunkColumns = `document_id, name, slug, chunk_index, content, token_count, embedding`

// filterColumns maps chunk metadata keys onto columns.
var filterColumns = map[string]string{
	core.MetaDocumentID: "document_id",
	core.MetaName:       "name",
	core.MetaSlug:       "slug",
	core.MetaChunkIndex: "chunk_index::text",
}

// VectorStore keeps chunks in a pgvector table and ranks them by cosine
// distance.
type VectorStore struct {
	db        DB
	dimension int
	logger    *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore wraps db. Every stored vector must have dimension entries.
func NewVectorStore(db DB, dimension int) (*VectorStore, error) {
	if dimension < 1 {
		return nil, fmt.Errorf("%w: dimension must be positive", storage.ErrInvalidQuery)
	}
	return &VectorStore{
		db:        db,
		dimension: dimension,
		logger:    slog.Default().With("component", "pgvector"),
	}, nil
}

// EnsureSchema enables the vector extension and creates the chunk table.
func (s *VectorStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			name TEXT,
			slug TEXT,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER,
			embedding vector(%d) NOT NULL
		)`, ChunkTable, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (document_id)`, ChunkTable, ChunkTable),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector: ensure schema: %w", err)
		}
	}
	return nil
}

func chunkRowID(documentID string, index int) string {
	return documentID + "#" + strconv.Itoa(index)
}

// Upsert writes chunks in one transaction. Chunks without vectors are rejected.
func (s *VectorStore) Upsert(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if len(chunks[i].Vector) != s.dimension {
			return fmt.Errorf("%w: chunk %d of %s has %d, store has %d",
				storage.ErrDimensionMismatch, chunks[i].Index, chunks[i].DocumentID, len(chunks[i].Vector), s.dimension)
		}
	}

	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		for i := range chunks {
			c := &chunks[i]
			_, err := tx.Exec(ctx, upsertChunkSQL,
				chunkRowID(c.DocumentID, c.Index),
				c.DocumentID,
				c.DocumentName,
				c.Slug,
				c.Index,
				c.Text,
				c.TokenCount,
				pgvector.NewVector(c.Vector),
			)
			if err != nil {
				return fmt.Errorf("upsert chunk %d of %s: %w", c.Index, c.DocumentID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pgvector: %w", err)
	}
	return nil
}

// Query returns the k chunks closest to vector among those matching filter.
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int, filter storage.Filter) ([]core.ChunkMatch, error) {
	if k < 1 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, store has %d", storage.ErrDimensionMismatch, len(vector), s.dimension)
	}

	sql, args, err := buildQuery(vector, k, filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: query: %w", err)
	}
	defer rows.Close()

	var matches []core.ChunkMatch
	for rows.Next() {
		var score float64
		chunk, err := scanChunk(rows, &score)
		if err != nil {
			return nil, err
		}
		matches = append(matches, core.ChunkMatch{Chunk: chunk, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: iterate rows: %w", err)
	}
	return matches, nil
}

// buildQuery renders the similarity query. Filter keys are applied in sorted
// order so equal filters produce equal SQL.
func buildQuery(vector []float32, k int, filter storage.Filter) (string, []any, error) {
	args := []any{pgvector.NewVector(vector)}
	var where []string

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		column, ok := filterColumns[key]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown filter key %q", storage.ErrInvalidQuery, key)
		}
		args = append(args, filter[key])
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, 1 - (embedding <=> $1) AS score FROM %s", chunkColumns, ChunkTable)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, k)
	fmt.Fprintf(&b, " ORDER BY embedding <=> $1 ASC, id ASC LIMIT $%d", len(args))
	return b.String(), args, nil
}

// ByDocument returns a document's chunks in index order.
func (s *VectorStore) ByDocument(ctx context.Context, documentID string) ([]core.Chunk, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE document_id = $1 ORDER BY chunk_index ASC", chunkColumns, ChunkTable),
		documentID)
	if err != nil {
		return nil, fmt.Errorf("pgvector: by document: %w", err)
	}
	defer rows.Close()

	var chunks []core.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows, nil)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: iterate rows: %w", err)
	}
	return chunks, nil
}

// DeleteDocument removes every chunk of a document.
func (s *VectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	tag, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", ChunkTable), documentID)
	if err != nil {
		return fmt.Errorf("pgvector: delete %s: %w", documentID, err)
	}
	s.logger.Debug("deleted chunks", "document_id", documentID, "rows", tag.RowsAffected())
	return nil
}

// Close is a no-op; the pool belongs to the caller.
func (s *VectorStore) Close() error {
	return nil
}

func scanChunk(rows pgx.Rows, score *float64) (*core.Chunk, error) {
	var (
		c   core.Chunk
		vec pgvector.Vector
	)
	dest := []any{&c.DocumentID, &c.DocumentName, &c.Slug, &c.Index, &c.Text, &c.TokenCount, &vec}
	if score != nil {
		dest = append(dest, score)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("pgvector: scan chunk: %w", err)
	}
	c.ID = core.ChunkID(c.DocumentID, c.Index)
	c.Vector = vec.Slice()
	return &c, nil
}
