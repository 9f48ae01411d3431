package knowledge

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the store's SQL against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// UpsertChunkParams are the inputs for UpsertChunk.
type UpsertChunkParams struct {
	ID        string
	Content   string
	Embedding *pgvector.Vector
	Metadata  []byte
	CreatedAt pgtype.Timestamptz
}

const upsertChunkSQL = `
INSERT INTO knowledge_chunks (id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()))
ON CONFLICT (id) DO UPDATE SET
	content = EXCLUDED.content,
	embedding = EXCLUDED.embedding,
	metadata = EXCLUDED.metadata`

// UpsertChunk inserts a chunk or replaces its content and embedding.
func (q *Queries) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	var createdAt any
	if arg.CreatedAt.Valid {
		createdAt = arg.CreatedAt
	}
	_, err := q.db.Exec(ctx, upsertChunkSQL,
		arg.ID, arg.Content, arg.Embedding, arg.Metadata, createdAt)
	return err
}

// SearchChunksParams are the inputs for SearchChunks.
type SearchChunksParams struct {
	QueryEmbedding *pgvector.Vector
	FilterMetadata []byte
	ResultLimit    int32
}

// SearchChunksRow is one vector search hit.
type SearchChunksRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float32
}

const searchChunksSQL = `
SELECT id, content, metadata, created_at,
	1 - (embedding <=> $1) AS similarity
FROM knowledge_chunks
WHERE metadata @> $2
ORDER BY embedding <=> $1
LIMIT $3`

// SearchChunks performs cosine similarity search restricted to chunks
// whose metadata contains the filter document.
func (q *Queries) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	rows, err := q.db.Query(ctx, searchChunksSQL,
		arg.QueryEmbedding, arg.FilterMetadata, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSearchRows(rows)
}

const searchChunksAllSQL = `
SELECT id, content, metadata, created_at,
	1 - (embedding <=> $1) AS similarity
FROM knowledge_chunks
ORDER BY embedding <=> $1
LIMIT $2`

// SearchChunksAll performs unfiltered cosine similarity search.
func (q *Queries) SearchChunksAll(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	rows, err := q.db.Query(ctx, searchChunksAllSQL, arg.QueryEmbedding, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSearchRows(rows)
}

const countChunksSQL = `SELECT count(*) FROM knowledge_chunks WHERE metadata @> $1`

// CountChunks counts chunks whose metadata contains the filter document.
func (q *Queries) CountChunks(ctx context.Context, filterMetadata []byte) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countChunksSQL, filterMetadata).Scan(&n)
	return n, err
}

const countChunksAllSQL = `SELECT count(*) FROM knowledge_chunks`

// CountChunksAll counts every chunk.
func (q *Queries) CountChunksAll(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countChunksAllSQL).Scan(&n)
	return n, err
}

const deleteChunkSQL = `DELETE FROM knowledge_chunks WHERE id = $1`

// DeleteChunk removes one chunk.
func (q *Queries) DeleteChunk(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteChunkSQL, id)
	return err
}

func scanSearchRows(rows pgx.Rows) ([]SearchChunksRow, error) {
	var out []SearchChunksRow
	for rows.Next() {
		var r SearchChunksRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
