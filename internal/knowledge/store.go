package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// QueryAnchor is prepended to every search query before embedding. The
// corpus is a single domain manual, and anchoring the query in it keeps
// short or vague questions from drifting toward unrelated senses of a
// term.
const QueryAnchor = "EHF RINCK Convention: "

// Querier is the query surface the store needs. *Queries satisfies it;
// tests swap in a fake.
type Querier interface {
	UpsertChunk(ctx context.Context, arg UpsertChunkParams) error
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error)
	SearchChunksAll(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error)
	CountChunks(ctx context.Context, filterMetadata []byte) (int64, error)
	CountChunksAll(ctx context.Context) (int64, error)
	DeleteChunk(ctx context.Context, id string) error
}

// Store manages the embedded knowledge base.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. logger may be nil.
func New(queries Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: queries, embedder: embedder, logger: logger}
}

// Add embeds the chunk's content and upserts it.
func (s *Store) Add(ctx context.Context, chunk Chunk) error {
	if chunk.ID == "" {
		return errors.New("chunk id must not be empty")
	}

	vec, err := s.embed(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
	}

	metadata := chunk.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata of %q: %w", chunk.ID, err)
	}

	err = s.queries.UpsertChunk(ctx, UpsertChunkParams{
		ID:        chunk.ID,
		Content:   chunk.Content,
		Embedding: vec,
		Metadata:  metadataJSON,
		CreatedAt: pgtype.Timestamptz{Time: chunk.CreatedAt, Valid: !chunk.CreatedAt.IsZero()},
	})
	if err != nil {
		return fmt.Errorf("upserting chunk %q: %w", chunk.ID, err)
	}

	s.logger.Debug("added chunk", "id", chunk.ID, "content_length", len(chunk.Content))
	return nil
}

// Search embeds the query and returns the most similar chunks, best
// first. The query is anchored with QueryAnchor before embedding.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vec, err := s.embed(queryCtx, QueryAnchor+query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding query: timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var rows []SearchChunksRow
	if len(cfg.filter) > 0 {
		filterJSON, err := json.Marshal(cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("marshaling filter: %w", err)
		}
		rows, err = s.queries.SearchChunks(queryCtx, SearchChunksParams{
			QueryEmbedding: vec,
			FilterMetadata: filterJSON,
			ResultLimit:    int32(cfg.topK),
		})
		if err != nil {
			return nil, searchErr(err)
		}
	} else {
		rows, err = s.queries.SearchChunksAll(queryCtx, SearchChunksParams{
			QueryEmbedding: vec,
			ResultLimit:    int32(cfg.topK),
		})
		if err != nil {
			return nil, searchErr(err)
		}
	}

	return s.rowsToResults(rows), nil
}

// Count returns the number of chunks matching the filter, or all chunks
// when filter is empty.
func (s *Store) Count(ctx context.Context, filter map[string]string) (int, error) {
	var count int64
	var err error

	if len(filter) > 0 {
		filterJSON, marshalErr := json.Marshal(filter)
		if marshalErr != nil {
			return 0, fmt.Errorf("marshaling filter: %w", marshalErr)
		}
		count, err = s.queries.CountChunks(ctx, filterJSON)
	} else {
		count, err = s.queries.CountChunksAll(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}

	if count > math.MaxInt {
		return 0, fmt.Errorf("chunk count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Delete removes one chunk.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.queries.DeleteChunk(ctx, id); err != nil {
		return fmt.Errorf("deleting chunk %q: %w", id, err)
	}
	s.logger.Debug("deleted chunk", "id", id)
	return nil
}

// embed runs text through the embedder and validates the vector width.
func (s *Store) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("embedder returned no embedding")
	}
	embedding := resp.Embeddings[0].Embedding
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(embedding), VectorDimension)
	}
	vec := pgvector.NewVector(embedding)
	return &vec, nil
}

func (s *Store) rowsToResults(rows []SearchChunksRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("unparsable chunk metadata", "chunk_id", row.ID, "error", err)
			metadata = map[string]string{}
		}

		var createdAt time.Time
		if row.CreatedAt.Valid {
			createdAt = row.CreatedAt.Time
		}

		results = append(results, Result{
			Chunk: Chunk{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  metadata,
				CreatedAt: createdAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results
}

func searchErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("vector search: timeout: %w", err)
	}
	return fmt.Errorf("vector search: %w", err)
}
