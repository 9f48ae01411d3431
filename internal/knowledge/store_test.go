package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsideai/courtside/internal/log"
)

// fakeEmbedder returns a fixed-width vector and records the texts it saw.
type fakeEmbedder struct {
	dimension int
	inputs    []string
	err       error
}

func (f *fakeEmbedder) Name() string { return "fake-embedder" }

func (f *fakeEmbedder) Register(_ api.Registry) {}

func (f *fakeEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, doc := range req.Input {
		var sb strings.Builder
		for _, p := range doc.Content {
			sb.WriteString(p.Text)
		}
		f.inputs = append(f.inputs, sb.String())
	}
	return &ai.EmbedResponse{
		Embeddings: []*ai.Embedding{{Embedding: make([]float32, f.dimension)}},
	}, nil
}

// fakeQuerier records calls and serves canned rows.
type fakeQuerier struct {
	chunks      map[string]UpsertChunkParams
	searchRows  []SearchChunksRow
	lastParams  SearchChunksParams
	filtered    bool
	searchCalls int
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{chunks: make(map[string]UpsertChunkParams)}
}

func (f *fakeQuerier) UpsertChunk(_ context.Context, arg UpsertChunkParams) error {
	f.chunks[arg.ID] = arg
	return nil
}

func (f *fakeQuerier) SearchChunks(_ context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	f.searchCalls++
	f.lastParams = arg
	f.filtered = true
	return f.searchRows, nil
}

func (f *fakeQuerier) SearchChunksAll(_ context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	f.searchCalls++
	f.lastParams = arg
	f.filtered = false
	return f.searchRows, nil
}

func (f *fakeQuerier) CountChunks(_ context.Context, _ []byte) (int64, error) {
	return int64(len(f.chunks)), nil
}

func (f *fakeQuerier) CountChunksAll(_ context.Context) (int64, error) {
	return int64(len(f.chunks)), nil
}

func (f *fakeQuerier) DeleteChunk(_ context.Context, id string) error {
	delete(f.chunks, id)
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeQuerier, *fakeEmbedder) {
	t.Helper()
	q := newFakeQuerier()
	e := &fakeEmbedder{dimension: VectorDimension}
	return New(q, e, log.NewNop()), q, e
}

func TestAddUpserts(t *testing.T) {
	t.Parallel()

	s, q, _ := newTestStore(t)
	ctx := context.Background()

	err := s.Add(ctx, Chunk{
		ID:       "rinck-3-1",
		Content:  "Coaches at level two must complete 60 hours of supervised practice.",
		Metadata: map[string]string{"section": "3.1"},
	})
	require.NoError(t, err)

	stored, ok := q.chunks["rinck-3-1"]
	require.True(t, ok)
	assert.NotNil(t, stored.Embedding)

	var metadata map[string]string
	require.NoError(t, json.Unmarshal(stored.Metadata, &metadata))
	assert.Equal(t, "3.1", metadata["section"])
}

func TestAddRequiresID(t *testing.T) {
	t.Parallel()

	s, q, _ := newTestStore(t)
	err := s.Add(context.Background(), Chunk{Content: "orphan"})
	require.Error(t, err)
	assert.Empty(t, q.chunks)
}

func TestAddRejectsWrongDimension(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	e := &fakeEmbedder{dimension: 512}
	s := New(q, e, log.NewNop())

	err := s.Add(context.Background(), Chunk{ID: "x", Content: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "512")
	assert.Empty(t, q.chunks)
}

func TestSearchAnchorsQuery(t *testing.T) {
	t.Parallel()

	s, _, e := newTestStore(t)
	_, err := s.Search(context.Background(), "passive play rules")
	require.NoError(t, err)

	require.Len(t, e.inputs, 1)
	assert.Equal(t, QueryAnchor+"passive play rules", e.inputs[0])
}

func TestSearchDefaultsToTopFive(t *testing.T) {
	t.Parallel()

	s, q, _ := newTestStore(t)
	_, err := s.Search(context.Background(), "substitution rules")
	require.NoError(t, err)

	assert.False(t, q.filtered)
	assert.Equal(t, int32(5), q.lastParams.ResultLimit)
}

func TestSearchClampsTopK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		topK int
		want int32
	}{
		{name: "below range", topK: 0, want: 1},
		{name: "in range", topK: 7, want: 7},
		{name: "above range", topK: 50, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, q, _ := newTestStore(t)
			_, err := s.Search(context.Background(), "goalkeeper training", WithTopK(tt.topK))
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.lastParams.ResultLimit)
		})
	}
}

func TestSearchWithFilter(t *testing.T) {
	t.Parallel()

	s, q, _ := newTestStore(t)
	_, err := s.Search(context.Background(), "age categories",
		WithFilter("section", "4"), WithFilter("kind", "table"))
	require.NoError(t, err)

	require.True(t, q.filtered)
	var filter map[string]string
	require.NoError(t, json.Unmarshal(q.lastParams.FilterMetadata, &filter))
	assert.Equal(t, map[string]string{"section": "4", "kind": "table"}, filter)
}

func TestSearchResultsCarrySimilarity(t *testing.T) {
	t.Parallel()

	s, q, _ := newTestStore(t)
	q.searchRows = []SearchChunksRow{
		{ID: "a", Content: "first", Metadata: []byte(`{"section":"1"}`), Similarity: 0.91},
		{ID: "b", Content: "second", Metadata: []byte(`{}`), Similarity: 0.74},
	}

	results, err := s.Search(context.Background(), "court dimensions")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.InDelta(t, 0.91, float64(results[0].Similarity), 1e-6)
	assert.Equal(t, "1", results[0].Chunk.Metadata["section"])
}

func TestSearchToleratesBadMetadata(t *testing.T) {
	t.Parallel()

	s, q, _ := newTestStore(t)
	q.searchRows = []SearchChunksRow{
		{ID: "a", Content: "c", Metadata: []byte(`not json`), Similarity: 0.5},
	}

	results, err := s.Search(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].Chunk.Metadata)
	assert.Empty(t, results[0].Chunk.Metadata)
}

func TestSearchEmbedderFailure(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	e := &fakeEmbedder{dimension: VectorDimension, err: errors.New("quota exhausted")}
	s := New(q, e, log.NewNop())

	_, err := s.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Zero(t, q.searchCalls)
}

func TestCountAndDelete(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, Chunk{ID: "a", Content: "x", CreatedAt: time.Now()}))
	require.NoError(t, s.Add(ctx, Chunk{ID: "b", Content: "y"}))

	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, "a"))
	n, err = s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
