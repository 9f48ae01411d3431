package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsideai/courtside/internal/rag"
)

func TestFetchContext(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{passages: []rag.Passage{
		{Content: "RC-4 coaches hold an EHF Master Coach licence.", Similarity: 0.91},
		{Content: "Level 3 grants the EHF Coach licence.", Similarity: 0.84},
	}}
	kit := newTestKit(newFakeDocuments(), retriever, nil)

	res, err := kit.FetchContext(toolCtx(nil), FetchContextInput{Query: "coaching licence levels"})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)

	assert.Equal(t, []string{"coaching licence levels"}, retriever.queries)

	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "coaching licence levels", data["query"])
	assert.Equal(t, 2, data["result_count"])
	assert.Equal(t, retriever.passages, data["results"])
}

func TestFetchContextEmptyQuery(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{}
	kit := newTestKit(newFakeDocuments(), retriever, nil)

	res, err := kit.FetchContext(toolCtx(nil), FetchContextInput{Query: "   "})
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrCodeValidation, res.Error.Code)
	assert.Empty(t, retriever.queries)
}

func TestFetchContextNoResults(t *testing.T) {
	t.Parallel()

	// Retrieval failures surface as empty result sets, so the tool
	// still succeeds with zero passages.
	kit := newTestKit(newFakeDocuments(), &fakeRetriever{}, nil)

	res, err := kit.FetchContext(toolCtx(nil), FetchContextInput{Query: "unknown topic"})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)

	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0, data["result_count"])
}
