package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsideai/courtside/internal/document"
)

func TestDocumentVersions(t *testing.T) {
	t.Parallel()

	docs := newFakeDocStore()
	id := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	docs.versions[id] = []document.Document{
		{ID: id, CreatedAt: base, Title: "Drill plan", Content: "v1", Kind: document.KindText},
		{ID: id, CreatedAt: base.Add(time.Minute), Title: "Drill plan", Content: "v2", Kind: document.KindText},
	}
	srv := newTestServer(serverDeps{docs: docs, owner: uuid.New()})

	rec := doRequest(srv, http.MethodGet, "/document?id="+id.String(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []document.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "v1", got[0].Content)
	assert.Equal(t, "v2", got[1].Content)
}

func TestDocumentVersionsUnknownID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(serverDeps{owner: uuid.New()})

	rec := doRequest(srv, http.MethodGet, "/document?id="+uuid.NewString(), "")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentVersionsMissingID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(serverDeps{owner: uuid.New()})

	rec := doRequest(srv, http.MethodGet, "/document", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestionsByDocument(t *testing.T) {
	t.Parallel()

	docs := newFakeDocStore()
	id := uuid.New()
	docs.suggestions[id] = []document.Suggestion{
		{ID: uuid.New(), DocumentID: id, OriginalText: "run fast", SuggestedText: "sprint in waves"},
	}
	srv := newTestServer(serverDeps{docs: docs, owner: uuid.New()})

	rec := doRequest(srv, http.MethodGet, "/suggestions?documentId="+id.String(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []document.Suggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "sprint in waves", got[0].SuggestedText)
}

func TestSuggestionsEmptyIsJSONArray(t *testing.T) {
	t.Parallel()

	srv := newTestServer(serverDeps{owner: uuid.New()})

	rec := doRequest(srv, http.MethodGet, "/suggestions?documentId="+uuid.NewString(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSuggestionsMissingDocumentID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(serverDeps{owner: uuid.New()})

	rec := doRequest(srv, http.MethodGet, "/suggestions", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
