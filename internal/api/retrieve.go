package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// maxRetrieveBodyBytes bounds the inbound query payload.
const maxRetrieveBodyBytes = 64 << 10

type retrieveHandler struct {
	search Searcher
	logger *slog.Logger
}

type retrieveRequest struct {
	Query string `json:"query"`
}

type retrievedPassage struct {
	Content    string            `json:"content"`
	Similarity float32           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type retrieveResponse struct {
	Results []retrievedPassage `json:"results"`
	Message string             `json:"message,omitempty"`
}

// retrieve answers knowledge base queries. The endpoint always answers
// 200: consumers treat any failure as "no context available", so an
// empty result set with a message carries the same information as a
// status code would.
func (h *retrieveHandler) retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	body := http.MaxBytesReader(w, r.Body, maxRetrieveBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, retrieveResponse{
			Results: []retrievedPassage{},
			Message: "invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusOK, retrieveResponse{
			Results: []retrievedPassage{},
			Message: `Please include a "query" field in your JSON body.`,
		})
		return
	}

	results, err := h.search.Search(r.Context(), req.Query)
	if err != nil {
		h.logger.Warn("knowledge search failed", "error", err)
		writeJSON(w, http.StatusOK, retrieveResponse{
			Results: []retrievedPassage{},
			Message: "search failed",
		})
		return
	}

	passages := make([]retrievedPassage, len(results))
	for i, res := range results {
		passages[i] = retrievedPassage{
			Content:    res.Chunk.Content,
			Similarity: res.Similarity,
			Metadata:   res.Chunk.Metadata,
		}
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Results: passages})
}
