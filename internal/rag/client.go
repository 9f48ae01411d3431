// Package rag retrieves grounding passages for a chat turn and folds
// them into the system prompt.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Passage is one retrieved snippet of the knowledge base.
type Passage struct {
	Content    string            `json:"content"`
	Similarity float32           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// retrieveRequest is the wire request of POST /retrieve.
type retrieveRequest struct {
	Query string `json:"query"`
}

// retrieveResponse is the wire response of POST /retrieve.
type retrieveResponse struct {
	Results []Passage `json:"results"`
	Message string    `json:"message,omitempty"`
}

const (
	retrievePath   = "/retrieve"
	defaultTimeout = 15 * time.Second

	// maxResponseBytes bounds how much of the retrieval response we
	// will read. Passages are short; anything bigger is broken.
	maxResponseBytes = 4 << 20
)

// Client calls the retrieval endpoint. Retrieval is best-effort: every
// failure is logged and surfaces as an empty passage list, never as a
// turn-level error.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the retrieval service at baseURL.
// httpClient and logger may be nil.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// Retrieve fetches passages for the query. It never returns an error:
// on any failure it logs and returns nil so the turn proceeds
// ungrounded.
func (c *Client) Retrieve(ctx context.Context, query string) []Passage {
	if c.baseURL == "" || strings.TrimSpace(query) == "" {
		return nil
	}

	body, err := json.Marshal(retrieveRequest{Query: query})
	if err != nil {
		c.logger.Warn("retrieval request marshal failed", "error", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+retrievePath, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("retrieval request build failed", "error", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("retrieval call failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("retrieval returned non-200", "status", resp.StatusCode)
		return nil
	}

	var decoded retrieveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		c.logger.Warn("retrieval response decode failed", "error", err)
		return nil
	}
	if decoded.Message != "" {
		c.logger.Debug("retrieval message", "message", decoded.Message)
	}

	c.logger.Debug("retrieved passages", "count", len(decoded.Results),
		"query_length", len(query))
	return decoded.Results
}

// String identifies the client in logs.
func (c *Client) String() string {
	return fmt.Sprintf("rag.Client(%s)", c.baseURL)
}
