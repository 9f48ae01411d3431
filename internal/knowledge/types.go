// Package knowledge stores embedded passages of the coaching manual and
// answers similarity queries against them. Vectors live in PostgreSQL
// with pgvector; embeddings come from a Genkit embedder.
package knowledge

import "time"

// VectorDimension is the embedding width the knowledge_chunks table is
// declared with. Embeddings of any other width are rejected before they
// reach the database.
const VectorDimension = 768

// Chunk is one embedded passage of the knowledge base.
type Chunk struct {
	ID        string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Result is a chunk with its similarity to the query.
type Result struct {
	Chunk      Chunk
	Similarity float32
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	filter  map[string]string
	timeout time.Duration
}

const (
	defaultTopK = 5
	maxTopK     = 10

	defaultSearchTimeout = 10 * time.Second
)

// WithTopK sets how many results to return. Values outside [1, 10] are
// clamped.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		switch {
		case k < 1:
			c.topK = 1
		case k > maxTopK:
			c.topK = maxTopK
		default:
			c.topK = k
		}
	}
}

// WithFilter restricts results to chunks whose metadata contains the
// given key/value pair. Repeated calls combine with AND.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout bounds the whole search, embedding call included.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    defaultTopK,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
