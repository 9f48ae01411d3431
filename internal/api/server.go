// Package api exposes the chat service over HTTP: the streaming /chat
// endpoint, the /retrieve search endpoint, and the persistence reads
// the client UI needs. Handlers translate sentinel errors to status
// codes; everything after the stream starts is reported in-band.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/chat"
	"github.com/courtsideai/courtside/internal/document"
	"github.com/courtsideai/courtside/internal/knowledge"
	"github.com/courtsideai/courtside/internal/orchestrator"
	"github.com/courtsideai/courtside/internal/stream"
)

// Turns starts validated chat turns. Satisfied by the adapter around
// *orchestrator.Orchestrator; tests substitute fakes.
type Turns interface {
	NewTurn(ctx context.Context, req orchestrator.TurnRequest) (TurnRunner, error)
}

// TurnRunner executes one validated turn.
type TurnRunner interface {
	Run(ctx context.Context, emitter stream.Emitter) error
}

// ChatStore is the chat persistence surface the read/delete handlers
// need. *chat.Store satisfies it.
type ChatStore interface {
	ChatByID(ctx context.Context, id uuid.UUID) (chat.Chat, error)
	ChatsByOwner(ctx context.Context, owner uuid.UUID) ([]chat.Chat, error)
	DeleteChat(ctx context.Context, id uuid.UUID) error
	UpsertVote(ctx context.Context, chatID, messageID uuid.UUID, isUpvoted bool) error
	VotesByChat(ctx context.Context, chatID uuid.UUID) ([]chat.Vote, error)
}

// DocumentStore is the document read surface. *document.Store
// satisfies it.
type DocumentStore interface {
	VersionsByID(ctx context.Context, id uuid.UUID) ([]document.Document, error)
	SuggestionsByDocument(ctx context.Context, id uuid.UUID) ([]document.Suggestion, error)
}

// Searcher answers retrieval queries. *knowledge.Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// ServerConfig contains the dependencies for NewServer.
type ServerConfig struct {
	Logger    *slog.Logger
	Turns     Turns         // Required
	Chats     ChatStore     // Required
	Documents DocumentStore // Required
	Search    Searcher      // Required

	// Owner is the single configured identity injected into every
	// request.
	Owner uuid.UUID

	// TrustProxy trusts X-Real-IP/X-Forwarded-For for rate limiting.
	TrustProxy bool

	// RateRPS is the per-IP refill rate on POST /chat. 0 means 1.
	RateRPS float64

	// RateBurst is the per-IP burst on POST /chat. 0 means 10.
	RateBurst int
}

// Server is the HTTP API server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Turns == nil {
		return nil, errors.New("turn starter is required")
	}
	if cfg.Chats == nil {
		return nil, errors.New("chat store is required")
	}
	if cfg.Documents == nil {
		return nil, errors.New("document store is required")
	}
	if cfg.Search == nil {
		return nil, errors.New("searcher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{turns: cfg.Turns, chats: cfg.Chats, logger: logger}
	rh := &retrieveHandler{search: cfg.Search, logger: logger}
	hh := &historyHandler{chats: cfg.Chats, logger: logger}
	vh := &voteHandler{chats: cfg.Chats, logger: logger}
	dh := &documentHandler{documents: cfg.Documents, logger: logger}

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 1.0
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	rl := newRateLimiter(rps, burst)

	mux := http.NewServeMux()
	mux.Handle("POST /chat", rateLimitMiddleware(rl, cfg.TrustProxy, logger)(http.HandlerFunc(ch.send)))
	mux.HandleFunc("DELETE /chat", ch.delete)
	mux.HandleFunc("POST /retrieve", rh.retrieve)
	mux.HandleFunc("GET /history", hh.list)
	mux.HandleFunc("GET /vote", vh.list)
	mux.HandleFunc("PATCH /vote", vh.upsert)
	mux.HandleFunc("GET /document", dh.versions)
	mux.HandleFunc("GET /suggestions", dh.suggestions)

	// Middleware stack, outermost first:
	//   Recovery -> Logging -> Identity -> Routes
	var handler http.Handler = mux
	handler = identityMiddleware(cfg.Owner)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	top := http.NewServeMux()
	top.HandleFunc("GET /health", health)
	top.Handle("/", handler)

	return &Server{mux: top}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
