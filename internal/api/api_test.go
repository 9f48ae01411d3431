package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/courtsideai/courtside/internal/chat"
	"github.com/courtsideai/courtside/internal/document"
	"github.com/courtsideai/courtside/internal/knowledge"
	"github.com/courtsideai/courtside/internal/log"
	"github.com/courtsideai/courtside/internal/orchestrator"
	"github.com/courtsideai/courtside/internal/stream"
)

// Handlers must not leak goroutines across requests; SSE streaming and
// the rate limiter are the usual suspects.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// fakeTurns scripts turn creation and execution.
type fakeTurns struct {
	newErr error
	runErr error
	events []stream.Event
	reqs   []orchestrator.TurnRequest
}

func (f *fakeTurns) NewTurn(_ context.Context, req orchestrator.TurnRequest) (TurnRunner, error) {
	f.reqs = append(f.reqs, req)
	if f.newErr != nil {
		return nil, f.newErr
	}
	return &fakeTurn{events: f.events, err: f.runErr}, nil
}

type fakeTurn struct {
	events []stream.Event
	err    error
}

func (t *fakeTurn) Run(_ context.Context, emitter stream.Emitter) error {
	for _, ev := range t.events {
		_ = emitter.Emit(ev)
	}
	return t.err
}

// fakeChatStore is an in-memory ChatStore.
type fakeChatStore struct {
	chats     map[uuid.UUID]chat.Chat
	votes     map[uuid.UUID][]chat.Vote
	deleted   []uuid.UUID
	listErr   error
	deleteErr error
	voteErr   error
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		chats: make(map[uuid.UUID]chat.Chat),
		votes: make(map[uuid.UUID][]chat.Vote),
	}
}

func (f *fakeChatStore) ChatByID(_ context.Context, id uuid.UUID) (chat.Chat, error) {
	c, ok := f.chats[id]
	if !ok {
		return chat.Chat{}, chat.ErrNotFound
	}
	return c, nil
}

func (f *fakeChatStore) ChatsByOwner(_ context.Context, owner uuid.UUID) ([]chat.Chat, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []chat.Chat
	for _, c := range f.chats {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChatStore) DeleteChat(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.chats, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeChatStore) UpsertVote(_ context.Context, chatID, messageID uuid.UUID, isUpvoted bool) error {
	if f.voteErr != nil {
		return f.voteErr
	}
	votes := f.votes[chatID]
	for i, v := range votes {
		if v.MessageID == messageID {
			votes[i].IsUpvoted = isUpvoted
			return nil
		}
	}
	f.votes[chatID] = append(votes, chat.Vote{ChatID: chatID, MessageID: messageID, IsUpvoted: isUpvoted})
	return nil
}

func (f *fakeChatStore) VotesByChat(_ context.Context, chatID uuid.UUID) ([]chat.Vote, error) {
	return f.votes[chatID], nil
}

// fakeDocStore is an in-memory DocumentStore.
type fakeDocStore struct {
	versions    map[uuid.UUID][]document.Document
	suggestions map[uuid.UUID][]document.Suggestion
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		versions:    make(map[uuid.UUID][]document.Document),
		suggestions: make(map[uuid.UUID][]document.Suggestion),
	}
}

func (f *fakeDocStore) VersionsByID(_ context.Context, id uuid.UUID) ([]document.Document, error) {
	return f.versions[id], nil
}

func (f *fakeDocStore) SuggestionsByDocument(_ context.Context, id uuid.UUID) ([]document.Suggestion, error) {
	return f.suggestions[id], nil
}

// fakeSearcher scripts knowledge search results.
type fakeSearcher struct {
	results []knowledge.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ ...knowledge.SearchOption) ([]knowledge.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type serverDeps struct {
	turns  *fakeTurns
	chats  *fakeChatStore
	docs   *fakeDocStore
	search *fakeSearcher
	owner  uuid.UUID
}

func newTestServer(deps serverDeps) *Server {
	if deps.turns == nil {
		deps.turns = &fakeTurns{}
	}
	if deps.chats == nil {
		deps.chats = newFakeChatStore()
	}
	if deps.docs == nil {
		deps.docs = newFakeDocStore()
	}
	if deps.search == nil {
		deps.search = &fakeSearcher{}
	}
	srv, err := NewServer(ServerConfig{
		Logger:    log.NewNop(),
		Turns:     deps.turns,
		Chats:     deps.chats,
		Documents: deps.docs,
		Search:    deps.search,
		Owner:     deps.owner,
		RateBurst: 100,
	})
	if err != nil {
		panic(err)
	}
	return srv
}

func doRequest(srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func seedChat(store *fakeChatStore, owner uuid.UUID) chat.Chat {
	c := chat.Chat{
		ID:         uuid.New(),
		Title:      "Pivot training",
		OwnerID:    owner,
		Visibility: chat.VisibilityPrivate,
		CreatedAt:  time.Now(),
	}
	store.chats[c.ID] = c
	return c
}

var errStore = errors.New("storage failed")
