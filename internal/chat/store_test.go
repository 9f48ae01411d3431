package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsideai/courtside/internal/log"
)

// fakeQuerier is an in-memory Querier recording call order.
type fakeQuerier struct {
	chats    map[uuid.UUID]Chat
	messages map[uuid.UUID]Message
	votes    map[[2]uuid.UUID]Vote
	calls    []string

	failOn string // method name that should return an error
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		chats:    make(map[uuid.UUID]Chat),
		messages: make(map[uuid.UUID]Message),
		votes:    make(map[[2]uuid.UUID]Vote),
	}
}

var errFake = errors.New("fake failure")

func (f *fakeQuerier) record(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return errFake
	}
	return nil
}

func (f *fakeQuerier) CreateChat(_ context.Context, arg CreateChatParams) (Chat, error) {
	if err := f.record("CreateChat"); err != nil {
		return Chat{}, err
	}
	c := Chat{ID: arg.ID, Title: arg.Title, OwnerID: arg.OwnerID, Visibility: arg.Visibility, CreatedAt: time.Now()}
	f.chats[arg.ID] = c
	return c, nil
}

func (f *fakeQuerier) GetChat(_ context.Context, id uuid.UUID) (Chat, error) {
	if err := f.record("GetChat"); err != nil {
		return Chat{}, err
	}
	c, ok := f.chats[id]
	if !ok {
		return Chat{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeQuerier) ListChatsByOwner(_ context.Context, owner uuid.UUID) ([]Chat, error) {
	if err := f.record("ListChatsByOwner"); err != nil {
		return nil, err
	}
	var out []Chat
	for _, c := range f.chats {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeQuerier) UpdateChatVisibility(_ context.Context, id uuid.UUID, v Visibility) error {
	if err := f.record("UpdateChatVisibility"); err != nil {
		return err
	}
	c, ok := f.chats[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Visibility = v
	f.chats[id] = c
	return nil
}

func (f *fakeQuerier) ChatExists(_ context.Context, id uuid.UUID) (bool, error) {
	if err := f.record("ChatExists"); err != nil {
		return false, err
	}
	_, ok := f.chats[id]
	return ok, nil
}

func (f *fakeQuerier) DeleteChat(_ context.Context, id uuid.UUID) error {
	if err := f.record("DeleteChat"); err != nil {
		return err
	}
	delete(f.chats, id)
	return nil
}

func (f *fakeQuerier) InsertMessage(_ context.Context, arg InsertMessageParams) error {
	if err := f.record("InsertMessage"); err != nil {
		return err
	}
	f.messages[arg.ID] = Message{ID: arg.ID, ChatID: arg.ChatID, Role: arg.Role, Content: arg.Content, CreatedAt: arg.CreatedAt}
	return nil
}

func (f *fakeQuerier) GetMessage(_ context.Context, id uuid.UUID) (Message, error) {
	if err := f.record("GetMessage"); err != nil {
		return Message{}, err
	}
	m, ok := f.messages[id]
	if !ok {
		return Message{}, pgx.ErrNoRows
	}
	return m, nil
}

func (f *fakeQuerier) ListMessages(_ context.Context, chatID uuid.UUID) ([]Message, error) {
	if err := f.record("ListMessages"); err != nil {
		return nil, err
	}
	var out []Message
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeQuerier) DeleteVotesByChat(_ context.Context, chatID uuid.UUID) error {
	if err := f.record("DeleteVotesByChat"); err != nil {
		return err
	}
	for k := range f.votes {
		if k[0] == chatID {
			delete(f.votes, k)
		}
	}
	return nil
}

func (f *fakeQuerier) DeleteMessagesByChat(_ context.Context, chatID uuid.UUID) error {
	if err := f.record("DeleteMessagesByChat"); err != nil {
		return err
	}
	for id, m := range f.messages {
		if m.ChatID == chatID {
			delete(f.messages, id)
		}
	}
	return nil
}

func (f *fakeQuerier) DeleteVotesForMessagesAfter(_ context.Context, chatID uuid.UUID, ts time.Time) error {
	if err := f.record("DeleteVotesForMessagesAfter"); err != nil {
		return err
	}
	for k := range f.votes {
		m, ok := f.messages[k[1]]
		if ok && m.ChatID == chatID && !m.CreatedAt.Before(ts) {
			delete(f.votes, k)
		}
	}
	return nil
}

func (f *fakeQuerier) DeleteMessagesAfter(_ context.Context, chatID uuid.UUID, ts time.Time) error {
	if err := f.record("DeleteMessagesAfter"); err != nil {
		return err
	}
	for id, m := range f.messages {
		if m.ChatID == chatID && !m.CreatedAt.Before(ts) {
			delete(f.messages, id)
		}
	}
	return nil
}

func (f *fakeQuerier) UpsertVote(_ context.Context, v Vote) error {
	if err := f.record("UpsertVote"); err != nil {
		return err
	}
	f.votes[[2]uuid.UUID{v.ChatID, v.MessageID}] = v
	return nil
}

func (f *fakeQuerier) ListVotes(_ context.Context, chatID uuid.UUID) ([]Vote, error) {
	if err := f.record("ListVotes"); err != nil {
		return nil, err
	}
	var out []Vote
	for _, v := range f.votes {
		if v.ChatID == chatID {
			out = append(out, v)
		}
	}
	return out, nil
}

func newTestStore(t *testing.T) (*Store, *fakeQuerier) {
	t.Helper()
	q := newFakeQuerier()
	return NewStore(q, nil, log.NewNop()), q
}

func TestChatByIDNotFound(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	_, err := s.ChatByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateAndGetChat(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	id, owner := uuid.New(), uuid.New()
	created, err := s.CreateChat(ctx, id, "Defensive transitions", owner)
	require.NoError(t, err)
	assert.Equal(t, VisibilityPrivate, created.Visibility)

	got, err := s.ChatByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Defensive transitions", got.Title)
	assert.Equal(t, owner, got.OwnerID)
}

func TestDeleteChatOrder(t *testing.T) {
	t.Parallel()

	s, q := newTestStore(t)
	ctx := context.Background()

	id := uuid.New()
	q.chats[id] = Chat{ID: id}

	require.NoError(t, s.DeleteChat(ctx, id))

	// Votes must go before messages, messages before the chat row.
	assert.Equal(t, []string{"DeleteVotesByChat", "DeleteMessagesByChat", "DeleteChat"}, q.calls)
}

func TestDeleteChatStopsOnFailure(t *testing.T) {
	t.Parallel()

	s, q := newTestStore(t)
	q.failOn = "DeleteMessagesByChat"
	id := uuid.New()
	q.chats[id] = Chat{ID: id}

	err := s.DeleteChat(context.Background(), id)
	require.Error(t, err)
	// The chat row was not touched after the failure.
	assert.NotContains(t, q.calls, "DeleteChat")
}

func TestSaveMessagesReferentialCheck(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.SaveMessages(ctx, []Message{
		{ID: uuid.New(), ChatID: uuid.New(), Role: RoleUser, Content: "hi"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChatMissing))
}

func TestSaveMessages(t *testing.T) {
	t.Parallel()

	s, q := newTestStore(t)
	ctx := context.Background()

	chatID := uuid.New()
	q.chats[chatID] = Chat{ID: chatID}

	msgs := []Message{
		{ID: uuid.New(), ChatID: chatID, Role: RoleUser, Content: "what is passive play?", CreatedAt: time.Now()},
		{ID: uuid.New(), ChatID: chatID, Role: RoleAssistant, Content: "Passive play is...", CreatedAt: time.Now()},
	}
	require.NoError(t, s.SaveMessages(ctx, msgs))
	assert.Len(t, q.messages, 2)
}

func TestSaveMessagesEmptyBatch(t *testing.T) {
	t.Parallel()

	s, q := newTestStore(t)
	require.NoError(t, s.SaveMessages(context.Background(), nil))
	assert.Empty(t, q.calls)
}

func TestUpsertVoteLastWriteWins(t *testing.T) {
	t.Parallel()

	s, q := newTestStore(t)
	ctx := context.Background()

	chatID, messageID := uuid.New(), uuid.New()
	require.NoError(t, s.UpsertVote(ctx, chatID, messageID, true))
	require.NoError(t, s.UpsertVote(ctx, chatID, messageID, false))

	votes, err := s.VotesByChat(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.False(t, votes[0].IsUpvoted)
	assert.Len(t, q.votes, 1)
}

func TestUpdateVisibilityRejectsUnknownValue(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	err := s.UpdateVisibility(context.Background(), uuid.New(), Visibility("internal"))
	assert.Error(t, err)
}

func TestDeleteMessagesAfterOrder(t *testing.T) {
	t.Parallel()

	s, q := newTestStore(t)
	ctx := context.Background()

	chatID := uuid.New()
	cutoff := time.Now()

	old := Message{ID: uuid.New(), ChatID: chatID, CreatedAt: cutoff.Add(-time.Hour)}
	recent := Message{ID: uuid.New(), ChatID: chatID, CreatedAt: cutoff.Add(time.Hour)}
	q.messages[old.ID] = old
	q.messages[recent.ID] = recent
	q.votes[[2]uuid.UUID{chatID, recent.ID}] = Vote{ChatID: chatID, MessageID: recent.ID, IsUpvoted: true}

	require.NoError(t, s.DeleteMessagesAfter(ctx, chatID, cutoff))

	assert.Equal(t, []string{"DeleteVotesForMessagesAfter", "DeleteMessagesAfter"}, q.calls)
	assert.Contains(t, q.messages, old.ID)
	assert.NotContains(t, q.messages, recent.ID)
	assert.Empty(t, q.votes)
}
