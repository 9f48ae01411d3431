package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier defines the database operations the gateway needs.
// Consumer-defined so tests can substitute fakes; *Queries is the
// production implementation.
type Querier interface {
	CreateChat(ctx context.Context, arg CreateChatParams) (Chat, error)
	GetChat(ctx context.Context, id uuid.UUID) (Chat, error)
	ListChatsByOwner(ctx context.Context, owner uuid.UUID) ([]Chat, error)
	UpdateChatVisibility(ctx context.Context, id uuid.UUID, v Visibility) error
	ChatExists(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteChat(ctx context.Context, id uuid.UUID) error

	InsertMessage(ctx context.Context, arg InsertMessageParams) error
	GetMessage(ctx context.Context, id uuid.UUID) (Message, error)
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]Message, error)
	DeleteVotesByChat(ctx context.Context, chatID uuid.UUID) error
	DeleteMessagesByChat(ctx context.Context, chatID uuid.UUID) error
	DeleteVotesForMessagesAfter(ctx context.Context, chatID uuid.UUID, ts time.Time) error
	DeleteMessagesAfter(ctx context.Context, chatID uuid.UUID, ts time.Time) error

	UpsertVote(ctx context.Context, v Vote) error
	ListVotes(ctx context.Context, chatID uuid.UUID) ([]Vote, error)
}

// Store manages chat persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	q      Querier
	pool   *pgxpool.Pool // transaction support; nil in unit tests
	logger *slog.Logger
}

// NewStore creates a Store.
//
// pool may be nil in tests with a fake Querier; multi-row writes then run
// without a transaction.
func NewStore(q Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{q: q, pool: pool, logger: logger}
}

// CreateChat creates a chat with the given id, title and owner.
// Visibility starts private.
func (s *Store) CreateChat(ctx context.Context, id uuid.UUID, title string, owner uuid.UUID) (Chat, error) {
	c, err := s.q.CreateChat(ctx, CreateChatParams{
		ID:         id,
		Title:      title,
		OwnerID:    owner,
		Visibility: VisibilityPrivate,
	})
	if err != nil {
		return Chat{}, fmt.Errorf("creating chat %s: %w", id, err)
	}
	s.logger.Debug("created chat", "id", c.ID, "title", c.Title)
	return c, nil
}

// ChatByID fetches one chat. Returns ErrNotFound when absent.
func (s *Store) ChatByID(ctx context.Context, id uuid.UUID) (Chat, error) {
	c, err := s.q.GetChat(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chat{}, fmt.Errorf("chat %s: %w", id, ErrNotFound)
		}
		return Chat{}, fmt.Errorf("getting chat %s: %w", id, err)
	}
	return c, nil
}

// ChatsByOwner returns the owner's chats, newest first.
func (s *Store) ChatsByOwner(ctx context.Context, owner uuid.UUID) ([]Chat, error) {
	chats, err := s.q.ListChatsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing chats for owner %s: %w", owner, err)
	}
	return chats, nil
}

// UpdateVisibility changes who can read a chat.
func (s *Store) UpdateVisibility(ctx context.Context, id uuid.UUID, v Visibility) error {
	if !v.Valid() {
		return fmt.Errorf("invalid visibility %q", v)
	}
	if err := s.q.UpdateChatVisibility(ctx, id, v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("chat %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("updating visibility of chat %s: %w", id, err)
	}
	return nil
}

// DeleteChat removes a chat and everything hanging off it.
// Deletion order is votes, then messages, then the chat row, inside one
// transaction so a failure leaves the conversation intact.
func (s *Store) DeleteChat(ctx context.Context, id uuid.UUID) error {
	if s.pool == nil {
		return s.deleteChatWith(ctx, s.q, id)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	if err := s.deleteChatWith(ctx, NewQueries(tx), id); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("deleted chat", "id", id)
	return nil
}

// deleteChatWith runs the ordered chat deletion against q.
func (s *Store) deleteChatWith(ctx context.Context, q Querier, id uuid.UUID) error {
	if err := q.DeleteVotesByChat(ctx, id); err != nil {
		return fmt.Errorf("deleting votes of chat %s: %w", id, err)
	}
	if err := q.DeleteMessagesByChat(ctx, id); err != nil {
		return fmt.Errorf("deleting messages of chat %s: %w", id, err)
	}
	if err := q.DeleteChat(ctx, id); err != nil {
		return fmt.Errorf("deleting chat %s: %w", id, err)
	}
	return nil
}

// SaveMessages persists a batch of messages.
// Every referenced chat must already exist; the gateway checks before
// inserting and fails loudly with ErrChatMissing instead of creating
// orphan rows. All inserts run in one transaction.
func (s *Store) SaveMessages(ctx context.Context, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	// Referential check per distinct chat id.
	seen := make(map[uuid.UUID]struct{})
	for _, m := range messages {
		if _, ok := seen[m.ChatID]; ok {
			continue
		}
		seen[m.ChatID] = struct{}{}
		exists, err := s.q.ChatExists(ctx, m.ChatID)
		if err != nil {
			return fmt.Errorf("checking chat %s: %w", m.ChatID, err)
		}
		if !exists {
			return fmt.Errorf("saving messages to chat %s: %w", m.ChatID, ErrChatMissing)
		}
	}

	if s.pool == nil {
		return s.insertMessagesWith(ctx, s.q, messages)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	if err := s.insertMessagesWith(ctx, NewQueries(tx), messages); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("saved messages", "count", len(messages))
	return nil
}

// insertMessagesWith inserts the batch against q.
func (s *Store) insertMessagesWith(ctx context.Context, q Querier, messages []Message) error {
	for i, m := range messages {
		if err := q.InsertMessage(ctx, InsertMessageParams{
			ID:        m.ID,
			ChatID:    m.ChatID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}
	return nil
}

// MessagesByChat returns a chat's messages in creation order.
func (s *Store) MessagesByChat(ctx context.Context, chatID uuid.UUID) ([]Message, error) {
	messages, err := s.q.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages of chat %s: %w", chatID, err)
	}
	return messages, nil
}

// MessageByID fetches one message. Returns ErrNotFound when absent.
func (s *Store) MessageByID(ctx context.Context, id uuid.UUID) (Message, error) {
	m, err := s.q.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, fmt.Errorf("message %s: %w", id, ErrNotFound)
		}
		return Message{}, fmt.Errorf("getting message %s: %w", id, err)
	}
	return m, nil
}

// DeleteMessagesAfter removes every message of the chat created at or
// after ts, and the votes attached to them, in one transaction.
func (s *Store) DeleteMessagesAfter(ctx context.Context, chatID uuid.UUID, ts time.Time) error {
	if s.pool == nil {
		return s.deleteMessagesAfterWith(ctx, s.q, chatID, ts)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	if err := s.deleteMessagesAfterWith(ctx, NewQueries(tx), chatID, ts); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// deleteMessagesAfterWith deletes votes first, then messages.
func (s *Store) deleteMessagesAfterWith(ctx context.Context, q Querier, chatID uuid.UUID, ts time.Time) error {
	if err := q.DeleteVotesForMessagesAfter(ctx, chatID, ts); err != nil {
		return fmt.Errorf("deleting votes after %s: %w", ts, err)
	}
	if err := q.DeleteMessagesAfter(ctx, chatID, ts); err != nil {
		return fmt.Errorf("deleting messages after %s: %w", ts, err)
	}
	return nil
}

// UpsertVote records a verdict on a message. One row per
// (chat, message); repeated votes overwrite (last write wins).
func (s *Store) UpsertVote(ctx context.Context, chatID, messageID uuid.UUID, isUpvoted bool) error {
	if err := s.q.UpsertVote(ctx, Vote{ChatID: chatID, MessageID: messageID, IsUpvoted: isUpvoted}); err != nil {
		return fmt.Errorf("upserting vote for message %s: %w", messageID, err)
	}
	return nil
}

// VotesByChat returns all votes of a chat.
func (s *Store) VotesByChat(ctx context.Context, chatID uuid.UUID) ([]Vote, error) {
	votes, err := s.q.ListVotes(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing votes of chat %s: %w", chatID, err)
	}
	return votes, nil
}
