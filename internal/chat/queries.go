package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same queries run inside and outside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the gateway's SQL against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// CreateChatParams are the inputs for CreateChat.
type CreateChatParams struct {
	ID         uuid.UUID
	Title      string
	OwnerID    uuid.UUID
	Visibility Visibility
}

const createChatSQL = `
INSERT INTO chats (id, title, owner_id, visibility)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, title, owner_id, visibility`

// CreateChat inserts a chat row and returns it with server timestamps.
func (q *Queries) CreateChat(ctx context.Context, arg CreateChatParams) (Chat, error) {
	row := q.db.QueryRow(ctx, createChatSQL,
		uuidToPg(arg.ID), arg.Title, uuidToPg(arg.OwnerID), string(arg.Visibility))
	return scanChat(row)
}

const getChatSQL = `
SELECT id, created_at, title, owner_id, visibility
FROM chats
WHERE id = $1`

// GetChat fetches one chat. Returns pgx.ErrNoRows when absent.
func (q *Queries) GetChat(ctx context.Context, id uuid.UUID) (Chat, error) {
	return scanChat(q.db.QueryRow(ctx, getChatSQL, uuidToPg(id)))
}

const listChatsByOwnerSQL = `
SELECT id, created_at, title, owner_id, visibility
FROM chats
WHERE owner_id = $1
ORDER BY created_at DESC`

// ListChatsByOwner returns the owner's chats, newest first.
func (q *Queries) ListChatsByOwner(ctx context.Context, owner uuid.UUID) ([]Chat, error) {
	rows, err := q.db.Query(ctx, listChatsByOwnerSQL, uuidToPg(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

const updateChatVisibilitySQL = `
UPDATE chats SET visibility = $2 WHERE id = $1`

// UpdateChatVisibility sets a chat's visibility.
func (q *Queries) UpdateChatVisibility(ctx context.Context, id uuid.UUID, v Visibility) error {
	tag, err := q.db.Exec(ctx, updateChatVisibilitySQL, uuidToPg(id), string(v))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const chatExistsSQL = `SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1)`

// ChatExists reports whether the chat row is present.
func (q *Queries) ChatExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := q.db.QueryRow(ctx, chatExistsSQL, uuidToPg(id)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

const deleteChatSQL = `DELETE FROM chats WHERE id = $1`

// DeleteChat removes the chat row itself. Votes and messages must be
// deleted first; see Store.DeleteChat.
func (q *Queries) DeleteChat(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteChatSQL, uuidToPg(id))
	return err
}

// InsertMessageParams are the inputs for InsertMessage.
type InsertMessageParams struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	Role      Role
	Content   string
	CreatedAt time.Time
}

const insertMessageSQL = `
INSERT INTO messages (id, chat_id, role, content, created_at)
VALUES ($1, $2, $3, $4, $5)`

// InsertMessage inserts one message row.
func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) error {
	_, err := q.db.Exec(ctx, insertMessageSQL,
		uuidToPg(arg.ID), uuidToPg(arg.ChatID), string(arg.Role), arg.Content, timeToPg(arg.CreatedAt))
	return err
}

const getMessageSQL = `
SELECT id, chat_id, role, content, created_at
FROM messages
WHERE id = $1`

// GetMessage fetches one message. Returns pgx.ErrNoRows when absent.
func (q *Queries) GetMessage(ctx context.Context, id uuid.UUID) (Message, error) {
	return scanMessage(q.db.QueryRow(ctx, getMessageSQL, uuidToPg(id)))
}

const listMessagesSQL = `
SELECT id, chat_id, role, content, created_at
FROM messages
WHERE chat_id = $1
ORDER BY created_at ASC`

// ListMessages returns a chat's messages in creation order.
func (q *Queries) ListMessages(ctx context.Context, chatID uuid.UUID) ([]Message, error) {
	rows, err := q.db.Query(ctx, listMessagesSQL, uuidToPg(chatID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

const deleteVotesByChatSQL = `DELETE FROM votes WHERE chat_id = $1`

// DeleteVotesByChat removes all votes of a chat.
func (q *Queries) DeleteVotesByChat(ctx context.Context, chatID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteVotesByChatSQL, uuidToPg(chatID))
	return err
}

const deleteMessagesByChatSQL = `DELETE FROM messages WHERE chat_id = $1`

// DeleteMessagesByChat removes all messages of a chat.
func (q *Queries) DeleteMessagesByChat(ctx context.Context, chatID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteMessagesByChatSQL, uuidToPg(chatID))
	return err
}

const deleteVotesForMessagesAfterSQL = `
DELETE FROM votes
WHERE chat_id = $1
  AND message_id IN (
      SELECT id FROM messages WHERE chat_id = $1 AND created_at >= $2
  )`

// DeleteVotesForMessagesAfter removes votes of messages created at or
// after ts.
func (q *Queries) DeleteVotesForMessagesAfter(ctx context.Context, chatID uuid.UUID, ts time.Time) error {
	_, err := q.db.Exec(ctx, deleteVotesForMessagesAfterSQL, uuidToPg(chatID), timeToPg(ts))
	return err
}

const deleteMessagesAfterSQL = `
DELETE FROM messages WHERE chat_id = $1 AND created_at >= $2`

// DeleteMessagesAfter removes messages created at or after ts.
func (q *Queries) DeleteMessagesAfter(ctx context.Context, chatID uuid.UUID, ts time.Time) error {
	_, err := q.db.Exec(ctx, deleteMessagesAfterSQL, uuidToPg(chatID), timeToPg(ts))
	return err
}

const upsertVoteSQL = `
INSERT INTO votes (chat_id, message_id, is_upvoted)
VALUES ($1, $2, $3)
ON CONFLICT (chat_id, message_id) DO UPDATE SET is_upvoted = EXCLUDED.is_upvoted`

// UpsertVote records a vote; a repeated vote on the same message
// overwrites the previous verdict (last write wins).
func (q *Queries) UpsertVote(ctx context.Context, v Vote) error {
	_, err := q.db.Exec(ctx, upsertVoteSQL, uuidToPg(v.ChatID), uuidToPg(v.MessageID), v.IsUpvoted)
	return err
}

const listVotesSQL = `
SELECT chat_id, message_id, is_upvoted FROM votes WHERE chat_id = $1`

// ListVotes returns all votes of a chat.
func (q *Queries) ListVotes(ctx context.Context, chatID uuid.UUID) ([]Vote, error) {
	rows, err := q.db.Query(ctx, listVotesSQL, uuidToPg(chatID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []Vote
	for rows.Next() {
		var v Vote
		var chatID, messageID pgtype.UUID
		if err := rows.Scan(&chatID, &messageID, &v.IsUpvoted); err != nil {
			return nil, err
		}
		v.ChatID = pgToUUID(chatID)
		v.MessageID = pgToUUID(messageID)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// scanChat scans one chats row.
func scanChat(row pgx.Row) (Chat, error) {
	var c Chat
	var id, owner pgtype.UUID
	var createdAt pgtype.Timestamptz
	var visibility string
	if err := row.Scan(&id, &createdAt, &c.Title, &owner, &visibility); err != nil {
		return Chat{}, err
	}
	c.ID = pgToUUID(id)
	c.OwnerID = pgToUUID(owner)
	c.CreatedAt = createdAt.Time
	c.Visibility = Visibility(visibility)
	return c, nil
}

// scanMessage scans one messages row.
func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	var id, chatID pgtype.UUID
	var createdAt pgtype.Timestamptz
	var role string
	if err := row.Scan(&id, &chatID, &role, &m.Content, &createdAt); err != nil {
		return Message{}, err
	}
	m.ID = pgToUUID(id)
	m.ChatID = pgToUUID(chatID)
	m.Role = Role(role)
	m.CreatedAt = createdAt.Time
	return m, nil
}

// uuidToPg converts uuid.UUID to pgtype.UUID.
func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// pgToUUID converts pgtype.UUID to uuid.UUID.
func pgToUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}

// timeToPg converts time.Time to pgtype.Timestamptz.
func timeToPg(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
