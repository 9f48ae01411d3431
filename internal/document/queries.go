package document

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

// InsertVersionParams are the inputs for InsertVersion.
type InsertVersionParams struct {
	ID      uuid.UUID
	Title   string
	Content string
	Kind    Kind
	OwnerID uuid.UUID
}

const insertVersionSQL = `
INSERT INTO documents (id, title, content, kind, owner_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, title, content, kind, owner_id`

// InsertVersion appends a new version row for the document id.
func (q *Queries) InsertVersion(ctx context.Context, arg InsertVersionParams) (Document, error) {
	row := q.db.QueryRow(ctx, insertVersionSQL,
		uuidToPg(arg.ID), arg.Title, arg.Content, string(arg.Kind), uuidToPg(arg.OwnerID))
	return scanDocument(row)
}

const getCurrentVersionSQL = `
SELECT id, created_at, title, content, kind, owner_id
FROM documents
WHERE id = $1
ORDER BY created_at DESC
LIMIT 1`

// GetCurrentVersion fetches the newest version of a document.
// Returns pgx.ErrNoRows when no version exists.
func (q *Queries) GetCurrentVersion(ctx context.Context, id uuid.UUID) (Document, error) {
	return scanDocument(q.db.QueryRow(ctx, getCurrentVersionSQL, uuidToPg(id)))
}

const listVersionsSQL = `
SELECT id, created_at, title, content, kind, owner_id
FROM documents
WHERE id = $1
ORDER BY created_at ASC`

// ListVersions returns every version of a document, oldest first.
func (q *Queries) ListVersions(ctx context.Context, id uuid.UUID) ([]Document, error) {
	rows, err := q.db.Query(ctx, listVersionsSQL, uuidToPg(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

const deleteVersionsAfterSQL = `
DELETE FROM documents
WHERE id = $1 AND created_at > $2`

// DeleteVersionsAfter removes versions created strictly after ts.
func (q *Queries) DeleteVersionsAfter(ctx context.Context, id uuid.UUID, ts time.Time) error {
	_, err := q.db.Exec(ctx, deleteVersionsAfterSQL, uuidToPg(id), timeToPg(ts))
	return err
}

const deleteSuggestionsAfterSQL = `
DELETE FROM suggestions
WHERE document_id = $1 AND document_created_at > $2`

// DeleteSuggestionsAfter removes suggestions pinned to versions created
// strictly after ts. There is no foreign key doing this for us.
func (q *Queries) DeleteSuggestionsAfter(ctx context.Context, documentID uuid.UUID, ts time.Time) error {
	_, err := q.db.Exec(ctx, deleteSuggestionsAfterSQL, uuidToPg(documentID), timeToPg(ts))
	return err
}

// InsertSuggestionParams are the inputs for InsertSuggestion.
type InsertSuggestionParams struct {
	ID                uuid.UUID
	DocumentID        uuid.UUID
	DocumentCreatedAt time.Time
	OriginalText      string
	SuggestedText     string
	Description       string
	OwnerID           uuid.UUID
}

const insertSuggestionSQL = `
INSERT INTO suggestions
	(id, document_id, document_created_at, original_text, suggested_text, description, owner_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// InsertSuggestion stores one suggestion row.
func (q *Queries) InsertSuggestion(ctx context.Context, arg InsertSuggestionParams) error {
	_, err := q.db.Exec(ctx, insertSuggestionSQL,
		uuidToPg(arg.ID), uuidToPg(arg.DocumentID), timeToPg(arg.DocumentCreatedAt),
		arg.OriginalText, arg.SuggestedText, arg.Description, uuidToPg(arg.OwnerID))
	return err
}

const listSuggestionsSQL = `
SELECT id, document_id, document_created_at, original_text, suggested_text,
	description, is_resolved, owner_id, created_at
FROM suggestions
WHERE document_id = $1
ORDER BY created_at ASC`

// ListSuggestions returns every suggestion for any version of the document.
func (q *Queries) ListSuggestions(ctx context.Context, documentID uuid.UUID) ([]Suggestion, error) {
	rows, err := q.db.Query(ctx, listSuggestionsSQL, uuidToPg(documentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

// scanDocument reads one document row.
func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	var id, owner pgtype.UUID
	var createdAt pgtype.Timestamptz
	var kind string
	if err := row.Scan(&id, &createdAt, &d.Title, &d.Content, &kind, &owner); err != nil {
		return Document{}, err
	}
	d.ID = pgToUUID(id)
	d.OwnerID = pgToUUID(owner)
	d.CreatedAt = createdAt.Time
	d.Kind = Kind(kind)
	return d, nil
}

// scanSuggestion reads one suggestion row.
func scanSuggestion(row pgx.Row) (Suggestion, error) {
	var s Suggestion
	var id, docID, owner pgtype.UUID
	var docCreatedAt, createdAt pgtype.Timestamptz
	if err := row.Scan(&id, &docID, &docCreatedAt, &s.OriginalText, &s.SuggestedText,
		&s.Description, &s.IsResolved, &owner, &createdAt); err != nil {
		return Suggestion{}, err
	}
	s.ID = pgToUUID(id)
	s.DocumentID = pgToUUID(docID)
	s.OwnerID = pgToUUID(owner)
	s.DocumentCreatedAt = docCreatedAt.Time
	s.CreatedAt = createdAt.Time
	return s, nil
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
