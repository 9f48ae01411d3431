package document

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

// Querier is the query surface the store needs. *Queries satisfies it;
// tests swap in a fake.
type Querier interface {
	InsertVersion(ctx context.Context, arg InsertVersionParams) (Document, error)
	GetCurrentVersion(ctx context.Context, id uuid.UUID) (Document, error)
	ListVersions(ctx context.Context, id uuid.UUID) ([]Document, error)
	DeleteVersionsAfter(ctx context.Context, id uuid.UUID, ts time.Time) error
	DeleteSuggestionsAfter(ctx context.Context, documentID uuid.UUID, ts time.Time) error
	InsertSuggestion(ctx context.Context, arg InsertSuggestionParams) error
	ListSuggestions(ctx context.Context, documentID uuid.UUID) ([]Suggestion, error)
}

// Store is the persistence gateway for documents and suggestions.
type Store struct {
	q      Querier
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store. pool may be nil in tests; multi-statement
// operations then run without a transaction.
func NewStore(q Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{q: q, pool: pool, logger: logger}
}

// Save appends a new version of the document. Earlier versions are
// never mutated.
func (s *Store) Save(ctx context.Context, id uuid.UUID, title, content string, kind Kind, owner uuid.UUID) (Document, error) {
	if !kind.Valid() {
		return Document{}, fmt.Errorf("saving document %s: unknown kind %q", id, kind)
	}
	doc, err := s.q.InsertVersion(ctx, InsertVersionParams{
		ID:      id,
		Title:   title,
		Content: content,
		Kind:    kind,
		OwnerID: owner,
	})
	if err != nil {
		return Document{}, fmt.Errorf("saving document %s: %w", id, err)
	}
	s.logger.Debug("saved document version", "id", id, "kind", kind)
	return doc, nil
}

// CurrentByID returns the newest version of the document.
func (s *Store) CurrentByID(ctx context.Context, id uuid.UUID) (Document, error) {
	doc, err := s.q.GetCurrentVersion(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("loading document %s: %w", id, err)
	}
	return doc, nil
}

// VersionsByID returns every version of the document, oldest first.
func (s *Store) VersionsByID(ctx context.Context, id uuid.UUID) ([]Document, error) {
	docs, err := s.q.ListVersions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", id, err)
	}
	return docs, nil
}

// DeleteVersionsAfter removes versions created strictly after ts,
// together with the suggestions pinned to them. Suggestions go first
// since nothing at the schema level cascades for us.
func (s *Store) DeleteVersionsAfter(ctx context.Context, id uuid.UUID, ts time.Time) error {
	if s.pool == nil {
		return s.deleteVersionsAfterWith(ctx, s.q, id, ts)
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

	if err := s.deleteVersionsAfterWith(ctx, NewQueries(tx), id, ts); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("deleted document versions", "id", id, "after", ts)
	return nil
}

func (s *Store) deleteVersionsAfterWith(ctx context.Context, q Querier, id uuid.UUID, ts time.Time) error {
	if err := q.DeleteSuggestionsAfter(ctx, id, ts); err != nil {
		return fmt.Errorf("deleting suggestions of %s: %w", id, err)
	}
	if err := q.DeleteVersionsAfter(ctx, id, ts); err != nil {
		return fmt.Errorf("deleting versions of %s: %w", id, err)
	}
	return nil
}

// SaveSuggestions stores a batch of suggestions in one transaction.
func (s *Store) SaveSuggestions(ctx context.Context, suggestions []Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	if s.pool == nil {
		return s.insertSuggestionsWith(ctx, s.q, suggestions)
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

	if err := s.insertSuggestionsWith(ctx, NewQueries(tx), suggestions); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("saved suggestions", "count", len(suggestions))
	return nil
}

func (s *Store) insertSuggestionsWith(ctx context.Context, q Querier, suggestions []Suggestion) error {
	for i, sg := range suggestions {
		if err := q.InsertSuggestion(ctx, InsertSuggestionParams{
			ID:                sg.ID,
			DocumentID:        sg.DocumentID,
			DocumentCreatedAt: sg.DocumentCreatedAt,
			OriginalText:      sg.OriginalText,
			SuggestedText:     sg.SuggestedText,
			Description:       sg.Description,
			OwnerID:           sg.OwnerID,
		}); err != nil {
			return fmt.Errorf("inserting suggestion %d: %w", i, err)
		}
	}
	return nil
}

// SuggestionsByDocument returns suggestions for every version of the
// document, oldest first.
func (s *Store) SuggestionsByDocument(ctx context.Context, documentID uuid.UUID) ([]Suggestion, error) {
	suggestions, err := s.q.ListSuggestions(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing suggestions of %s: %w", documentID, err)
	}
	return suggestions, nil
}
