package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/document"
	"github.com/courtsideai/courtside/internal/stream"
)

// MaxSuggestions caps how many suggestions one call may produce.
const MaxSuggestions = 5

const suggestionsPrompt = `You are a helpful writing assistant. Given a piece of writing, please offer suggestions to improve the piece of writing and describe the change. It is very important for the edits to contain full sentences instead of just words. Max 5 suggestions.

Respond with a JSON array of objects, each of the form {"originalSentence": "...", "suggestedSentence": "...", "description": "..."}.`

// RequestSuggestionsInput names the document to review.
type RequestSuggestionsInput struct {
	DocumentID string `json:"documentId" jsonschema_description:"The ID of the document to request edits for"`
}

// RequestSuggestions generates edit suggestions for a document,
// streaming each one as it completes. Exactly the streamed set is
// persisted, every row pinned to the document version that was current
// when the call started.
func (k *Kit) RequestSuggestions(ctx *ai.ToolContext, input RequestSuggestionsInput) (Result, error) {
	k.logger.Debug("RequestSuggestions called", "document_id", input.DocumentID)

	documentID, err := uuid.Parse(input.DocumentID)
	if err != nil {
		return errorResult(ErrCodeValidation, fmt.Sprintf("invalid document id %q", input.DocumentID)), nil
	}

	doc, err := k.documents.CurrentByID(ctx.Context, documentID)
	if errors.Is(err, document.ErrNotFound) {
		return errorResult(ErrCodeNotFound, "Document not found"), nil
	}
	if err != nil {
		return errorResult(ErrCodeExecution, fmt.Sprintf("loading document: %v", err)), nil
	}
	if strings.TrimSpace(doc.Content) == "" {
		return errorResult(ErrCodeNotFound, "Document not found"), nil
	}

	turn := TurnFromContext(ctx.Context)
	collector := newSuggestionCollector(turn, doc, turnOwner(turn))

	var raw strings.Builder
	resp, genErr := k.generate(ctx.Context,
		func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			raw.WriteString(chunk.Text())
			// The trailing element of a truncated array may still be
			// growing, so only elements before it are trusted here.
			elements := parseSuggestionElements(raw.String())
			if len(elements) > 1 {
				collector.take(elements[:len(elements)-1])
			}
			return nil
		},
		ai.WithModelName(turnModelName(turn)),
		ai.WithSystem(suggestionsPrompt),
		ai.WithPrompt(doc.Content),
	)
	if genErr != nil {
		k.logger.Warn("RequestSuggestions generation failed", "document_id", documentID, "error", genErr)
		// Persist whatever was already streamed so the client's view
		// matches the database.
		if err := k.persistSuggestions(ctx.Context, collector); err != nil {
			return errorResult(ErrCodeExecution, fmt.Sprintf("saving suggestions: %v", err)), nil
		}
		return errorResult(ErrCodeExecution, fmt.Sprintf("generating suggestions: %v", genErr)), nil
	}

	collector.take(parseSuggestionElements(resp.Text()))

	if err := k.persistSuggestions(ctx.Context, collector); err != nil {
		k.logger.Warn("RequestSuggestions persistence failed", "document_id", documentID, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("saving suggestions: %v", err)), nil
	}

	k.logger.Debug("RequestSuggestions succeeded",
		"document_id", documentID, "count", len(collector.suggestions))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"id":      documentID.String(),
			"title":   doc.Title,
			"kind":    string(doc.Kind),
			"message": "Suggestions have been added to the document",
		},
	}, nil
}

func (k *Kit) persistSuggestions(ctx context.Context, c *suggestionCollector) error {
	if len(c.suggestions) == 0 {
		return nil
	}
	saveCtx, cancel := persistContext(ctx)
	defer cancel()
	return k.documents.SaveSuggestions(saveCtx, c.suggestions)
}

// suggestionCollector accumulates streamed suggestions, emitting each
// exactly once and capping the total.
type suggestionCollector struct {
	turn        *Turn
	doc         document.Document
	owner       uuid.UUID
	suggestions []document.Suggestion

	// consumed counts stream elements already ingested, including
	// skipped empties, so resuming never re-reads an element.
	consumed int
}

func newSuggestionCollector(turn *Turn, doc document.Document, owner uuid.UUID) *suggestionCollector {
	return &suggestionCollector{turn: turn, doc: doc, owner: owner}
}

// take ingests the parsed element list. Elements already consumed are
// skipped by position; the stream only ever appends.
func (c *suggestionCollector) take(elements []suggestionElement) {
	for ; c.consumed < len(elements); c.consumed++ {
		if len(c.suggestions) >= MaxSuggestions {
			return
		}
		el := elements[c.consumed]
		if el.OriginalSentence == "" && el.SuggestedSentence == "" {
			continue
		}

		s := document.Suggestion{
			ID:                uuid.New(),
			DocumentID:        c.doc.ID,
			DocumentCreatedAt: c.doc.CreatedAt,
			OriginalText:      el.OriginalSentence,
			SuggestedText:     el.SuggestedSentence,
			Description:       el.Description,
			IsResolved:        false,
			OwnerID:           c.owner,
			CreatedAt:         time.Now(),
		}
		c.suggestions = append(c.suggestions, s)

		c.turn.emit(stream.Suggestion(stream.SuggestionPayload{
			ID:                s.ID.String(),
			DocumentID:        s.DocumentID.String(),
			DocumentCreatedAt: s.DocumentCreatedAt.Format(time.RFC3339Nano),
			OriginalText:      s.OriginalText,
			SuggestedText:     s.SuggestedText,
			Description:       s.Description,
			IsResolved:        s.IsResolved,
		}))
	}
}
