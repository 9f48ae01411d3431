package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/document"
	"github.com/courtsideai/courtside/internal/model"
	"github.com/courtsideai/courtside/internal/stream"
)

const textDocumentPrompt = "Write about the given topic. Markdown is supported. Use headings wherever appropriate."

const codeDocumentPrompt = `You are a Python code generator that creates self-contained, executable code snippets. When writing code:

1. Each snippet should be complete and runnable on its own
2. Prefer using print() statements to display outputs
3. Include helpful comments explaining the code
4. Keep snippets concise (generally under 15 lines)
5. Avoid external dependencies - use Python standard library
6. Handle potential errors gracefully
7. Return meaningful output that demonstrates the code's functionality
8. Don't use input() or other interactive functions
9. Don't access files or network resources
10. Don't use infinite loops

Respond with a JSON object of the form {"code": "..."} containing the snippet.`

func updateDocumentPrompt(content string, kind document.Kind) string {
	switch kind {
	case document.KindCode:
		return fmt.Sprintf("Improve the following code snippet based on the given prompt.\n\n%s\n\nRespond with a JSON object of the form {\"code\": \"...\"} containing the full updated snippet.", content)
	default:
		return fmt.Sprintf("Improve the following contents of the document based on the given prompt.\n\n%s", content)
	}
}

// CreateDocumentInput names the artifact to create.
type CreateDocumentInput struct {
	Title string `json:"title" jsonschema_description:"Title of the document"`
	Kind  string `json:"kind" jsonschema_description:"Kind of document: text, code, or image"`
}

// CreateDocument generates a new document and streams its content.
// Events are emitted in a fixed order: id, title, kind, clear, the
// content deltas, finish. The persisted content is exactly what was
// streamed.
func (k *Kit) CreateDocument(ctx *ai.ToolContext, input CreateDocumentInput) (Result, error) {
	k.logger.Debug("CreateDocument called", "title", input.Title, "kind", input.Kind)

	kind := document.Kind(input.Kind)
	if !kind.Valid() {
		return errorResult(ErrCodeValidation,
			fmt.Sprintf("unknown document kind %q, want text, code, or image", input.Kind)), nil
	}
	if strings.TrimSpace(input.Title) == "" {
		return errorResult(ErrCodeValidation, "title is required"), nil
	}

	turn := TurnFromContext(ctx.Context)
	id := uuid.New()

	turn.emit(stream.ID(id.String()))
	turn.emit(stream.Title(input.Title))
	turn.emit(stream.Kind(string(kind)))
	turn.emit(stream.Clear(""))

	content, err := k.generateContent(ctx.Context, turn, kind, documentSystemPrompt(kind), input.Title)
	if err != nil {
		k.logger.Warn("CreateDocument generation failed", "title", input.Title, "error", err)
		turn.emit(stream.Finish())
		return errorResult(ErrCodeExecution, fmt.Sprintf("generating document content: %v", err)), nil
	}
	turn.emit(stream.Finish())

	saveCtx, cancel := persistContext(ctx.Context)
	defer cancel()
	if _, err := k.documents.Save(saveCtx, id, input.Title, content, kind, turnOwner(turn)); err != nil {
		k.logger.Warn("CreateDocument persistence failed", "id", id, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("saving document: %v", err)), nil
	}

	k.logger.Debug("CreateDocument succeeded", "id", id, "kind", kind)
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"id":      id.String(),
			"title":   input.Title,
			"kind":    string(kind),
			"content": "A document was created and is now visible to the user.",
		},
	}, nil
}

// UpdateDocumentInput names the document and the requested change.
type UpdateDocumentInput struct {
	ID          string `json:"id" jsonschema_description:"The ID of the document to update"`
	Description string `json:"description" jsonschema_description:"The description of changes that need to be made"`
}

// UpdateDocument regenerates a document's content and appends a new
// version. A missing document is an error result with zero writes.
func (k *Kit) UpdateDocument(ctx *ai.ToolContext, input UpdateDocumentInput) (Result, error) {
	k.logger.Debug("UpdateDocument called", "id", input.ID)

	id, err := uuid.Parse(input.ID)
	if err != nil {
		return errorResult(ErrCodeValidation, fmt.Sprintf("invalid document id %q", input.ID)), nil
	}

	doc, err := k.documents.CurrentByID(ctx.Context, id)
	if errors.Is(err, document.ErrNotFound) {
		return errorResult(ErrCodeNotFound, "Document not found"), nil
	}
	if err != nil {
		return errorResult(ErrCodeExecution, fmt.Sprintf("loading document: %v", err)), nil
	}

	turn := TurnFromContext(ctx.Context)
	turn.emit(stream.Clear(doc.Title))

	var system, prompt string
	if doc.Kind == document.KindImage {
		// Image updates regenerate from the change description alone.
		system, prompt = "", input.Description
	} else {
		system, prompt = updateDocumentPrompt(doc.Content, doc.Kind), input.Description
	}

	content, err := k.generateContent(ctx.Context, turn, doc.Kind, system, prompt)
	if err != nil {
		k.logger.Warn("UpdateDocument generation failed", "id", id, "error", err)
		turn.emit(stream.Finish())
		return errorResult(ErrCodeExecution, fmt.Sprintf("generating document content: %v", err)), nil
	}
	turn.emit(stream.Finish())

	saveCtx, cancel := persistContext(ctx.Context)
	defer cancel()
	if _, err := k.documents.Save(saveCtx, id, doc.Title, content, doc.Kind, turnOwner(turn)); err != nil {
		k.logger.Warn("UpdateDocument persistence failed", "id", id, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("saving document: %v", err)), nil
	}

	k.logger.Debug("UpdateDocument succeeded", "id", id)
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"id":      id.String(),
			"title":   doc.Title,
			"kind":    string(doc.Kind),
			"content": "The document has been updated successfully.",
		},
	}, nil
}

func documentSystemPrompt(kind document.Kind) string {
	switch kind {
	case document.KindCode:
		return codeDocumentPrompt
	default:
		return textDocumentPrompt
	}
}

func turnOwner(t *Turn) uuid.UUID {
	if t == nil {
		return uuid.Nil
	}
	return t.Owner
}

func turnModelName(t *Turn) string {
	if t != nil && t.ModelName != "" {
		return t.ModelName
	}
	m, err := model.Lookup(model.DefaultID)
	if err != nil {
		return model.TitleModel
	}
	return m.APIModel
}

// generateContent produces document content for one kind, emitting
// deltas as generation proceeds. The returned string is the full
// content that was streamed.
func (k *Kit) generateContent(ctx context.Context, turn *Turn, kind document.Kind, system, prompt string) (string, error) {
	switch kind {
	case document.KindText:
		return k.generateText(ctx, turn, system, prompt)
	case document.KindCode:
		return k.generateCode(ctx, turn, system, prompt)
	case document.KindImage:
		return k.generateImage(ctx, turn, prompt)
	default:
		return "", fmt.Errorf("unknown document kind %q", kind)
	}
}

func (k *Kit) generateText(ctx context.Context, turn *Turn, system, prompt string) (string, error) {
	var draft strings.Builder
	resp, err := k.generate(ctx,
		func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			delta := chunk.Text()
			if delta == "" {
				return nil
			}
			draft.WriteString(delta)
			turn.emit(stream.TextDelta(delta))
			return nil
		},
		ai.WithModelName(turnModelName(turn)),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", err
	}

	// A model that ignored the streaming callback still produced text.
	if draft.Len() == 0 {
		text := resp.Text()
		if text != "" {
			turn.emit(stream.TextDelta(text))
		}
		return text, nil
	}
	return draft.String(), nil
}

func (k *Kit) generateCode(ctx context.Context, turn *Turn, system, prompt string) (string, error) {
	var raw strings.Builder
	var lastCode string

	resp, err := k.generate(ctx,
		func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			raw.WriteString(chunk.Text())
			// Each delta carries the full code so far, not a fragment.
			if code, ok := parseCodeObject(raw.String()); ok && code != lastCode {
				lastCode = code
				turn.emit(stream.CodeDelta(code))
			}
			return nil
		},
		ai.WithModelName(turnModelName(turn)),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", err
	}

	code, ok := parseCodeObject(resp.Text())
	if !ok {
		// Fall back to whatever the incremental parser recovered.
		if lastCode == "" {
			return "", fmt.Errorf("model returned no parsable code object")
		}
		return lastCode, nil
	}
	if code != lastCode {
		turn.emit(stream.CodeDelta(code))
	}
	return code, nil
}

func (k *Kit) generateImage(ctx context.Context, turn *Turn, prompt string) (string, error) {
	resp, err := k.generate(ctx, nil,
		ai.WithModelName(model.ImageModel),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", err
	}

	payload, err := extractImagePayload(resp)
	if err != nil {
		return "", err
	}
	turn.emit(stream.ImageDelta(payload))
	return payload, nil
}

// extractImagePayload pulls the base64 image data out of the first
// media part of the response.
func extractImagePayload(resp *ai.ModelResponse) (string, error) {
	if resp == nil || resp.Message == nil {
		return "", fmt.Errorf("image model returned no message")
	}
	for _, part := range resp.Message.Content {
		if part.Kind != ai.PartMedia {
			continue
		}
		data := part.Text
		// Media parts arrive as data URIs; strip the prefix.
		if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
			data = data[i+1:]
		}
		if data != "" {
			return data, nil
		}
	}
	return "", fmt.Errorf("image model returned no media part")
}
