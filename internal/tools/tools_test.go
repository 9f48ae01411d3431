package tools

import (
	"context"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/document"
	"github.com/courtsideai/courtside/internal/log"
	"github.com/courtsideai/courtside/internal/rag"
	"github.com/courtsideai/courtside/internal/stream"
)

// recordingEmitter captures every event in order.
type recordingEmitter struct {
	events []stream.Event
	err    error
}

func (r *recordingEmitter) Emit(ev stream.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingEmitter) types() []stream.Type {
	out := make([]stream.Type, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recordingEmitter) ofType(t stream.Type) []stream.Event {
	var out []stream.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// fakeDocuments is an in-memory DocumentStore that records writes.
type fakeDocuments struct {
	docs        map[uuid.UUID]document.Document
	saved       []document.Document
	suggestions []document.Suggestion
	saveErr     error
	suggestErr  error
	now         time.Time
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{
		docs: make(map[uuid.UUID]document.Document),
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeDocuments) seed(title, content string, kind document.Kind, owner uuid.UUID) document.Document {
	f.now = f.now.Add(time.Second)
	d := document.Document{
		ID:        uuid.New(),
		CreatedAt: f.now,
		Title:     title,
		Content:   content,
		Kind:      kind,
		OwnerID:   owner,
	}
	f.docs[d.ID] = d
	return d
}

func (f *fakeDocuments) Save(_ context.Context, id uuid.UUID, title, content string, kind document.Kind, owner uuid.UUID) (document.Document, error) {
	if f.saveErr != nil {
		return document.Document{}, f.saveErr
	}
	f.now = f.now.Add(time.Second)
	d := document.Document{
		ID:        id,
		CreatedAt: f.now,
		Title:     title,
		Content:   content,
		Kind:      kind,
		OwnerID:   owner,
	}
	f.docs[id] = d
	f.saved = append(f.saved, d)
	return d, nil
}

func (f *fakeDocuments) CurrentByID(_ context.Context, id uuid.UUID) (document.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return document.Document{}, document.ErrNotFound
	}
	return d, nil
}

func (f *fakeDocuments) SaveSuggestions(_ context.Context, suggestions []document.Suggestion) error {
	if f.suggestErr != nil {
		return f.suggestErr
	}
	f.suggestions = append(f.suggestions, suggestions...)
	return nil
}

// fakeRetriever returns canned passages and records queries.
type fakeRetriever struct {
	passages []rag.Passage
	queries  []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string) []rag.Passage {
	f.queries = append(f.queries, query)
	return f.passages
}

func newTestKit(docs *fakeDocuments, retriever Retriever, gen generateFunc) *Kit {
	if retriever == nil {
		retriever = &fakeRetriever{}
	}
	return &Kit{
		documents:      docs,
		retriever:      retriever,
		httpClient:     http.DefaultClient,
		weatherBaseURL: defaultWeatherBaseURL,
		logger:         log.NewNop(),
		generate:       gen,
	}
}

func textChunk(text string) *ai.ModelResponseChunk {
	return &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart(text)}}
}

func textResponse(text string) *ai.ModelResponse {
	return &ai.ModelResponse{
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(text)},
		},
	}
}

// scriptedGenerate streams chunks through the callback and finishes
// with final as the response text.
func scriptedGenerate(chunks []string, final string) generateFunc {
	return func(ctx context.Context, cb StreamCallback, _ ...ai.GenerateOption) (*ai.ModelResponse, error) {
		if cb != nil {
			for _, c := range chunks {
				if err := cb(ctx, textChunk(c)); err != nil {
					return nil, err
				}
			}
		}
		return textResponse(final), nil
	}
}

// failingGenerate streams chunks and then fails.
func failingGenerate(chunks []string, genErr error) generateFunc {
	return func(ctx context.Context, cb StreamCallback, _ ...ai.GenerateOption) (*ai.ModelResponse, error) {
		if cb != nil {
			for _, c := range chunks {
				if err := cb(ctx, textChunk(c)); err != nil {
					return nil, err
				}
			}
		}
		return nil, genErr
	}
}

func toolCtx(turn *Turn) *ai.ToolContext {
	ctx := context.Background()
	if turn != nil {
		ctx = ContextWithTurn(ctx, turn)
	}
	return &ai.ToolContext{Context: ctx}
}
