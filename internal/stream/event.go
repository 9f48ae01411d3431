// Package stream defines the typed event vocabulary a chat turn emits and
// the SSE writer that frames events onto an HTTP response.
//
// The event set is closed: every event a turn can produce is constructed
// through one of the constructors below, and consumers switch exhaustively
// on Type. Adding a new member means adding a constant, a constructor, and
// updating every switch.
package stream

import "encoding/json"

// Type discriminates the members of the event union.
type Type string

// The complete set of event types. Clients switch on these values.
const (
	// TypeID announces the id of a document being generated.
	TypeID Type = "id"

	// TypeTitle announces the title of a document being generated.
	TypeTitle Type = "title"

	// TypeKind announces the kind (text, code, image) of a document.
	TypeKind Type = "kind"

	// TypeClear tells the client to reset the document workspace.
	TypeClear Type = "clear"

	// TypeTextDelta carries an incremental text fragment.
	TypeTextDelta Type = "text-delta"

	// TypeCodeDelta carries the cumulative code content; the latest
	// delta always replaces previous ones.
	TypeCodeDelta Type = "code-delta"

	// TypeImageDelta carries a complete base64-encoded image.
	TypeImageDelta Type = "image-delta"

	// TypeSuggestion carries one complete writing suggestion.
	TypeSuggestion Type = "suggestion"

	// TypeFinish marks the end of a document generation.
	TypeFinish Type = "finish"

	// TypeMessageAnnotation carries server-side metadata about a
	// persisted message.
	TypeMessageAnnotation Type = "message-annotation"

	// TypeError carries an in-band failure after streaming has started,
	// when HTTP status codes are no longer available.
	TypeError Type = "error"
)

// Event is one member of the turn event union.
type Event struct {
	Type    Type `json:"type"`
	Content any  `json:"content"`
}

// SuggestionPayload is the wire shape of a TypeSuggestion event.
type SuggestionPayload struct {
	ID                string `json:"id"`
	DocumentID        string `json:"documentId"`
	DocumentCreatedAt string `json:"documentCreatedAt"`
	OriginalText      string `json:"originalText"`
	SuggestedText     string `json:"suggestedText"`
	Description       string `json:"description"`
	IsResolved        bool   `json:"isResolved"`
}

// AnnotationPayload is the wire shape of a TypeMessageAnnotation event.
type AnnotationPayload struct {
	MessageIDFromServer string `json:"messageIdFromServer"`
}

// ErrorPayload is the wire shape of a TypeError event.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ID constructs a document id announcement.
func ID(id string) Event { return Event{Type: TypeID, Content: id} }

// Title constructs a document title announcement.
func Title(title string) Event { return Event{Type: TypeTitle, Content: title} }

// Kind constructs a document kind announcement.
func Kind(kind string) Event { return Event{Type: TypeKind, Content: kind} }

// Clear constructs a workspace reset event. Creation sends empty
// content; updates send the title of the document being replaced.
func Clear(content string) Event { return Event{Type: TypeClear, Content: content} }

// TextDelta constructs an incremental text fragment event.
func TextDelta(text string) Event { return Event{Type: TypeTextDelta, Content: text} }

// CodeDelta constructs a cumulative code content event.
func CodeDelta(code string) Event { return Event{Type: TypeCodeDelta, Content: code} }

// ImageDelta constructs a complete base64 image event.
func ImageDelta(base64 string) Event { return Event{Type: TypeImageDelta, Content: base64} }

// Suggestion constructs a complete suggestion event.
func Suggestion(p SuggestionPayload) Event { return Event{Type: TypeSuggestion, Content: p} }

// Finish constructs a document generation finish marker.
func Finish() Event { return Event{Type: TypeFinish, Content: ""} }

// Annotation constructs a persisted-message annotation event.
func Annotation(messageID string) Event {
	return Event{Type: TypeMessageAnnotation, Content: AnnotationPayload{MessageIDFromServer: messageID}}
}

// Error constructs an in-band failure event.
func Error(code, message string) Event {
	return Event{Type: TypeError, Content: ErrorPayload{Code: code, Message: message}}
}

// Emitter receives turn events as they are produced.
//
// The orchestrator and tool executors both emit through this interface;
// the SSE Writer is the production implementation, tests use in-memory
// recorders. A nil or absent emitter means events are dropped, never an
// error.
type Emitter interface {
	// Emit delivers one event to the client. Implementations return an
	// error only when the transport is gone (client disconnected).
	Emit(event Event) error
}

// marshalEvent is the single JSON encoding point for events so writer and
// tests agree on framing.
func marshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
