package stream

import (
	"fmt"
	"net/http"
	"sync"
)

// SSE frame names. Data frames carry JSON events, annotation frames carry
// message annotations, done terminates the stream.
const (
	frameData       = "data"
	frameAnnotation = "annotation"
	frameDone       = "done"
	frameError      = "error"
)

// Writer frames events as Server-Sent Events onto an http.ResponseWriter.
//
// Writer is safe for concurrent use: tool executors and the model stream
// callback may interleave emissions during a single turn.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter creates an SSE writer and sets the streaming headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

// Emit writes one event as a data frame; message annotations and errors
// get their own frame names so clients can route them without parsing
// the payload. Implements Emitter.
func (w *Writer) Emit(event Event) error {
	payload, err := marshalEvent(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	frame := frameData
	switch event.Type {
	case TypeMessageAnnotation:
		frame = frameAnnotation
	case TypeError:
		frame = frameError
	}
	return w.writeFrame(frame, payload)
}

// EmitAnnotation writes a message annotation as an annotation frame.
func (w *Writer) EmitAnnotation(messageID string) error {
	payload, err := marshalEvent(Annotation(messageID))
	if err != nil {
		return fmt.Errorf("marshal annotation: %w", err)
	}
	return w.writeFrame(frameAnnotation, payload)
}

// Done terminates the stream.
func (w *Writer) Done() error {
	return w.writeFrame(frameDone, []byte("[DONE]"))
}

// Error writes an in-band error frame. Used for failures that occur after
// streaming has started, when HTTP status codes are no longer available.
func (w *Writer) Error(code, message string) error {
	payload, err := marshalEvent(Error(code, message))
	if err != nil {
		return fmt.Errorf("marshal error event: %w", err)
	}
	return w.writeFrame(frameError, payload)
}

// writeFrame writes a single SSE frame and flushes it so the client sees
// the event immediately.
func (w *Writer) writeFrame(event string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	w.flusher.Flush()
	return nil
}
