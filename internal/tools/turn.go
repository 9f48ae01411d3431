// Package tools declares the tools the model may invoke during a chat
// turn: weather lookup, document creation and update, suggestion
// generation, and explicit context retrieval. Executors emit stream
// events through the turn state carried in context and return
// structured results the model can reason about.
package tools

import (
	"context"

	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/stream"
)

// turnKey is an unexported context key; empty struct for zero
// allocation.
type turnKey struct{}

// Turn is the per-request state tool executors need: where to stream
// events, who owns created artifacts, and which chat model to use for
// nested generation.
type Turn struct {
	Emitter   stream.Emitter
	Owner     uuid.UUID
	ModelName string
}

// ContextWithTurn stores the turn state in context. The orchestrator
// injects it before generation starts.
func ContextWithTurn(ctx context.Context, t *Turn) context.Context {
	return context.WithValue(ctx, turnKey{}, t)
}

// TurnFromContext retrieves the turn state. Returns nil when absent;
// executors then run without streaming.
func TurnFromContext(ctx context.Context) *Turn {
	t, _ := ctx.Value(turnKey{}).(*Turn)
	return t
}

// emit sends an event to the turn's emitter, if any. Emit errors are
// swallowed: a disconnected client must not fail the tool call.
func (t *Turn) emit(ev stream.Event) {
	if t == nil || t.Emitter == nil {
		return
	}
	_ = t.Emitter.Emit(ev)
}
