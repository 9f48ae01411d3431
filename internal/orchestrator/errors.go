package orchestrator

import "errors"

// Sentinel errors for turn validation, checked with errors.Is. Both
// fire before any streaming, so the transport can answer with a plain
// status code.
var (
	// ErrUnknownModel indicates the requested model id is not in the
	// catalog.
	ErrUnknownModel = errors.New("model not found")

	// ErrNoUserMessage indicates the request carried no user message
	// to respond to.
	ErrNoUserMessage = errors.New("no user message found")
)
