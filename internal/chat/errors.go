package chat

import "errors"

// Sentinel errors for gateway operations, checked with errors.Is.
var (
	// ErrNotFound indicates the requested chat or message does not exist.
	ErrNotFound = errors.New("not found")

	// ErrChatMissing indicates a message write referenced a chat that
	// does not exist. Message inserts fail loudly instead of creating
	// orphan rows.
	ErrChatMissing = errors.New("chat does not exist")
)
