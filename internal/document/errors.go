package document

import "errors"

// ErrNotFound is returned when no version of the requested document exists.
var ErrNotFound = errors.New("document not found")
