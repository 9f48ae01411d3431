// Package document persists artifacts produced during chat turns.
//
// Documents are versioned: every save appends a new row and the pair
// (id, created_at) identifies one version. Suggestions pin a specific
// version through that pair; no foreign key enforces the link, so a
// suggestion can outlive the version it annotates.
package document

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a document's content.
type Kind string

const (
	KindText  Kind = "text"
	KindCode  Kind = "code"
	KindImage Kind = "image"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindCode, KindImage:
		return true
	}
	return false
}

// Document is one version of an artifact.
type Document struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	OwnerID   uuid.UUID `json:"userId"`
}

// Suggestion is a proposed edit against one document version.
type Suggestion struct {
	ID                uuid.UUID `json:"id"`
	DocumentID        uuid.UUID `json:"documentId"`
	DocumentCreatedAt time.Time `json:"documentCreatedAt"`
	OriginalText      string    `json:"originalText"`
	SuggestedText     string    `json:"suggestedText"`
	Description       string    `json:"description"`
	IsResolved        bool      `json:"isResolved"`
	OwnerID           uuid.UUID `json:"userId"`
	CreatedAt         time.Time `json:"createdAt"`
}
