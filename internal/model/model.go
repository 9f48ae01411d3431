// Package model holds the catalog of chat models the service exposes.
// Client-facing model ids are decoupled from the provider-qualified names
// Genkit resolves, so the backend can swap providers without breaking the
// wire contract.
package model

import "errors"

// ErrNotFound indicates the requested model id is not in the catalog.
var ErrNotFound = errors.New("model not found")

// DefaultID is the model used when a request does not specify one.
const DefaultID = "chat-model-small"

// TitleModel is the provider-qualified model used for chat title
// generation. A fast model keeps the title out of the streaming hot path.
const TitleModel = "googleai/gemini-2.5-flash"

// ImageModel is the provider-qualified model used for image document
// generation.
const ImageModel = "googleai/imagen-3.0-generate-002"

// Model describes one entry of the chat model catalog.
type Model struct {
	// ID is the client-facing identifier (stable wire contract).
	ID string `json:"id"`

	// Label is the human-readable name shown in clients.
	Label string `json:"label"`

	// Description summarizes what the model is good at.
	Description string `json:"description"`

	// APIModel is the provider-qualified name passed to Genkit.
	APIModel string `json:"-"`
}

// catalog lists every model the service accepts. Order matters: clients
// render the list as-is.
var catalog = []Model{
	{
		ID:          "chat-model-small",
		Label:       "Small model",
		Description: "Fast, lightweight tasks",
		APIModel:    "googleai/gemini-2.5-flash",
	},
	{
		ID:          "chat-model-large",
		Label:       "Large model",
		Description: "Complex, multi-step tasks",
		APIModel:    "googleai/gemini-2.5-pro",
	},
	{
		ID:          "chat-model-reasoning",
		Label:       "Reasoning model",
		Description: "Advanced reasoning over the coaching manual",
		APIModel:    "googleai/gemini-2.5-pro",
	},
}

// All returns the full model catalog.
func All() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup resolves a client-facing model id to its catalog entry.
// Returns ErrNotFound for ids outside the catalog.
func Lookup(id string) (Model, error) {
	for _, m := range catalog {
		if m.ID == id {
			return m, nil
		}
	}
	return Model{}, ErrNotFound
}
