package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/document"
	"github.com/courtsideai/courtside/internal/rag"
)

// DocumentStore is the persistence surface the document tools need.
// *document.Store satisfies it; tests swap in a fake.
type DocumentStore interface {
	Save(ctx context.Context, id uuid.UUID, title, content string, kind document.Kind, owner uuid.UUID) (document.Document, error)
	CurrentByID(ctx context.Context, id uuid.UUID) (document.Document, error)
	SaveSuggestions(ctx context.Context, suggestions []document.Suggestion) error
}

// Retriever fetches grounding passages. *rag.Client satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []rag.Passage
}

// persistGrace bounds the detached write window after generation. A
// client disconnect cancels the request context, but an artifact whose
// generation completed still gets saved.
const persistGrace = 10 * time.Second

func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistGrace)
}

// StreamCallback is called for each chunk of a streaming generation.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// generateFunc runs one model generation, invoking cb per chunk when
// cb is non-nil. Production wires it to genkit.Generate; tests
// substitute a scripted function.
type generateFunc func(ctx context.Context, cb StreamCallback, opts ...ai.GenerateOption) (*ai.ModelResponse, error)

const defaultWeatherBaseURL = "https://api.open-meteo.com"

// KitConfig holds the dependencies for NewKit.
type KitConfig struct {
	Documents DocumentStore
	Retriever Retriever

	// HTTPClient serves the weather tool. nil gets a 10s-timeout client.
	HTTPClient *http.Client

	// WeatherBaseURL overrides the open-meteo endpoint in tests.
	WeatherBaseURL string

	Logger *slog.Logger
}

// Kit is the set of tool executors registered with Genkit for chat
// turns.
type Kit struct {
	documents      DocumentStore
	retriever      Retriever
	httpClient     *http.Client
	weatherBaseURL string
	logger         *slog.Logger
	generate       generateFunc
}

// NewKit creates a Kit bound to the given Genkit instance.
func NewKit(g *genkit.Genkit, cfg KitConfig) (*Kit, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if cfg.Documents == nil {
		return nil, fmt.Errorf("KitConfig.Documents is required")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("KitConfig.Retriever is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	weatherBaseURL := cfg.WeatherBaseURL
	if weatherBaseURL == "" {
		weatherBaseURL = defaultWeatherBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Kit{
		documents:      cfg.Documents,
		retriever:      cfg.Retriever,
		httpClient:     httpClient,
		weatherBaseURL: weatherBaseURL,
		logger:         logger,
		generate: func(ctx context.Context, cb StreamCallback, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
			if cb != nil {
				opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
					return cb(ctx, chunk)
				}))
			}
			return genkit.Generate(ctx, g, opts...)
		},
	}, nil
}

// Register declares all chat tools with Genkit.
func (k *Kit) Register(g *genkit.Genkit) error {
	if g == nil {
		return fmt.Errorf("genkit instance is required")
	}

	genkit.DefineTool(g, "getWeather",
		"Get the current weather at a location. "+
			"Takes latitude and longitude coordinates and returns current temperature, "+
			"hourly forecast, and sunrise/sunset times.",
		k.GetWeather)

	genkit.DefineTool(g, "createDocument",
		"Create a document for writing or content creation activities like image generation. "+
			"This tool will call other functions that will generate the contents of the "+
			"document based on the title and kind. The document content streams to the user "+
			"as it is generated; do not repeat it in your reply.",
		k.CreateDocument)

	genkit.DefineTool(g, "updateDocument",
		"Update an existing document with the given description of changes. "+
			"The updated content streams to the user; do not repeat it in your reply. "+
			"Do not update a document immediately after creating it; wait for user feedback.",
		k.UpdateDocument)

	genkit.DefineTool(g, "requestSuggestions",
		"Request writing suggestions for an existing document. "+
			"Streams up to five suggested edits to the user, each pairing an original "+
			"sentence with a suggested replacement.",
		k.RequestSuggestions)

	genkit.DefineTool(g, "fetchContext",
		"Fetch relevant context from the EHF RINCK Convention knowledge base. "+
			"Use this when the user asks about coaching education, licensing levels, "+
			"or convention rules that need authoritative passages.",
		k.FetchContext)

	k.logger.Debug("registered chat tools")
	return nil
}

// All returns references for every tool registered with Genkit.
func (k *Kit) All(g *genkit.Genkit) []ai.ToolRef {
	tools := genkit.ListTools(g)
	refs := make([]ai.ToolRef, len(tools))
	for i, t := range tools {
		refs[i] = t
	}
	return refs
}
