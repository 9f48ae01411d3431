package tools

import (
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// FetchContextInput carries the retrieval query.
type FetchContextInput struct {
	Query string `json:"query" jsonschema_description:"The search query for the knowledge base"`
}

// FetchContext retrieves knowledge base passages for the model.
// Retrieval failures surface as an empty result set, never as a tool
// failure.
func (k *Kit) FetchContext(ctx *ai.ToolContext, input FetchContextInput) (Result, error) {
	k.logger.Debug("FetchContext called", "query", input.Query)

	if strings.TrimSpace(input.Query) == "" {
		return errorResult(ErrCodeValidation, "query must not be empty"), nil
	}

	passages := k.retriever.Retrieve(ctx.Context, input.Query)

	k.logger.Debug("FetchContext succeeded", "result_count", len(passages))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"query":        input.Query,
			"result_count": len(passages),
			"results":      passages,
		},
	}, nil
}
