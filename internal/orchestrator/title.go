package orchestrator

import (
	"context"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/courtsideai/courtside/internal/model"
)

// maxTitleLength bounds generated and derived chat titles.
const maxTitleLength = 80

const titleSystemPrompt = `- you will generate a short title based on the first message a user begins a conversation with
- ensure it is not more than 80 characters long
- the title should be a summary of the user's message
- do not use quotes or colons`

// chatTitle synthesizes a short title for a new chat. Title generation
// never blocks a turn: on any failure the title is derived from the
// user message instead.
func (o *Orchestrator) chatTitle(ctx context.Context, userMessage string) string {
	resp, err := o.generate(ctx, nil,
		ai.WithModelName(model.TitleModel),
		ai.WithSystem(titleSystemPrompt),
		ai.WithPrompt(userMessage),
	)
	if err != nil {
		o.logger.Warn("title generation failed, deriving from message", "error", err)
		return deriveTitle(userMessage)
	}

	title := truncateTitle(strings.TrimSpace(resp.Text()))
	if title == "" {
		return deriveTitle(userMessage)
	}
	return title
}

// deriveTitle is the fallback: the first line of the user message,
// truncated.
func deriveTitle(userMessage string) string {
	line := userMessage
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = truncateTitle(strings.TrimSpace(line))
	if line == "" {
		return "New chat"
	}
	return line
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLength {
		return title
	}
	return string(runes[:maxTitleLength])
}
