// Package orchestrator runs one chat turn end to end: ensure the chat
// exists, persist the user message, retrieve grounding passages,
// generate the response with tools active, and persist the sanitized
// outcome while streaming events to the client.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/chat"
	"github.com/courtsideai/courtside/internal/identity"
	"github.com/courtsideai/courtside/internal/model"
	"github.com/courtsideai/courtside/internal/rag"
	"github.com/courtsideai/courtside/internal/stream"
	"github.com/courtsideai/courtside/internal/tools"
)

const (
	// defaultMaxSteps bounds how many tool-augmented generation steps
	// the model may chain in one turn.
	defaultMaxSteps = 5

	// defaultTurnTimeout is the wall-clock ceiling for a whole turn.
	defaultTurnTimeout = 60 * time.Second
)

// ChatStore is the chat persistence surface a turn needs. *chat.Store
// satisfies it.
type ChatStore interface {
	ChatByID(ctx context.Context, id uuid.UUID) (chat.Chat, error)
	CreateChat(ctx context.Context, id uuid.UUID, title string, owner uuid.UUID) (chat.Chat, error)
	SaveMessages(ctx context.Context, messages []chat.Message) error
}

// Retriever fetches grounding passages. *rag.Client satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []rag.Passage
}

// generateFunc runs one model generation, invoking cb per chunk when cb
// is non-nil. Production wires it to genkit.Generate.
type generateFunc func(ctx context.Context, cb func(context.Context, *ai.ModelResponseChunk) error, opts ...ai.GenerateOption) (*ai.ModelResponse, error)

// Config holds the dependencies for New.
type Config struct {
	Genkit    *genkit.Genkit
	Chats     ChatStore
	Retriever Retriever

	// Tools is the active tool set, usually tools.Kit.All.
	Tools []ai.ToolRef

	Logger *slog.Logger

	// MaxSteps bounds the tool-augmented step loop. 0 means the
	// default of 5.
	MaxSteps int

	// TurnTimeout is the per-turn wall-clock ceiling. 0 means the
	// default of 60s.
	TurnTimeout time.Duration
}

// Orchestrator creates turns. Safe for concurrent use; all per-request
// state lives on the Turn.
type Orchestrator struct {
	chats     ChatStore
	retriever Retriever
	tools     []ai.ToolRef
	logger    *slog.Logger
	maxSteps  int
	timeout   time.Duration
	generate  generateFunc
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Genkit == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if cfg.Chats == nil {
		return nil, fmt.Errorf("Config.Chats is required")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("Config.Retriever is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	timeout := cfg.TurnTimeout
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}

	g := cfg.Genkit
	return &Orchestrator{
		chats:     cfg.Chats,
		retriever: cfg.Retriever,
		tools:     cfg.Tools,
		logger:    logger,
		maxSteps:  maxSteps,
		timeout:   timeout,
		generate: func(ctx context.Context, cb func(context.Context, *ai.ModelResponseChunk) error, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
			if cb != nil {
				opts = append(opts, ai.WithStreaming(cb))
			}
			return genkit.Generate(ctx, g, opts...)
		},
	}, nil
}

// InboundMessage is one client-supplied conversation message.
type InboundMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is the inbound payload of one chat turn.
type TurnRequest struct {
	ChatID   uuid.UUID        `json:"id"`
	Messages []InboundMessage `json:"messages"`
	ModelID  string           `json:"modelId"`
}

// Turn is one validated request/response cycle ready to run.
type Turn struct {
	orch        *Orchestrator
	req         TurnRequest
	model       model.Model
	userMessage InboundMessage
}

// NewTurn validates the request before any streaming begins. Unknown
// model ids and requests without a user message fail here so the
// transport can still answer with a plain status code.
func (o *Orchestrator) NewTurn(_ context.Context, req TurnRequest) (*Turn, error) {
	m, err := model.Lookup(req.ModelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, req.ModelID)
	}

	userMessage, ok := lastUserMessage(req.Messages)
	if !ok {
		return nil, ErrNoUserMessage
	}

	return &Turn{orch: o, req: req, model: m, userMessage: userMessage}, nil
}

// lastUserMessage finds the most recent user message with content.
func lastUserMessage(messages []InboundMessage) (InboundMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == "user" && strings.TrimSpace(m.Content) != "" {
			return m, true
		}
	}
	return InboundMessage{}, false
}

// Run executes the turn, streaming events to the emitter. Errors
// returned here happen after validation, so the transport reports them
// in-band.
func (t *Turn) Run(ctx context.Context, emitter stream.Emitter) error {
	o := t.orch

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	owner, _ := identity.Owner(ctx)

	if err := t.ensureChat(ctx, owner); err != nil {
		return err
	}

	// The user's input is durable before any generation starts.
	err := o.chats.SaveMessages(ctx, []chat.Message{{
		ID:        uuid.New(),
		ChatID:    t.req.ChatID,
		Role:      chat.RoleUser,
		Content:   t.userMessage.Content,
		CreatedAt: time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("saving user message: %w", err)
	}

	passages := o.retriever.Retrieve(ctx, t.userMessage.Content)
	system := rag.BuildSystemPrompt(passages)

	history := toModelMessages(t.req.Messages)

	genCtx := tools.ContextWithTurn(ctx, &tools.Turn{
		Emitter:   emitter,
		Owner:     owner,
		ModelName: t.model.APIModel,
	})

	resp, err := o.generate(genCtx,
		func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			if text := chunk.Text(); text != "" {
				emit(emitter, stream.TextDelta(text))
			}
			return nil
		},
		ai.WithModelName(t.model.APIModel),
		ai.WithSystem(system),
		ai.WithMessages(history...),
		ai.WithTools(o.tools...),
		ai.WithMaxTurns(o.maxSteps),
	)
	if err != nil {
		return fmt.Errorf("generating response: %w", err)
	}

	// Events already streamed cannot be retracted, so persistence
	// failures after this point are logged and absorbed.
	t.persistResponse(ctx, emitter, responseMessages(resp, history))
	return nil
}

// ensureChat creates the chat row on first contact, synthesizing a
// title from the user message.
func (t *Turn) ensureChat(ctx context.Context, owner uuid.UUID) error {
	o := t.orch

	_, err := o.chats.ChatByID(ctx, t.req.ChatID)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("loading chat: %w", err)
	}

	title := o.chatTitle(ctx, t.userMessage.Content)
	if _, err := o.chats.CreateChat(ctx, t.req.ChatID, title, owner); err != nil {
		return fmt.Errorf("creating chat: %w", err)
	}
	return nil
}

// persistResponse stores the sanitized response messages, each under a
// fresh server-assigned id announced via a message annotation.
func (t *Turn) persistResponse(ctx context.Context, emitter stream.Emitter, messages []*ai.Message) {
	o := t.orch

	var toSave []chat.Message
	for _, m := range sanitizeResponseMessages(messages) {
		content := flattenContent(m)
		if content == "" {
			continue
		}
		toSave = append(toSave, chat.Message{
			ID:        uuid.New(),
			ChatID:    t.req.ChatID,
			Role:      persistedRole(m.Role),
			Content:   content,
			CreatedAt: time.Now(),
		})
	}
	if len(toSave) == 0 {
		return
	}

	if err := o.chats.SaveMessages(ctx, toSave); err != nil {
		o.logger.Warn("persisting response messages failed",
			"chat_id", t.req.ChatID, "count", len(toSave), "error", err)
		return
	}
	for _, m := range toSave {
		emit(emitter, stream.Annotation(m.ID.String()))
	}
}

// responseMessages collects the messages the generation produced beyond
// what was submitted: intermediate tool steps plus the final message.
func responseMessages(resp *ai.ModelResponse, submitted []*ai.Message) []*ai.Message {
	if resp == nil {
		return nil
	}
	var out []*ai.Message
	if resp.Request != nil {
		out = append(out, newRequestMessages(resp.Request.Messages, submitted)...)
	}
	if resp.Message != nil {
		out = append(out, resp.Message)
	}
	return out
}

// newRequestMessages slices off the request messages the tool loop
// appended during generation. The model request opens with the
// synthesized system prompt followed by the submitted history, so the
// boundary sits after the last submitted message, located by identity
// since the history slice is handed to the model request as-is.
func newRequestMessages(request, submitted []*ai.Message) []*ai.Message {
	if len(submitted) > 0 {
		last := submitted[len(submitted)-1]
		for i := len(request) - 1; i >= 0; i-- {
			if request[i] == last {
				return request[i+1:]
			}
		}
	}
	// Identity match failed, so fall back to counting: skip the leading
	// system prompt plus the submitted history.
	start := 0
	for start < len(request) && request[start].Role == ai.RoleSystem {
		start++
	}
	start += len(submitted)
	if start >= len(request) {
		return nil
	}
	return request[start:]
}

// flattenContent reduces a message's parts to the stored string form.
// Text parts pass through; tool requests and responses serialize to
// JSON so replayed history keeps the structured call record.
func flattenContent(m *ai.Message) string {
	var parts []string
	for _, p := range m.Content {
		if p == nil {
			continue
		}
		switch {
		case p.IsText(), p.IsMedia():
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		case p.IsToolRequest() && p.ToolRequest != nil:
			if b, err := json.Marshal(p.ToolRequest); err == nil {
				parts = append(parts, string(b))
			}
		case p.IsToolResponse() && p.ToolResponse != nil:
			if b, err := json.Marshal(p.ToolResponse); err == nil {
				parts = append(parts, string(b))
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// toModelMessages converts client messages to model history. Roles the
// model cannot replay are skipped.
func toModelMessages(messages []InboundMessage) []*ai.Message {
	out := make([]*ai.Message, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case "user":
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case "assistant":
			out = append(out, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		case "system":
			out = append(out, ai.NewSystemMessage(ai.NewTextPart(m.Content)))
		}
	}
	return out
}

func persistedRole(role ai.Role) chat.Role {
	switch role {
	case ai.RoleModel:
		return chat.RoleAssistant
	case ai.RoleTool:
		return chat.RoleTool
	case ai.RoleSystem:
		return chat.RoleSystem
	default:
		return chat.RoleAssistant
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, chat.ErrNotFound)
}

// emit forwards an event, swallowing transport errors: a disconnected
// client must not abort the turn.
func emit(emitter stream.Emitter, ev stream.Event) {
	if emitter == nil {
		return
	}
	_ = emitter.Emit(ev)
}
