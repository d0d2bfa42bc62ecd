// Package chat orchestrates answer generation. For each question it
// gathers knowledge-base context, assembles the fintech system prompt,
// calls the model with a bounded history window, and records the
// exchange in the conversation log. Category-scoped querying and the
// category taxonomy live in categories.go.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eloquentai/finchat/internal/conversation"
	"github.com/eloquentai/finchat/internal/log"
	"github.com/eloquentai/finchat/internal/provider"
	"github.com/eloquentai/finchat/internal/rag"
)

// Generation parameters, fixed to the values the assistant was tuned
// with.
const (
	// historyWindow caps how many prior messages enter the prompt.
	// The stored log is never truncated; only the prompt view is.
	historyWindow = 10

	maxTokens   = 1000
	temperature = 0.7

	// defaultTopK is the retrieval depth when Config.TopK is unset.
	defaultTopK = 5
)

// persona opens every system prompt.
const persona = "You are EloquentAI, a fintech support assistant. Provide clear, accurate answers about accounts, payments, security, compliance, and troubleshooting. If you are not certain, state assumptions and suggest contacting support for account-specific issues."

// contextGuidance closes the prompt when retrieval produced context.
const contextGuidance = "\n\nUse this information to provide accurate, specific answers. If the information doesn't fully address the question, supplement with general knowledge but clearly indicate when you're doing so."

// noContextGuidance replaces the knowledge-base block when retrieval
// came back empty.
const noContextGuidance = "\n\nNo specific information found in the knowledge base for this query. Provide helpful general information but recommend contacting customer support for account-specific or policy-specific questions."

// ErrNotReady indicates the model provider is not configured, so no
// answer can be generated. Retrieval-only operations keep working.
var ErrNotReady = errors.New("chat service not ready: model provider not configured")

// Completer is the slice of the model provider the orchestrator uses.
type Completer interface {
	Available() bool
	Complete(ctx context.Context, messages []provider.Message, maxTokens int, temperature float32) (string, error)
}

// Retriever supplies knowledge-base context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) rag.Result
}

// Config contains the orchestrator's collaborators.
type Config struct {
	Provider      Completer
	Retriever     Retriever
	Conversations conversation.Store
	TopK          int // retrieval depth (0 = default)
	Logger        log.Logger
}

func (cfg Config) validate() error {
	if cfg.Provider == nil {
		return errors.New("provider is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Conversations == nil {
		return errors.New("conversation store is required")
	}
	return nil
}

// Service answers support questions. All configuration is captured
// immutably at construction, so a Service is safe for concurrent use.
type Service struct {
	provider      Completer
	retriever     Retriever
	conversations conversation.Store
	topK          int
	logger        log.Logger
}

// New creates a Service from cfg.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Service{
		provider:      cfg.Provider,
		retriever:     cfg.Retriever,
		conversations: cfg.Conversations,
		topK:          topK,
		logger:        logger,
	}, nil
}

// Answer is the orchestrator's reply to a single question.
type Answer struct {
	Response       string
	ConversationID string
	Sources        []string
}

// Answer generates a reply to message within the given conversation.
// An empty conversationID starts a fresh conversation under a minted
// id. The returned Sources are the knowledge-base labels that informed
// this reply only.
func (s *Service) Answer(ctx context.Context, message, conversationID string) (Answer, error) {
	if !s.provider.Available() {
		return Answer{}, ErrNotReady
	}

	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	retrieved := s.retriever.Retrieve(ctx, message, s.topK)

	history := s.conversations.History(conversationID)
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{
		Role:    string(conversation.RoleSystem),
		Content: systemPrompt(retrieved),
	})
	for _, m := range history {
		messages = append(messages, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, provider.Message{
		Role:    string(conversation.RoleUser),
		Content: message,
	})

	reply, err := s.provider.Complete(ctx, messages, maxTokens, temperature)
	if err != nil {
		return Answer{}, fmt.Errorf("generating response: %w", err)
	}

	s.conversations.Append(conversationID, conversation.RoleUser, message)
	s.conversations.Append(conversationID, conversation.RoleAssistant, reply)

	s.logger.Debug("answered message",
		"conversation_id", conversationID,
		"history_len", len(history),
		"sources", len(retrieved.Sources),
	)

	return Answer{
		Response:       reply,
		ConversationID: conversationID,
		Sources:        retrieved.Sources,
	}, nil
}

// Retrieve exposes raw context retrieval for the category search and
// stats endpoints. It does not touch the model or the conversation log.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) rag.Result {
	if topK <= 0 {
		topK = s.topK
	}
	return s.retriever.Retrieve(ctx, query, topK)
}

// History returns the full ordered log of a conversation, nil when the
// conversation is unknown.
func (s *Service) History(conversationID string) []conversation.Message {
	return s.conversations.History(conversationID)
}

// ClearConversation removes a conversation log, reporting whether it
// existed.
func (s *Service) ClearConversation(conversationID string) bool {
	return s.conversations.Clear(conversationID)
}

// Available reports whether the model provider is configured.
func (s *Service) Available() bool {
	return s.provider.Available()
}

// systemPrompt builds the system instruction for one request. The
// persona is fixed; the rest depends on whether retrieval found
// anything relevant.
func systemPrompt(retrieved rag.Result) string {
	var b strings.Builder
	b.WriteString(persona)

	if retrieved.Context == "" {
		b.WriteString(noContextGuidance)
		return b.String()
	}

	b.WriteString("\n\nRelevant information from our knowledge base:\n")
	b.WriteString(retrieved.Context)
	if len(retrieved.Categories) > 0 {
		b.WriteString("\n\nThis information comes from the following categories: ")
		b.WriteString(strings.Join(retrieved.Categories, ", "))
	}
	b.WriteString(contextGuidance)
	return b.String()
}
