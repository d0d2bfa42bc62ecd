// Package conversation stores per-conversation message history.
//
// History is append-only and never truncated here; prompt windowing is
// the orchestrator's concern. The default [MemoryStore] keeps transcripts
// in process memory, so they last as long as the server does.
package conversation

import "sync"

// Role identifies the author of a message.
type Role string

// Message roles as they appear in transcripts and model prompts.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store records conversation transcripts. Implementations must be safe
// for concurrent use.
type Store interface {
	// Append adds a message to the conversation, creating it if needed.
	Append(id string, role Role, content string)

	// History returns the full ordered transcript, or nil if the
	// conversation is unknown.
	History(id string) []Message

	// Clear removes the conversation and reports whether it existed.
	Clear(id string) bool
}

// MemoryStore is an in-process Store backed by a map.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]Message
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string][]Message)}
}

// Append adds a message, creating the conversation on first use.
func (s *MemoryStore) Append(id string, role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[id] = append(s.conversations[id], Message{Role: role, Content: content})
}

// History returns a copy of the transcript so callers cannot mutate
// stored state.
func (s *MemoryStore) History(id string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.conversations[id]
	if !ok {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Clear removes the conversation if present.
func (s *MemoryStore) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conversations[id]
	if ok {
		delete(s.conversations, id)
	}
	return ok
}
