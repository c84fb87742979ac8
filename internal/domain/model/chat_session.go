package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents one message within a chat session.
// Messages are immutable once appended.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" | "assistant" | "system"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatSession is the aggregate root for a running conversation. The message
// sequence is append-only and its order is the conversation order; it is
// replayed verbatim to the completion endpoint on every turn.
type ChatSession struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Messages  []ChatMessage `json:"messages"`
}

func NewChatSession(id string) *ChatSession {
	now := time.Now().UTC()
	return &ChatSession{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]ChatMessage, 0, 8),
	}
}

// AppendMessage adds a message with a fresh identifier and timestamp and
// returns it. The appended message must never be mutated afterwards.
func (s *ChatSession) AppendMessage(role, content string) ChatMessage {
	m := ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = m.CreatedAt
	return m
}

// Clone returns a deep copy. Turns are staged on a clone and committed to
// the store only once the completion succeeds, so a failed turn never
// leaves a dangling user message in stored state.
func (s *ChatSession) Clone() *ChatSession {
	cp := *s
	cp.Messages = make([]ChatMessage, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}
