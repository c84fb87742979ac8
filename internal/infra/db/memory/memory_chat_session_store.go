// File: internal/infra/db/memory/memory_chat_session_store.go
package memory

import (
	"context"
	"fmt"
	"sync"

	"chat-session-relay/internal/domain"
	"chat-session-relay/internal/domain/model"
	"chat-session-relay/internal/domain/ports/repository"
)

// ChatSessionStore keeps sessions in process memory. There is no external
// durability: contents live and die with the process.
var _ repository.ChatSessionStore = (*ChatSessionStore)(nil)

type ChatSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.ChatSession
	order    []string // ids in first-insert order, backs List
}

func NewChatSessionStore() *ChatSessionStore {
	return &ChatSessionStore{sessions: make(map[string]*model.ChatSession)}
}

// Get returns a deep copy so callers can mutate their view freely before
// committing it back with Put.
func (s *ChatSessionStore) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Put inserts or replaces the stored session. The store keeps its own deep
// copy, so later mutations by the caller do not leak in. Replacing an
// existing id does not change its List position.
func (s *ChatSessionStore) Put(ctx context.Context, session *model.ChatSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session id is empty", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		s.order = append(s.order, session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// List returns deep copies of all sessions in first-insert order.
func (s *ChatSessionStore) List(ctx context.Context) ([]*model.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.ChatSession, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].Clone())
	}
	return out, nil
}
