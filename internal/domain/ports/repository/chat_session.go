package repository

import (
	"context"

	"chat-session-relay/internal/domain/model"
)

// -----------------------------
// Chat Sessions
// -----------------------------

// ChatSessionStore holds session state for the lifetime of the process.
// Implementations must be safe for concurrent access structurally; logical
// read-append-write cycles on one session id are serialized by the
// orchestration layer, not here.
type ChatSessionStore interface {
	// Get returns the session or domain.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*model.ChatSession, error)
	// Put inserts or replaces the session under its id.
	Put(ctx context.Context, session *model.ChatSession) error
	// List returns all sessions in insertion order.
	List(ctx context.Context) ([]*model.ChatSession, error)
}
