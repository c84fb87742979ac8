// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"chat-session-relay/internal/domain"
	"chat-session-relay/internal/domain/model"
	"chat-session-relay/internal/domain/ports/adapter"
	"chat-session-relay/internal/domain/ports/repository"
	"chat-session-relay/internal/infra/logging"
	"chat-session-relay/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

// Mode selects the response shape of a conversation turn.
type Mode string

const (
	ModeSync   Mode = "sync"
	ModeStream Mode = "stream"
)

// TurnOptions are the per-call knobs of CreateSession and SendMessage.
type TurnOptions struct {
	Model  string // empty selects the configured default model
	APIKey string // per-call credential override
}

// ChatOptions are the process-wide generation settings applied to every turn.
type ChatOptions struct {
	SystemPrompt string
	DefaultModel string
	Temperature  float64
	MaxTokens    int
}

// ChatUseCase orchestrates sessions, the completion client, and the store.
// Exactly one of the session/stream results is non-nil on success: sync mode
// returns the finalized session, stream mode returns a live ChatStream.
type ChatUseCase interface {
	CreateSession(ctx context.Context, message string, mode Mode, opts TurnOptions) (*model.ChatSession, *ChatStream, error)
	SendMessage(ctx context.Context, sessionID, message string, mode Mode, opts TurnOptions) (*model.ChatSession, *ChatStream, error)
	GetSession(ctx context.Context, id string) (*model.ChatSession, error)
	ListSessions(ctx context.Context) ([]*model.ChatSession, error)
}

type chatUC struct {
	store  repository.ChatSessionStore
	client adapter.CompletionClient
	opts   ChatOptions
	locks  *keyedMutex
	log    *zerolog.Logger
}

func NewChatUseCase(store repository.ChatSessionStore, client adapter.CompletionClient, opts ChatOptions, logger *zerolog.Logger) *chatUC {
	return &chatUC{
		store:  store,
		client: client,
		opts:   opts,
		locks:  newKeyedMutex(),
		log:    logger,
	}
}

// CreateSession starts a session from the first user message and runs the
// first turn. In stream mode the session is stored by the transcoder's
// finalize step, not here.
func (c *chatUC) CreateSession(ctx context.Context, message string, mode Mode, opts TurnOptions) (*model.ChatSession, *ChatStream, error) {
	defer logging.TraceDuration(c.log, "ChatUC.CreateSession")()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidArgument)
	}
	if mode != ModeSync && mode != ModeStream {
		return nil, nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidArgument, mode)
	}

	working := model.NewChatSession(ulid.Make().String())
	working.AppendMessage(model.RoleUser, message)
	metrics.IncSessionCreated()

	c.locks.Lock(working.ID)
	return c.turn(ctx, working, mode, opts)
}

// SendMessage appends one user turn to an existing session. An unknown id
// falls back to CreateSession with the same arguments, so callers holding a
// stale id keep working at the cost of a fresh session. Mutations on one id
// are serialized from snapshot to commit.
func (c *chatUC) SendMessage(ctx context.Context, sessionID, message string, mode Mode, opts TurnOptions) (*model.ChatSession, *ChatStream, error) {
	defer logging.TraceDuration(c.log, "ChatUC.SendMessage")()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidArgument)
	}
	if mode != ModeSync && mode != ModeStream {
		return nil, nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidArgument, mode)
	}

	c.locks.Lock(sessionID)
	working, err := c.store.Get(ctx, sessionID)
	if err != nil {
		c.locks.Unlock(sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.log.Debug().Str("session_id", sessionID).Msg("unknown session, starting a fresh one")
			return c.CreateSession(ctx, message, mode, opts)
		}
		return nil, nil, err
	}

	working.AppendMessage(model.RoleUser, message)
	return c.turn(ctx, working, mode, opts)
}

func (c *chatUC) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	return c.store.Get(ctx, id)
}

func (c *chatUC) ListSessions(ctx context.Context) ([]*model.ChatSession, error) {
	return c.store.List(ctx)
}

// turn runs one completion turn against the working copy. The session lock
// for working.ID must be held on entry; every path releases it, with stream
// mode delegating the release to the transcoder goroutine.
func (c *chatUC) turn(ctx context.Context, working *model.ChatSession, mode Mode, opts TurnOptions) (*model.ChatSession, *ChatStream, error) {
	req := c.buildRequest(working, opts)

	switch mode {
	case ModeStream:
		body, err := c.client.CompleteStream(ctx, req)
		if err != nil {
			c.locks.Unlock(working.ID)
			return nil, nil, err
		}
		return nil, c.startStream(ctx, working, body), nil

	default: // ModeSync, validated by the callers
		defer c.locks.Unlock(working.ID)
		out, err := c.client.Complete(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		working.AppendMessage(model.RoleAssistant, out.Content)
		if err := c.store.Put(ctx, working); err != nil {
			return nil, nil, err
		}
		metrics.IncTurn(string(ModeSync))
		return working, nil, nil
	}
}

// buildRequest renders the full conversation for the completion endpoint.
// The system prompt rides only on the request; stored history never
// contains it.
func (c *chatUC) buildRequest(s *model.ChatSession, opts TurnOptions) adapter.Request {
	modelName := opts.Model
	if modelName == "" {
		modelName = c.opts.DefaultModel
	}
	msgs := make([]adapter.Message, 0, len(s.Messages)+1)
	msgs = append(msgs, adapter.Message{Role: model.RoleSystem, Content: c.opts.SystemPrompt})
	for _, m := range s.Messages {
		msgs = append(msgs, adapter.Message{Role: m.Role, Content: m.Content})
	}
	return adapter.Request{
		Model:       modelName,
		Messages:    msgs,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		APIKey:      opts.APIKey,
	}
}
