// File: internal/usecase/transcoder.go
package usecase

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/google/uuid"

	"chat-session-relay/internal/domain"
	"chat-session-relay/internal/domain/model"
	"chat-session-relay/internal/infra/metrics"
	"chat-session-relay/internal/infra/sse"
)

// streamBuffer keeps a fast upstream from stalling on a consumer that is a
// few events behind.
const streamBuffer = 16

// streamFrame is one upstream data record. Providers emit either the OpenAI
// delta shape or a flat content field; both are decoded.
type streamFrame struct {
	Content string `json:"content"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (f *streamFrame) text() string {
	if f.Content != "" {
		return f.Content
	}
	if len(f.Choices) > 0 {
		return f.Choices[0].Delta.Content
	}
	return ""
}

// ChatStream is a live transcoded view of one streaming turn. Events yields
// message_delta events followed by exactly one chat_complete on success; the
// channel closes on completion or failure. Err must be read only after
// Events is closed.
type ChatStream struct {
	events chan model.StreamEvent
	err    error
}

func (s *ChatStream) Events() <-chan model.StreamEvent { return s.events }

// Err reports why the stream terminated. A closed event channel with a nil
// Err and no chat_complete event means the consumer went away first.
func (s *ChatStream) Err() error { return s.err }

// startStream hands body to the transcoding goroutine. The goroutine owns
// the working session, the body, and the session lock for working.ID, and
// releases all three exactly once.
func (c *chatUC) startStream(ctx context.Context, working *model.ChatSession, body io.ReadCloser) *ChatStream {
	cs := &ChatStream{events: make(chan model.StreamEvent, streamBuffer)}
	go cs.run(ctx, c, working, body)
	return cs
}

func (s *ChatStream) run(ctx context.Context, c *chatUC, working *model.ChatSession, body io.ReadCloser) {
	defer close(s.events)
	defer c.locks.Unlock(working.ID)
	defer body.Close()

	metrics.IncActiveStreams()
	defer metrics.DecActiveStreams()

	log := c.log.With().Str("session_id", working.ID).Logger()

	var reply strings.Builder
	dec := sse.NewDecoder(body)
	for {
		payload, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.err = &domain.UpstreamStreamError{Err: err}
			metrics.IncStreamFinalize("error")
			log.Warn().Err(err).Msg("completion stream aborted")
			return
		}

		var frame streamFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			// Complete but unparseable record: count it and keep reading.
			metrics.IncMalformedFrame()
			log.Debug().Err(err).Int("bytes", len(payload)).Msg("malformed stream frame skipped")
			continue
		}
		fragment := frame.text()
		if fragment == "" {
			continue
		}
		reply.WriteString(fragment)
		metrics.IncStreamDelta()
		if !s.emit(ctx, model.MessageDelta(fragment, uuid.NewString())) {
			s.err = &domain.UpstreamStreamError{Err: ctx.Err()}
			metrics.IncStreamFinalize("error")
			log.Debug().Msg("stream consumer gone, turn dropped")
			return
		}
	}

	// Upstream closed the stream: the one and only commit point for this turn.
	working.AppendMessage(model.RoleAssistant, reply.String())
	if err := c.store.Put(ctx, working); err != nil {
		s.err = err
		metrics.IncStreamFinalize("error")
		log.Error().Err(err).Msg("session commit failed after stream completion")
		return
	}
	metrics.IncStreamFinalize("complete")
	metrics.IncTurn("stream")
	s.emit(ctx, model.ChatComplete(working))
}

func (s *ChatStream) emit(ctx context.Context, evt model.StreamEvent) bool {
	select {
	case s.events <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}
