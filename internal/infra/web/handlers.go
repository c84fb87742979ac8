package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chat-session-relay/internal/domain"
	"chat-session-relay/internal/infra/logging"
	"chat-session-relay/internal/infra/sse"
	"chat-session-relay/internal/usecase"
)

// chatRequest is the JSON body of both mutation routes.
type chatRequest struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	Stream  bool   `json:"stream,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Status  int    `json:"status,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func (r chatRequest) mode() usecase.Mode {
	if r.Stream {
		return usecase.ModeStream
	}
	return usecase.ModeSync
}

func (r chatRequest) turnOptions() usecase.TurnOptions {
	return usecase.TurnOptions{Model: r.Model, APIKey: r.APIKey}
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: malformed json body", domain.ErrInvalidArgument))
		return
	}

	session, stream, err := s.chat.CreateSession(r.Context(), req.Message, req.mode(), req.turnOptions())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if stream != nil {
		s.writeStream(w, r, stream)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r = r.WithContext(logging.WithSessID(r.Context(), id))

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: malformed json body", domain.ErrInvalidArgument))
		return
	}

	session, stream, err := s.chat.SendMessage(r.Context(), id, req.Message, req.mode(), req.turnOptions())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if stream != nil {
		s.writeStream(w, r, stream)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	session, err := s.chat.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.chat.ListSessions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": sessions})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeStream drains the transcoded event stream onto the wire with the
// data: <json>\n\n framing. Returning early cancels the request context,
// which tells the transcoder to abandon the turn.
func (s *Server) writeStream(w http.ResponseWriter, r *http.Request, stream *usecase.ChatStream) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	enc := sse.NewEncoder(w)
	for evt := range stream.Events() {
		if err := enc.Write(evt); err != nil {
			s.log.Debug().Err(err).Msg("stream consumer write failed")
			return
		}
	}
	if err := stream.Err(); err != nil {
		s.log.Warn().Err(err).Msg("stream turn failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := errorDetail{Message: "internal error", Type: "internal"}

	var statusErr *domain.UpstreamStatusError
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		status = http.StatusUnauthorized
		detail = errorDetail{Message: err.Error(), Type: "missing_credential"}
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
		detail = errorDetail{Message: err.Error(), Type: "session_not_found"}
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
		detail = errorDetail{Message: err.Error(), Type: "invalid_argument"}
	case errors.As(err, &statusErr):
		status = http.StatusBadGateway
		detail = errorDetail{
			Message: "completion endpoint rejected the request",
			Type:    "upstream_status",
			Status:  statusErr.Status,
			Detail:  statusErr.Body,
		}
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}

	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
