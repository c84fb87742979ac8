package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chat-session-relay/internal/usecase"
)

// Server exposes the session relay over HTTP.
type Server struct {
	chat usecase.ChatUseCase
	log  *zerolog.Logger
}

func NewServer(chat usecase.ChatUseCase, logger *zerolog.Logger) *Server {
	return &Server{chat: chat, log: logger}
}

// Router assembles the chi mux. mutationMW wraps only the two routes that
// start completion turns; health and metrics stay unthrottled.
func (s *Server) Router(mutationMW ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(mut chi.Router) {
			for _, mw := range mutationMW {
				mut.Use(mw)
			}
			mut.Post("/chats", s.handleCreateChat)
			mut.Post("/chats/{id}/messages", s.handleSendMessage)
		})
		api.Get("/chats", s.handleListChats)
		api.Get("/chats/{id}", s.handleGetChat)
	})
	return r
}
