// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-session-relay/internal/config"
	aiAdapters "chat-session-relay/internal/infra/adapters/ai"
	"chat-session-relay/internal/infra/db/memory"
	"chat-session-relay/internal/infra/logging"
	"chat-session-relay/internal/infra/metrics"
	red "chat-session-relay/internal/infra/redis"
	"chat-session-relay/internal/infra/web"
	"chat-session-relay/internal/usecase"
)

// Set via -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Rate limiting (optional, redis-backed) ----
	var mutationMW []func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter := red.NewRateLimiter(redisClient)
		mutationMW = append(mutationMW, web.RateLimit(limiter, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger))
		log.Printf("rate limit: %d requests per %s per client", cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	// ---- Completion client ----
	base := aiAdapters.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.DefaultModel, cfg.Upstream.Timeout)
	limited := aiAdapters.NewLimitedClient(base, cfg.Upstream.ConcurrentLimit)
	client := aiAdapters.NewInstrumentedClient(limited, aiAdapters.NewTiktokenEstimator(), cfg.Upstream.DefaultModel)
	log.Printf("upstream: base=%s model=%s key=%s", cfg.Upstream.BaseURL, cfg.Upstream.DefaultModel,
		logging.Redact(cfg.Upstream.APIKey, cfg.Runtime.Dev))

	// ---- Store and use case ----
	store := memory.NewChatSessionStore()
	chatUC := usecase.NewChatUseCase(store, client, usecase.ChatOptions{
		SystemPrompt: cfg.Upstream.SystemPrompt,
		DefaultModel: cfg.Upstream.DefaultModel,
		Temperature:  cfg.Upstream.Temperature,
		MaxTokens:    cfg.Upstream.MaxTokens,
	}, logger)

	// ---- HTTP server ----
	srv := web.NewServer(chatUC, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(mutationMW...),
	}
	go func() {
		log.Printf("http listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Println("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	cancel()
}
