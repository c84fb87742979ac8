package adapter

import (
	"context"
	"io"
)

// Message is a wire-level chat message as the completion endpoint expects
// it. Stored message metadata (ids, timestamps) never crosses this boundary.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// APIKey is the per-call credential override. When empty the client
	// falls back to its process-wide key; if that is empty too the call
	// fails before any network I/O.
	APIKey string
}

// Completion is the resolved result of a non-streaming call, reduced to the
// first choice.
type Completion struct {
	Content      string
	FinishReason string
}

// CompletionClient is the port for the chat-completion endpoint.
type CompletionClient interface {
	// Complete performs a synchronous call and returns the finished reply.
	Complete(ctx context.Context, req Request) (*Completion, error)

	// CompleteStream performs a streaming call and hands the raw response
	// byte stream to the caller. Ownership of the handle transfers: the
	// caller must read it to exhaustion or close it.
	CompleteStream(ctx context.Context, req Request) (io.ReadCloser, error)
}

// TokenEstimator reports approximate prompt token counts for observability.
// Estimates are best-effort and must never fail a call.
type TokenEstimator interface {
	EstimateTokens(model string, messages []Message) int
}
