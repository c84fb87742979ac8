// File: internal/infra/adapters/ai/client.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chat-session-relay/internal/domain"
	"chat-session-relay/internal/domain/ports/adapter"
)

// Compile-time assurance this client satisfies the port
var _ adapter.CompletionClient = (*Client)(nil)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL string // e.g., https://api.openai.com/v1
	apiKey  string // process-wide fallback credential
	model   string // applied when a request names no model
	client  *http.Client
	// A streaming response stays open for the whole generation, so the
	// stream client carries no overall deadline; cancellation comes from
	// the request context.
	streamClient *http.Client
}

func NewClient(baseURL, apiKey, defaultModel string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		model:        defaultModel,
		client:       &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}
}

// completionRequest is the wire body of POST {base}/chat/completions.
type completionRequest struct {
	Model       string            `json:"model"`
	Messages    []adapter.Message `json:"messages"`
	Stream      bool              `json:"stream"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message      adapter.Message `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
}

// Complete performs a synchronous completion call and reduces the reply to
// the first choice.
func (c *Client) Complete(ctx context.Context, req adapter.Request) (*adapter.Completion, error) {
	httpReq, err := c.newRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call completion endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var payload completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return nil, errors.New("completion response has no choices")
	}
	first := payload.Choices[0]
	return &adapter.Completion{
		Content:      first.Message.Content,
		FinishReason: first.FinishReason,
	}, nil
}

// CompleteStream performs a streaming call and returns the raw upstream byte
// stream. Ownership transfers to the caller, which must close the handle.
func (c *Client) CompleteStream(ctx context.Context, req adapter.Request) (io.ReadCloser, error) {
	httpReq, err := c.newRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call completion endpoint: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp.Body, nil
}

// newRequest validates the call and builds the HTTP request. Credential
// resolution happens here: per-call key, then process-wide key, then failure
// before any network I/O.
func (c *Client) newRequest(ctx context.Context, req adapter.Request, stream bool) (*http.Request, error) {
	key := req.APIKey
	if key == "" {
		key = c.apiKey
	}
	if key == "" {
		return nil, domain.ErrMissingCredential
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: message history is empty", domain.ErrInvalidArgument)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    req.Messages,
		Stream:      stream,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.UpstreamStatusError{
		Status: resp.StatusCode,
		Body:   string(b),
	}
}
