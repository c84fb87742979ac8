package ai

import (
	"context"
	"io"
	"time"

	"chat-session-relay/internal/domain/ports/adapter"
	"chat-session-relay/internal/infra/metrics"
)

var _ adapter.CompletionClient = (*instrumentedClient)(nil)

// instrumentedClient records call counts, latency and estimated prompt
// tokens around an inner client. For streaming calls the latency covers
// request start to stream-handle receipt.
type instrumentedClient struct {
	inner        adapter.CompletionClient
	estimator    adapter.TokenEstimator
	defaultModel string
}

// NewInstrumentedClient wraps inner with upstream call metrics. estimator
// may be nil, in which case prompt tokens are not counted.
func NewInstrumentedClient(inner adapter.CompletionClient, estimator adapter.TokenEstimator, defaultModel string) adapter.CompletionClient {
	return &instrumentedClient{inner: inner, estimator: estimator, defaultModel: defaultModel}
}

func (c *instrumentedClient) Complete(ctx context.Context, req adapter.Request) (*adapter.Completion, error) {
	model := c.model(req)
	c.countPrompt(model, req.Messages)

	start := time.Now()
	out, err := c.inner.Complete(ctx, req)
	metrics.ObserveUpstreamCall(model, "sync", time.Since(start).Milliseconds(), err == nil)
	return out, err
}

func (c *instrumentedClient) CompleteStream(ctx context.Context, req adapter.Request) (io.ReadCloser, error) {
	model := c.model(req)
	c.countPrompt(model, req.Messages)

	start := time.Now()
	body, err := c.inner.CompleteStream(ctx, req)
	metrics.ObserveUpstreamCall(model, "stream", time.Since(start).Milliseconds(), err == nil)
	return body, err
}

// model resolves the label the same way the base client resolves the
// request model, so metrics match what actually went upstream.
func (c *instrumentedClient) model(req adapter.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return c.defaultModel
}

func (c *instrumentedClient) countPrompt(model string, messages []adapter.Message) {
	if c.estimator == nil {
		return
	}
	metrics.AddPromptTokens(model, c.estimator.EstimateTokens(model, messages))
}
