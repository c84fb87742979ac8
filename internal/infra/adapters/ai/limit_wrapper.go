// File: internal/infra/adapters/ai/limit_wrapper.go
package ai

import (
	"context"
	"io"
	"sync"

	"chat-session-relay/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.CompletionClient = (*limitedClient)(nil)

// limitedClient caps the number of in-flight upstream calls.
type limitedClient struct {
	inner adapter.CompletionClient
	sem   chan struct{}
}

// NewLimitedClient wraps inner so at most maxConcurrent calls run at once.
// A non-positive limit disables the cap.
func NewLimitedClient(inner adapter.CompletionClient, maxConcurrent int) adapter.CompletionClient {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedClient{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedClient) Complete(ctx context.Context, req adapter.Request) (*adapter.Completion, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() { <-l.sem }()
	return l.inner.Complete(ctx, req)
}

// CompleteStream holds its slot until the caller closes the returned handle;
// generation is still running upstream for as long as the stream is open.
func (l *limitedClient) CompleteStream(ctx context.Context, req adapter.Request) (io.ReadCloser, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	body, err := l.inner.CompleteStream(ctx, req)
	if err != nil {
		<-l.sem
		return nil, err
	}
	return &slotStream{ReadCloser: body, release: func() { <-l.sem }}, nil
}

func (l *limitedClient) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slotStream releases its semaphore slot exactly once, on first Close.
type slotStream struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (s *slotStream) Close() error {
	err := s.ReadCloser.Close()
	s.once.Do(s.release)
	return err
}
