// File: internal/usecase/mocks_test.go
//go:build !integration

package usecase

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chat-session-relay/internal/domain/model"
	"chat-session-relay/internal/domain/ports/adapter"
	"chat-session-relay/internal/domain/ports/repository"
)

// ---- Fakes ----

// fakeClient scripts the completion client and records every request.
type fakeClient struct {
	mu       sync.Mutex
	reply    string // sync reply content
	stream   string // raw SSE bytes handed back by CompleteStream
	err      error  // returned by both calls when set
	requests []adapter.Request
}

func (f *fakeClient) Complete(ctx context.Context, req adapter.Request) (*adapter.Completion, error) {
	f.record(req)
	if f.err != nil {
		return nil, f.err
	}
	return &adapter.Completion{Content: f.reply, FinishReason: "stop"}, nil
}

func (f *fakeClient) CompleteStream(ctx context.Context, req adapter.Request) (io.ReadCloser, error) {
	f.record(req)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.stream)), nil
}

func (f *fakeClient) record(req adapter.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
}

func (f *fakeClient) seen() []adapter.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]adapter.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// trackingClient counts overlapping Complete calls to expose lost-update
// races on one session id.
type trackingClient struct {
	reply    string
	delay    time.Duration
	inFlight int32
	maxSeen  int32
}

func (t *trackingClient) Complete(ctx context.Context, req adapter.Request) (*adapter.Completion, error) {
	n := atomic.AddInt32(&t.inFlight, 1)
	for {
		p := atomic.LoadInt32(&t.maxSeen)
		if n <= p || atomic.CompareAndSwapInt32(&t.maxSeen, p, n) {
			break
		}
	}
	time.Sleep(t.delay)
	atomic.AddInt32(&t.inFlight, -1)
	return &adapter.Completion{Content: t.reply, FinishReason: "stop"}, nil
}

func (t *trackingClient) CompleteStream(ctx context.Context, req adapter.Request) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("data: [DONE]\n\n")), nil
}

// failingStore delegates to a real store but can reject Put.
type failingStore struct {
	repository.ChatSessionStore
	putErr error
}

func (f *failingStore) Put(ctx context.Context, s *model.ChatSession) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.ChatSessionStore.Put(ctx, s)
}
