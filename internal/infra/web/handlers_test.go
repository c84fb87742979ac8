//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-session-relay/internal/domain"
	"chat-session-relay/internal/domain/model"
	"chat-session-relay/internal/domain/ports/adapter"
	"chat-session-relay/internal/infra/db/memory"
	"chat-session-relay/internal/infra/redis"
	"chat-session-relay/internal/usecase"
)

// stubClient scripts the completion client behind the real use case.
type stubClient struct {
	reply  string
	stream string
	err    error
}

func (s *stubClient) Complete(ctx context.Context, req adapter.Request) (*adapter.Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &adapter.Completion{Content: s.reply, FinishReason: "stop"}, nil
}

func (s *stubClient) CompleteStream(ctx context.Context, req adapter.Request) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.stream)), nil
}

func newTestRouter(client adapter.CompletionClient, mutationMW ...func(http.Handler) http.Handler) http.Handler {
	nop := zerolog.Nop()
	uc := usecase.NewChatUseCase(memory.NewChatSessionStore(), client, usecase.ChatOptions{
		SystemPrompt: "You are a helpful assistant.",
		DefaultModel: "gpt-4o-mini",
		Temperature:  0.7,
		MaxTokens:    256,
	}, &nop)
	return NewServer(uc, &nop).Router(mutationMW...)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateChatSync(t *testing.T) {
	router := newTestRouter(&stubClient{reply: "hi there"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/chats", `{"message":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var session model.ChatSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.ID)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, model.RoleUser, session.Messages[0].Role)
	assert.Equal(t, "hello", session.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, session.Messages[1].Role)
	assert.Equal(t, "hi there", session.Messages[1].Content)
	assert.False(t, session.CreatedAt.IsZero())

	// The stored session is readable back through the API.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/chats/"+session.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched model.ChatSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, session.ID, fetched.ID)
	assert.Len(t, fetched.Messages, 2)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/chats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Chats []model.ChatSession `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Chats, 1)
	assert.Equal(t, session.ID, listing.Chats[0].ID)
}

func TestSendMessageRoute(t *testing.T) {
	router := newTestRouter(&stubClient{reply: "ok"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/chats", `{"message":"first"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var session model.ChatSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = doJSON(t, router, http.MethodPost, "/api/v1/chats/"+session.ID+"/messages", `{"message":"second"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.ChatSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, session.ID, updated.ID)
	require.Len(t, updated.Messages, 4)
	assert.Equal(t, "second", updated.Messages[2].Content)
}

func TestCreateChatStreamFraming(t *testing.T) {
	router := newTestRouter(&stubClient{
		stream: "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
			"data: [DONE]\n\n",
	})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/chats", `{"message":"hi","stream":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)

	body := rec.Body.String()
	require.True(t, strings.HasSuffix(body, "\n\n"), "stream must end with a record separator")

	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	require.Len(t, frames, 3)

	var contents []string
	var completes int
	var finalChat *model.ChatSession
	for _, frame := range frames {
		require.True(t, strings.HasPrefix(frame, "data: "), "frame %q lacks the data: prefix", frame)
		var evt model.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &evt))
		switch evt.Type {
		case model.EventMessageDelta:
			assert.NotEmpty(t, evt.MessageID, "delta without messageId")
			contents = append(contents, evt.Content)
		case model.EventChatComplete:
			completes++
			finalChat = evt.Chat
		default:
			t.Fatalf("unexpected event type %q", evt.Type)
		}
	}

	assert.Equal(t, []string{"Hel", "lo"}, contents)
	require.Equal(t, 1, completes, "chat_complete must be emitted exactly once")
	require.NotNil(t, finalChat)
	require.Len(t, finalChat.Messages, 2)
	assert.Equal(t, "Hello", finalChat.Messages[1].Content)

	// The finalized session is retrievable afterwards.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/chats/"+finalChat.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	t.Run("missing credential maps to 401", func(t *testing.T) {
		router := newTestRouter(&stubClient{err: domain.ErrMissingCredential})
		rec := doJSON(t, router, http.MethodPost, "/api/v1/chats", `{"message":"hi"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "missing_credential", body.Error.Type)
	})

	t.Run("unknown session maps to 404", func(t *testing.T) {
		router := newTestRouter(&stubClient{reply: "x"})
		rec := doJSON(t, router, http.MethodGet, "/api/v1/chats/nope", "")
		require.Equal(t, http.StatusNotFound, rec.Code)

		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "session_not_found", body.Error.Type)
	})

	t.Run("upstream rejection maps to 502 with detail", func(t *testing.T) {
		router := newTestRouter(&stubClient{err: &domain.UpstreamStatusError{Status: 401, Body: "bad key"}})
		rec := doJSON(t, router, http.MethodPost, "/api/v1/chats", `{"message":"hi"}`)
		require.Equal(t, http.StatusBadGateway, rec.Code)

		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "upstream_status", body.Error.Type)
		assert.Equal(t, 401, body.Error.Status)
		assert.Equal(t, "bad key", body.Error.Detail)
	})

	t.Run("malformed body maps to 400", func(t *testing.T) {
		router := newTestRouter(&stubClient{reply: "x"})
		rec := doJSON(t, router, http.MethodPost, "/api/v1/chats", `{"message":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "invalid_argument", body.Error.Type)
	})

	t.Run("blank message maps to 400", func(t *testing.T) {
		router := newTestRouter(&stubClient{reply: "x"})
		rec := doJSON(t, router, http.MethodPost, "/api/v1/chats", `{"message":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// countingRedis implements redis.RedisClient in memory.
type countingRedis struct {
	counts map[string]int64
}

func (c *countingRedis) Ping(ctx context.Context) error { return nil }
func (c *countingRedis) Incr(ctx context.Context, key string) (int64, error) {
	c.counts[key]++
	return c.counts[key], nil
}
func (c *countingRedis) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }
func (c *countingRedis) Close() error                                                    { return nil }

func TestRateLimitOnMutationRoutes(t *testing.T) {
	nop := zerolog.Nop()
	limiter := redis.NewRateLimiter(&countingRedis{counts: make(map[string]int64)})
	router := newTestRouter(&stubClient{reply: "ok"}, RateLimit(limiter, 1, time.Minute, &nop))

	rec := doJSON(t, router, http.MethodPost, "/api/v1/chats", `{"message":"one"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/chats", `{"message":"two"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body.Error.Type)

	// Read routes stay outside the throttle group.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/chats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router := newTestRouter(&stubClient{reply: "ok"})

	rec := doJSON(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = doJSON(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
