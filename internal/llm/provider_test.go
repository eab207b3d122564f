package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"threechat/internal/config"
	"threechat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderFromConfig(t *testing.T) {
	cfg := config.Default()

	p, err := NewProviderFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, DefaultGeminiModel, p.Model())

	cfg.Provider = config.ProviderOpenRouter
	p, err = NewProviderFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderOpenRouter, p.Name())
	assert.Equal(t, DefaultOpenRouterModel, p.Model())

	cfg.Provider = config.ProviderOpenAI
	cfg.Model = "gpt-4.1"
	p, err = NewProviderFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", p.Model())

	cfg.Provider = "ollama"
	_, err = NewProviderFromConfig(cfg)
	assert.ErrorContains(t, err, "unknown provider")
}

func TestNewSession_MissingAPIKey(t *testing.T) {
	providers := []Provider{
		NewGeminiProvider("", "", ""),
		NewOpenAIProvider(config.ProviderOpenRouter, "", "", ""),
		NewOpenAIProvider(config.ProviderOpenAI, "", "", ""),
	}
	for _, p := range providers {
		t.Run(p.Name(), func(t *testing.T) {
			_, err := p.NewSession(context.Background(), SessionConfig{SystemInstruction: "x"})
			assert.ErrorIs(t, err, ErrMissingAPIKey)
		})
	}
}

func TestSeedHistory(t *testing.T) {
	msgs := []models.ChatMessage{
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleModel, Content: "Hel"},
	}

	assert.Equal(t, msgs, SeedHistory(msgs, false))
	assert.Equal(t, msgs[:1], SeedHistory(msgs, true))
	assert.Equal(t, msgs[:1], SeedHistory(msgs[:1], true))
	assert.Empty(t, SeedHistory(nil, true))

	out := SeedHistory(msgs, false)
	out[0].Content = "changed"
	assert.Equal(t, "Hi", msgs[0].Content)
}

func TestOnce(t *testing.T) {
	seq := once(func(yield func(string, error) bool) {
		_ = yield("a", nil) && yield("b", nil)
	})

	var got []string
	for s, err := range seq {
		require.NoError(t, err)
		got = append(got, s)
	}
	assert.Equal(t, []string{"a", "b"}, got)

	for _, err := range seq {
		assert.ErrorIs(t, err, ErrStreamConsumed)
	}
}

// chatServer serves a fake OpenAI-compatible streaming endpoint that replies
// with the configured fragments and records each request's messages.
type chatServer struct {
	mu        sync.Mutex
	fragments []string
	requests  [][]map[string]any
	status    int
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req struct {
		Messages []map[string]any `json:"messages"`
	}
	_ = json.Unmarshal(body, &req)

	s.mu.Lock()
	s.requests = append(s.requests, req.Messages)
	status := s.status
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":{"message":"invalid model","type":"invalid_request_error"}}`)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	s.mu.Lock()
	fragments := s.fragments
	s.mu.Unlock()
	for _, f := range fragments {
		chunk := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion.chunk",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"delta":         map[string]any{"role": "assistant", "content": f},
				"finish_reason": nil,
			}},
		}
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func newTestOpenAISession(t *testing.T, srv *chatServer, cfg SessionConfig) Session {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	p := NewOpenAIProvider(config.ProviderOpenAI, "test-key", "test-model", ts.URL)
	sess, err := p.NewSession(context.Background(), cfg)
	require.NoError(t, err)
	return sess
}

func TestOpenAISession_Streams(t *testing.T) {
	srv := &chatServer{fragments: []string{"Hel", "lo"}}
	sess := newTestOpenAISession(t, srv, SessionConfig{
		SystemInstruction: "be brief",
		History:           []models.ChatMessage{{Role: models.RoleUser, Content: "earlier"}, {Role: models.RoleModel, Content: "reply"}},
	})

	var sb strings.Builder
	for f, err := range sess.SendMessageStream(context.Background(), "Hi") {
		require.NoError(t, err)
		sb.WriteString(f)
	}
	assert.Equal(t, "Hello", sb.String())

	require.Len(t, srv.requests, 1)
	roles := make([]any, 0, len(srv.requests[0]))
	for _, m := range srv.requests[0] {
		roles = append(roles, m["role"])
	}
	assert.Equal(t, []any{"system", "user", "assistant", "user"}, roles)
}

func TestOpenAISession_CompletedTurnJoinsHistory(t *testing.T) {
	srv := &chatServer{fragments: []string{"one"}}
	sess := newTestOpenAISession(t, srv, SessionConfig{})

	for _, err := range sess.SendMessageStream(context.Background(), "first") {
		require.NoError(t, err)
	}
	for _, err := range sess.SendMessageStream(context.Background(), "second") {
		require.NoError(t, err)
	}

	require.Len(t, srv.requests, 2)
	second := srv.requests[1]
	require.Len(t, second, 3)
	assert.Equal(t, "first", second[0]["content"])
	assert.Equal(t, "one", second[1]["content"])
	assert.Equal(t, "second", second[2]["content"])
}

func TestOpenAISession_Error(t *testing.T) {
	srv := &chatServer{status: http.StatusBadRequest}
	sess := newTestOpenAISession(t, srv, SessionConfig{})

	var gotErr error
	for _, err := range sess.SendMessageStream(context.Background(), "Hi") {
		if err != nil {
			gotErr = err
		}
	}
	require.Error(t, gotErr)

	// a failed turn is not recorded
	srv.mu.Lock()
	srv.status = 0
	srv.fragments = []string{"ok"}
	srv.mu.Unlock()
	for _, err := range sess.SendMessageStream(context.Background(), "again") {
		require.NoError(t, err)
	}
	last := srv.requests[len(srv.requests)-1]
	require.Len(t, last, 1)
	assert.Equal(t, "again", last[0]["content"])
}
