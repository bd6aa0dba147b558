package rewrite

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	mu   sync.Mutex
	path string
	auth string
	body map[string]any
}

func (c *capturedRequest) capture(r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = r.URL.Path
	c.auth = r.Header.Get("Authorization")
	_ = json.Unmarshal(raw, &c.body)
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	rw, err := New(ctx, Config{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIRewriter{}, rw)

	rw, err = New(ctx, Config{APIKey: "k", Provider: "Gemini", Model: "openai/gpt-4o-mini"})
	require.NoError(t, err)
	require.IsType(t, &GeminiRewriter{}, rw)
	assert.Equal(t, DefaultGeminiModel, rw.(*GeminiRewriter).cfg.Model)

	_, err = New(ctx, Config{APIKey: "k", Provider: "claude-as-a-service"})
	assert.Error(t, err)
}

func TestOpenAIRewriter(t *testing.T) {
	req := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.capture(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Shorter take  "}}],
			"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`))
	}))
	defer srv.Close()

	rw := NewOpenAIRewriter(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "openai/gpt-4o-mini", Temperature: 0.7, MaxTokens: 200})
	out, err := rw.Rewrite(context.Background(), "Original text", "Make it short")
	require.NoError(t, err)
	assert.Equal(t, "Shorter take", out)

	req.mu.Lock()
	defer req.mu.Unlock()
	assert.Equal(t, "/chat/completions", req.path)
	assert.Equal(t, "Bearer sk-test", req.auth)
	assert.Equal(t, "openai/gpt-4o-mini", req.body["model"])
	assert.EqualValues(t, 200, req.body["max_tokens"])

	msgs, ok := req.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, systemPrompt, msgs[0].(map[string]any)["content"])
	assert.Equal(t, "Make it short\n\nOriginal tweet:\nOriginal text", msgs[1].(map[string]any)["content"])
}

func TestOpenAIRewriter_EmptyReplyAndPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"   "}}]}`))
	}))
	defer srv.Close()

	rw := NewOpenAIRewriter(Config{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := rw.Rewrite(context.Background(), "x", "prompt")
	assert.ErrorIs(t, err, ErrEmptyReply)

	_, err = rw.Rewrite(context.Background(), "x", "  ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestGeminiRewriter(t *testing.T) {
	req := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.capture(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Gemini take\n"}]}}]}`))
	}))
	defer srv.Close()

	rw, err := NewGeminiRewriter(context.Background(), Config{APIKey: "g-key", BaseURL: srv.URL, Model: "gemini-2.0-flash"})
	require.NoError(t, err)

	out, err := rw.Rewrite(context.Background(), "Original text", "Translate")
	require.NoError(t, err)
	assert.Equal(t, "Gemini take", out)

	req.mu.Lock()
	defer req.mu.Unlock()
	assert.True(t, strings.HasSuffix(req.path, "models/gemini-2.0-flash:generateContent"), req.path)
}
