package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/ai"
)

type claudeBody struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    string `json:"system"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func TestClaude_Generate(t *testing.T) {
	var got claudeBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","content":[{"type":"text","text":" Focus on the essay. "}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c := ai.NewClaude("secret", ai.WithClaudeBaseURL(srv.URL), ai.WithClaudeModel("test-model"))
	out, err := c.Generate(context.Background(), "what now?", ai.Options{
		MaxTokens: 50,
		System:    "be brief",
		History: []ai.Message{
			{Role: ai.RoleAssistant, Content: "dropped"},
			{Role: ai.RoleUser, Content: "earlier"},
			{Role: ai.RoleAssistant, Content: "reply"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Focus on the essay.", out)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 50, got.MaxTokens)
	assert.Equal(t, "be brief", got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "earlier", got.Messages[0].Content[0].Text)
	assert.Equal(t, "what now?", got.Messages[2].Content[0].Text)
}

func TestClaude_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer srv.Close()

	c := ai.NewClaude("k", ai.WithClaudeBaseURL(srv.URL), ai.WithClaudeRetry(3, time.Millisecond))
	_, err := c.Generate(context.Background(), "hi", ai.Options{})

	var pe *ai.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.Contains(t, pe.Error(), "bad model")
	assert.EqualValues(t, 1, hits.Load())
}

func TestClaude_ServerErrorRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"finally"}]}`))
	}))
	defer srv.Close()

	c := ai.NewClaude("k", ai.WithClaudeBaseURL(srv.URL), ai.WithClaudeRetry(3, time.Millisecond))
	out, err := c.Generate(context.Background(), "hi", ai.Options{})
	require.NoError(t, err)
	assert.Equal(t, "finally", out)
	assert.EqualValues(t, 3, hits.Load())
}
