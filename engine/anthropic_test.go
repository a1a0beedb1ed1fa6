package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicClient_SendsMessagesRequest(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[
			{"type":"server_tool_use","id":"t1","name":"web_search"},
			{"type":"text","text":"{\"verdict\":"},
			{"type":"web_search_tool_result","tool_use_id":"t1"},
			{"type":"text","text":"\"Caution\"}"}
		],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})
	resp, err := c.Generate(context.Background(), Request{
		System:    "sys",
		User:      "hello",
		MaxTokens: 2048,
		WebSearch: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"verdict":"Caution"}`, resp.Text())
	assert.Len(t, resp.Segments, 4)

	assert.Equal(t, DefaultAnthropicModel, got.Model)
	assert.Equal(t, 2048, got.MaxTokens)
	assert.Equal(t, "sys", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, []anthropicTool{{Type: "web_search_20250305", Name: "web_search"}}, got.Tools)
}

func TestAnthropicClient_NonSuccessIsStatusError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"type":"error","error":{"type":"overloaded_error"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), Request{User: "x"})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Contains(t, se.Body, "overloaded_error")
	assert.Equal(t, 1, calls, "no retries")
}

func TestAnthropicClient_MissingKey(t *testing.T) {
	c := NewAnthropicClient(AnthropicConfig{})
	_, err := c.Generate(context.Background(), Request{User: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnthropicClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewAnthropicClient(AnthropicConfig{APIKey: "k", BaseURL: url})
	_, err := c.Generate(context.Background(), Request{User: "x"})
	require.Error(t, err)

	var se *StatusError
	assert.False(t, errors.As(err, &se))
}
