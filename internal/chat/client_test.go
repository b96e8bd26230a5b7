package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClient_SendsAttributionHeaders(t *testing.T) {
	var got http.Header
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": "pong"},
			}},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(ClientConfig{
		BaseURL: srv.URL + "/api/v1",
		APIKey:  "sk-test",
		Referer: "https://calmate.example.com/",
		Title:   "CalMate",
	})

	resp, err := client.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:    "test-model",
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "ping"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "pong", resp.Choices[0].Message.Content)

	assert.Equal(t, "/api/v1/chat/completions", path)
	assert.Equal(t, "Bearer sk-test", got.Get("Authorization"))
	assert.Equal(t, "https://calmate.example.com/", got.Get("HTTP-Referer"))
	assert.Equal(t, "CalMate", got.Get("X-Title"))
}

func TestHeaderTransport_DoesNotMutateRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CalMate", r.Header.Get("X-Title"))
	}))
	defer srv.Close()

	tr := &headerTransport{base: http.DefaultTransport, headers: http.Header{"X-Title": {"CalMate"}}}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Empty(t, req.Header.Get("X-Title"))
}
