package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatUsesMessagesAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])
		system := body["system"].([]any)
		assert.Equal(t, "SYS", system[0].(map[string]any)["text"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "{\"transactions\": []}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", Model: "claude-test", BaseURL: srv.URL}, nil)
	out, err := c.Chat(context.Background(), "SYS", "USER")
	require.NoError(t, err)
	assert.Equal(t, `{"transactions": []}`, out)
}

func TestChatRequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, nil).Chat(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}
