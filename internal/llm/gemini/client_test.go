package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}

func TestChatGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gen := body["generationConfig"].(map[string]any)
		assert.Equal(t, "application/json", gen["responseMimeType"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"name\":\"Nubank\",\"confidence\":0.9}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{APIKey: "k", Model: "gemini-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	out, err := c.Chat(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Nubank","confidence":0.9}`, out)
}
