package native

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/paperlens/internal/domain/analysis"
)

func TestNewClientValidation(t *testing.T) {
	var cfgErr *analysis.ConfigurationError

	_, err := NewClient("", "key", time.Second)
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewClient("https://example.com/v1beta", "", time.Second)
	require.ErrorAs(t, err, &cfgErr)
}

func TestCompleteHappyPath(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "critique text"}}}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret", time.Second)
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), analysis.CompletionRequest{
		SystemPrompt: "system",
		Prompt:       "user",
		Model:        "gemini-2.0-flash",
		Temperature:  0.4,
	})
	require.NoError(t, err)
	assert.Equal(t, "critique text", out)

	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey, "key travels in the query string, not a header")
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Contains(t, gotBody.Contents[0].Parts[0].Text, "system")
	assert.Contains(t, gotBody.Contents[0].Parts[0].Text, "user")
	assert.InDelta(t, 0.4, gotBody.GenerationConfig.Temperature, 0.001)
}

func TestCompleteUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "k", time.Second)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), analysis.CompletionRequest{Model: "m", Prompt: "p"})
	var upErr *analysis.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusTooManyRequests, upErr.Status)
	assert.Contains(t, upErr.Body, "quota exceeded")
	assert.False(t, upErr.Blocked)
}

func TestCompleteBlockedGeneration(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates": []}`},
		{"candidate without parts", `{"candidates": [{"content": {"parts": []}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewClient(srv.URL, "k", time.Second)
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), analysis.CompletionRequest{Model: "m", Prompt: "p"})
			var upErr *analysis.UpstreamError
			require.ErrorAs(t, err, &upErr)
			assert.True(t, upErr.Blocked)
		})
	}
}

func TestCompleteNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	client, err := NewClient(srv.URL, "k", time.Second)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), analysis.CompletionRequest{Model: "m", Prompt: "p"})
	var netErr *analysis.NetworkError
	require.ErrorAs(t, err, &netErr)
}
