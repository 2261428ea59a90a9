package ollama

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

	"github.com/zatekoja/keywordscout/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, dims int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.OllamaConfig{
		BaseURL:    server.URL,
		Model:      "all-minilm",
		Dimensions: dims,
		Timeout:    time.Second,
	})
}

func TestClient_Embed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPathEmbeddings, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.Equal(t, "ergonomic chairs", req.Prompt)

		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}, 3)

	vec, err := client.Embed(context.Background(), "ergonomic chairs")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, client.Dimensions())
}

func TestClient_EmbedDimensionMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1}})
	}, 384)

	_, err := client.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected embedding dimensions")
}

func TestClient_EmbedServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}, 384)

	_, err := client.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestClient_Ping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPathTags, r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}, 384)

	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(&config.OllamaConfig{BaseURL: "http://localhost:11434"})
	assert.Equal(t, DefaultModel, client.Model())
	assert.Equal(t, DefaultDimensions, client.Dimensions())
	assert.Nil(t, client.limiter)

	limited := NewClient(&config.OllamaConfig{BaseURL: "http://localhost:11434", RateLimit: 5})
	assert.NotNil(t, limited.limiter)
}

func TestClient_WaitReadyStopsOnRejectedCredentials(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, 384)

	err := client.WaitReady(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}
