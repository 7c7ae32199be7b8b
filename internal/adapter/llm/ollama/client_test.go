package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/http"
)

func TestCompleteSuccess(t *testing.T) {
	var gotReq generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"response": "model output", "done": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.2", time.Minute)
	text, err := c.Complete(context.Background(), "review this")
	require.NoError(t, err)

	assert.Equal(t, "model output", text)
	assert.Equal(t, "llama3.2", gotReq.Model)
	assert.False(t, gotReq.Stream, "streaming stays off")
}

func TestCompleteModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "missing-model", time.Minute)
	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)

	var apiErr *llmhttp.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, llmhttp.ErrTypeModelNotFound, apiErr.Type)
	assert.Contains(t, err.Error(), "ollama pull")
}

func TestCompleteServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "llama3.2", time.Second)
	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)

	var apiErr *llmhttp.Error
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Retryable)
}

func TestAvailableModelPresent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models": [{"name": "llama3.2:latest"}, {"name": "codellama"}]}`))
	}))
	defer srv.Close()

	found, err := NewClient(srv.URL, "llama3.2", time.Minute).Available(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
}

func TestAvailableModelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models": [{"name": "codellama"}]}`))
	}))
	defer srv.Close()

	found, err := NewClient(srv.URL, "llama3.2", time.Minute).Available(context.Background())
	require.NoError(t, err, "a reachable server with a missing model is not an error")
	assert.False(t, found)
}

func TestAvailableServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL, "llama3.2", time.Minute).Available(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}
