package llm

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
)

// fakeOllama serves the subset of the Ollama HTTP API used by the client.
type fakeOllama struct {
	response   string
	embeddings [][]float32
	status     int

	lastGenerate map[string]any
	lastEmbed    map[string]any
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status >= 400 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
		return
	}

	switch r.URL.Path {
	case "/api/generate":
		_ = json.NewDecoder(r.Body).Decode(&f.lastGenerate)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    f.lastGenerate["model"],
			"response": f.response,
			"done":     true,
		})
	case "/api/embed":
		_ = json.NewDecoder(r.Body).Decode(&f.lastEmbed)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":      f.lastEmbed["model"],
			"embeddings": f.embeddings,
		})
	case "/":
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func newTestOllama(t *testing.T, fake *fakeOllama) *Ollama {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	o, err := NewOllama(OllamaConfig{Host: srv.URL, EmbedModel: "test-embed", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return o
}

func TestOllama_Generate(t *testing.T) {
	fake := &fakeOllama{response: "  Sure, see you Friday.\n"}
	o := newTestOllama(t, fake)

	text, err := o.Generate(context.Background(), Request{Model: "llama3", Prompt: "Reply please", Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "Sure, see you Friday.", text)

	assert.Equal(t, "llama3", fake.lastGenerate["model"])
	assert.Equal(t, "Reply please", fake.lastGenerate["prompt"])
	assert.Equal(t, false, fake.lastGenerate["stream"])
	opts, ok := fake.lastGenerate["options"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.7, opts["temperature"], 1e-9)
}

func TestOllama_GenerateEmptyResponse(t *testing.T) {
	o := newTestOllama(t, &fakeOllama{response: "   "})

	_, err := o.Generate(context.Background(), Request{Model: "llama3", Prompt: "x"})
	require.Error(t, err)

	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "generate", se.Op)
	assert.ErrorIs(t, err, errEmptyResponse)
}

func TestOllama_GenerateServerError(t *testing.T) {
	o := newTestOllama(t, &fakeOllama{status: http.StatusInternalServerError})

	_, err := o.Generate(context.Background(), Request{Model: "llama3", Prompt: "x"})
	require.Error(t, err)
	assert.True(t, IsServiceError(err))
	assert.Contains(t, err.Error(), "llama3")
}

func TestOllama_Embed(t *testing.T) {
	fake := &fakeOllama{embeddings: [][]float32{{0.1, 0.2, 0.3}}}
	o := newTestOllama(t, fake)

	vec, err := o.Embed(context.Background(), "make it shorter")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "test-embed", o.Model())
	assert.Equal(t, "test-embed", fake.lastEmbed["model"])
	assert.Equal(t, "make it shorter", fake.lastEmbed["input"])
}

func TestOllama_EmbedEmpty(t *testing.T) {
	o := newTestOllama(t, &fakeOllama{embeddings: [][]float32{}})

	_, err := o.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, errEmptyEmbedding)
	assert.True(t, IsServiceError(err))
}

func TestOllama_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	o, err := NewOllama(OllamaConfig{Host: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = o.Embed(context.Background(), "x")
	assert.True(t, IsServiceError(err))

	err = o.Ping(context.Background())
	assert.True(t, IsServiceError(err))
}

func TestNewOllama_InvalidHost(t *testing.T) {
	tests := []string{"localhost", "://bad", "http://"}
	for _, host := range tests {
		t.Run(host, func(t *testing.T) {
			_, err := NewOllama(OllamaConfig{Host: host})
			assert.Error(t, err)
		})
	}
}

func TestNewOllama_Defaults(t *testing.T) {
	o, err := NewOllama(OllamaConfig{Host: "http://127.0.0.1:11434"})
	require.NoError(t, err)
	assert.Equal(t, DefaultEmbedModel, o.Model())
}

func TestServiceError(t *testing.T) {
	base := errors.New("connection refused")
	err := &ServiceError{Op: "embed", Model: "nomic", Err: base}

	assert.Equal(t, "llm embed (nomic): connection refused", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "llm heartbeat: connection refused", (&ServiceError{Op: "heartbeat", Err: base}).Error())
	assert.False(t, IsServiceError(base))
}
