package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notegraph/pkg/config"
	apperrors "notegraph/pkg/errors"
)

func TestPrepareText(t *testing.T) {
	assert.Equal(t, "Title\n\nBody", PrepareText("Title", "Body", 8000))
	assert.Equal(t, "Tit", PrepareText("Title", "Body", 3))
	assert.Equal(t, "Title\n\nBody", PrepareText("Title", "Body", 0))
	assert.Equal(t, "\n\n", PrepareText("", "", 10))
}

func TestPrepareText_CutsOnRunes(t *testing.T) {
	got := PrepareText("héllo", "wörld", 4)
	assert.Equal(t, "héll", got)
	assert.Equal(t, 4, len([]rune(got)))
}

// fakeOpenAI serves /embeddings, failing the first failures calls with status
func fakeOpenAI(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)

		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.25, -0.5, 1]}],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 3, "total_tokens": 3}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestOpenAI(t *testing.T, url string) *OpenAI {
	t.Helper()
	p, err := NewOpenAI(url+"/v1", "test-key", "text-embedding-3-small")
	require.NoError(t, err)
	p.backoff = time.Millisecond
	return p
}

func TestOpenAI_Embed(t *testing.T) {
	srv, calls := fakeOpenAI(t, 0, 0)
	p := newTestOpenAI(t, srv.URL)

	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "text-embedding-3-small", p.Model())
}

func TestOpenAI_RetriesServerErrors(t *testing.T) {
	srv, calls := fakeOpenAI(t, 2, http.StatusInternalServerError)
	p := newTestOpenAI(t, srv.URL)

	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAI_GivesUpAfterRetries(t *testing.T) {
	srv, calls := fakeOpenAI(t, 10, http.StatusServiceUnavailable)
	p := newTestOpenAI(t, srv.URL)

	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeProvider))
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, int32(maxRetries), calls.Load())
}

func TestOpenAI_ClientErrorNotRetried(t *testing.T) {
	srv, calls := fakeOpenAI(t, 10, http.StatusBadRequest)
	p := newTestOpenAI(t, srv.URL)

	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, apperrors.IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "", "m")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
}

type countingProvider struct {
	calls atomic.Int32
}

func (c *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return []float32{1}, nil
}

func (c *countingProvider) Model() string { return "counting" }

func TestRateLimited_Throttles(t *testing.T) {
	inner := &countingProvider{}
	p := NewRateLimited(inner, 20, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := p.Embed(context.Background(), "x")
		require.NoError(t, err)
	}
	// burst 1 at 20/s: the 2nd and 3rd calls each wait ~50ms
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, "counting", p.Model())
}

func TestRateLimited_RespectsContext(t *testing.T) {
	inner := &countingProvider{}
	p := NewRateLimited(inner, 0.001, 1)

	_, err := p.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Embed(ctx, "second")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeProvider))
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestNew_SelectsProvider(t *testing.T) {
	cfg := &config.Config{
		EmbeddingProvider: "ollama",
		EmbeddingModel:    "nomic-embed-text",
		OllamaURL:         "http://localhost:11434",
		EmbedRateLimit:    5,
		EmbedBurst:        1,
	}
	p, err := New(cfg)
	require.NoError(t, err)
	_, limited := p.(*RateLimited)
	assert.True(t, limited)
	assert.Equal(t, "nomic-embed-text", p.Model())

	cfg.EmbedRateLimit = 0
	p, err = New(cfg)
	require.NoError(t, err)
	_, isOllama := p.(*Ollama)
	assert.True(t, isOllama)

	cfg.EmbeddingProvider = "openai"
	_, err = New(cfg)
	assert.Error(t, err, "openai without a key")
}
