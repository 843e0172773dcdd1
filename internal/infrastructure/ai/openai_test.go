package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/pkg/logger"
)

func streamHandler(t *testing.T, failures int32, deltas ...string) (http.HandlerFunc, *int32) {
	var calls int32
	return func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			chunk := map[string]interface{}{
				"id":      "c1",
				"object":  "chat.completion.chunk",
				"choices": []map[string]interface{}{{"index": 0, "delta": map[string]string{"content": d}}},
			}
			data, _ := json.Marshal(chunk)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}, &calls
}

func newTestFactory() *Factory {
	return NewFactory(logger.NewNop()).WithRetryDelay(time.Millisecond)
}

func readAll(t *testing.T, s interface {
	Recv() (string, error)
}) string {
	t.Helper()
	var sb strings.Builder
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			return sb.String()
		}
		require.NoError(t, err)
		sb.WriteString(chunk)
	}
}

func TestCompleterStreamsDeltas(t *testing.T) {
	handler, _ := streamHandler(t, 0, "Hel", "lo", "!")
	srv := httptest.NewServer(handler)
	defer srv.Close()

	c, err := newTestFactory().Completer(domain.ModelDefinition{Name: "m", ModelID: "gpt-test", Endpoint: srv.URL})
	require.NoError(t, err)
	stream, err := c.Complete(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "Hello!", readAll(t, stream))
}

func TestCompleterRetriesTransientFailures(t *testing.T) {
	handler, calls := streamHandler(t, 2, "ok")
	srv := httptest.NewServer(handler)
	defer srv.Close()

	c, err := newTestFactory().Completer(domain.ModelDefinition{Name: "m", ModelID: "gpt-test", Endpoint: srv.URL})
	require.NoError(t, err)
	stream, err := c.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "ok", readAll(t, stream))
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestCompleterGivesUpAfterMaxRetries(t *testing.T) {
	handler, calls := streamHandler(t, 100)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	c, err := newTestFactory().Completer(domain.ModelDefinition{Name: "m", ModelID: "gpt-test", Endpoint: srv.URL, MaxRetries: 2})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})

	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestCompleterDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c, err := newTestFactory().Completer(domain.ModelDefinition{Name: "m", ModelID: "gpt-test", Endpoint: srv.URL})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"emb","data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5,1]}]}`)
	}))
	defer srv.Close()

	e, err := newTestFactory().Embedder(domain.EmbeddingSettings{Endpoint: srv.URL, ModelID: "emb", ChunkSize: 512})
	require.NoError(t, err)
	vec, err := e.Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("héllo"))
}

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(context.Canceled))
	assert.True(t, retryable(io.ErrUnexpectedEOF))
}
