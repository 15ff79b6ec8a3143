package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/recall-go/llm"
)

// ndjsonServer returns a test server whose /api/generate endpoint writes the
// given lines verbatim, newline separated.
func ndjsonServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.True(t, req.Stream, "client must always request streaming")

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range lines {
			io.WriteString(w, line+"\n")
		}
	}))
}

// drain consumes a stream to the end and returns the deltas it produced.
func drain(t *testing.T, stream llm.Stream) []llm.Delta {
	t.Helper()
	defer stream.Close()

	var deltas []llm.Delta
	for stream.Next() {
		deltas = append(deltas, stream.Current())
	}
	return deltas
}

func TestGenerateYieldsDeltasInOrder(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"Hello","done":false}`,
		`{"response":", ","done":false}`,
		`{"response":"world","done":false}`,
		`{"response":"!","done":true}`,
	)
	defer srv.Close()

	client := New(srv.URL)
	stream, err := client.Generate(context.Background(), llm.Request{Model: "llama2", Prompt: "hi"})
	require.NoError(t, err)

	deltas := drain(t, stream)
	require.NoError(t, stream.Err())
	require.Len(t, deltas, 4)

	var full strings.Builder
	for _, d := range deltas {
		full.WriteString(d.Text)
	}
	assert.Equal(t, "Hello, world!", full.String())
	assert.True(t, deltas[3].Done)
	assert.False(t, deltas[0].Done)
}

func TestGenerateSkipsMalformedRecords(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"a","done":false}`,
		`{"response":"b","done`, // truncated mid-record
		`not json at all`,
		`{"response":"c","done":true}`,
	)
	defer srv.Close()

	client := New(srv.URL)
	stream, err := client.Generate(context.Background(), llm.Request{Model: "llama2", Prompt: "hi"})
	require.NoError(t, err)

	deltas := drain(t, stream)
	require.NoError(t, stream.Err())
	require.Len(t, deltas, 2)
	assert.Equal(t, "a", deltas[0].Text)
	assert.Equal(t, "c", deltas[1].Text)
	assert.True(t, deltas[1].Done)
}

func TestGenerateEndsCleanlyWithoutDoneRecord(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"partial","done":false}`,
	)
	defer srv.Close()

	client := New(srv.URL)
	stream, err := client.Generate(context.Background(), llm.Request{Model: "llama2", Prompt: "hi"})
	require.NoError(t, err)

	deltas := drain(t, stream)
	require.NoError(t, stream.Err(), "stream close without done is not an error")
	require.Len(t, deltas, 1)
	assert.Equal(t, "partial", deltas[0].Text)

	// Exhausted streams stay exhausted.
	assert.False(t, stream.Next())
}

func TestGenerateStopsAfterDoneRecord(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"first","done":true}`,
		`{"response":"trailing","done":false}`,
	)
	defer srv.Close()

	client := New(srv.URL)
	stream, err := client.Generate(context.Background(), llm.Request{Model: "llama2", Prompt: "hi"})
	require.NoError(t, err)

	deltas := drain(t, stream)
	require.Len(t, deltas, 1)
	assert.Equal(t, "first", deltas[0].Text)
	assert.True(t, deltas[0].Done)
}

func TestGenerateSkipsMetadataOnlyRecords(t *testing.T) {
	srv := ndjsonServer(t,
		`{"model":"llama2"}`,
		`{"response":"text","done":false}`,
		`{"done":true}`,
	)
	defer srv.Close()

	client := New(srv.URL)
	stream, err := client.Generate(context.Background(), llm.Request{Model: "llama2", Prompt: "hi"})
	require.NoError(t, err)

	deltas := drain(t, stream)
	require.Len(t, deltas, 2)
	assert.Equal(t, "text", deltas[0].Text)
	assert.Equal(t, "", deltas[1].Text)
	assert.True(t, deltas[1].Done)
}

func TestGenerateNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.Generate(context.Background(), llm.Request{Model: "missing", Prompt: "hi"})

	var terr *llm.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
}

func TestGenerateConnectionFailure(t *testing.T) {
	// A server that is immediately closed guarantees a refused connection.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(srv.URL)
	_, err := client.Generate(context.Background(), llm.Request{Model: "llama2", Prompt: "hi"})

	var terr *llm.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 0, terr.StatusCode)
}

func TestGenerateValidatesRequest(t *testing.T) {
	client := New("")

	_, err := client.Generate(context.Background(), llm.Request{Model: "", Prompt: "hi"})
	assert.Error(t, err)

	_, err = client.Generate(context.Background(), llm.Request{Model: "llama2", Prompt: ""})
	assert.Error(t, err)
}

func TestTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(tagsResponse{Models: []Model{
			{Name: "llama2"},
			{Name: "mistral"},
		}})
	}))
	defer srv.Close()

	client := New(srv.URL)
	models, err := client.Tags(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama2", models[0].Name)
}

func TestEmbeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)

		var req embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		json.NewEncoder(w).Encode(embeddingsResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	client := New(srv.URL)
	vec, err := client.Embeddings(context.Background(), "nomic-embed-text", "some text")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestEmbeddingsRejectsEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingsResponse{})
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.Embeddings(context.Background(), "nomic-embed-text", "some text")
	assert.Error(t, err)
}
