package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/recall-go/llm"
	"github.com/becomeliminal/recall-go/memory"
)

type fakeStore struct {
	fragments []memory.Fragment
}

func (f *fakeStore) Search(ctx context.Context, query string, topK int) ([]memory.Fragment, error) {
	return f.fragments, nil
}

type scriptStream struct {
	deltas []llm.Delta
	err    error
	pos    int
}

func (s *scriptStream) Next() bool {
	if s.pos >= len(s.deltas) {
		return false
	}
	s.pos++
	return true
}

func (s *scriptStream) Current() llm.Delta { return s.deltas[s.pos-1] }
func (s *scriptStream) Err() error         { return s.err }
func (s *scriptStream) Close() error       { return nil }

type fakeGenerator struct {
	streams []*scriptStream
	err     error
	calls   int
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (llm.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	stream := f.streams[f.calls%len(f.streams)]
	f.calls++
	return stream, nil
}

// dial starts a test server and opens a websocket connection to it.
func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHealth(t *testing.T) {
	srv := New(&fakeStore{}, &fakeGenerator{}, Config{Model: "llama2"}, nil)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var status map[string]string
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "ok", status["status"])
}

func TestAskTurnStreamsDeltas(t *testing.T) {
	store := &fakeStore{fragments: []memory.Fragment{{Text: "Ollama runs models locally."}}}
	gen := &fakeGenerator{streams: []*scriptStream{{deltas: []llm.Delta{
		{Text: "Yes"},
		{Text: ", it does.", Done: true},
	}}}}
	srv := New(store, gen, Config{Model: "llama2"}, nil)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]string{"message": "models"}))

	var full strings.Builder
	for {
		var frame replyFrame
		require.NoError(t, conn.ReadJSON(&frame))
		require.Empty(t, frame.Error)
		if frame.Done {
			break
		}
		full.WriteString(frame.Delta)
	}
	assert.Equal(t, "Yes, it does.", full.String())
}

func TestMultipleTurnsPerConnection(t *testing.T) {
	gen := &fakeGenerator{streams: []*scriptStream{
		{deltas: []llm.Delta{{Text: "first", Done: true}}},
		{deltas: []llm.Delta{{Text: "second", Done: true}}},
	}}
	srv := New(&fakeStore{}, gen, Config{Model: "llama2"}, nil)

	conn := dial(t, srv)

	for _, want := range []string{"first", "second"} {
		require.NoError(t, conn.WriteJSON(map[string]string{"message": "q"}))

		var full strings.Builder
		for {
			var frame replyFrame
			require.NoError(t, conn.ReadJSON(&frame))
			if frame.Done {
				break
			}
			full.WriteString(frame.Delta)
		}
		assert.Equal(t, want, full.String())
	}

	// Streams are per-turn, not shared.
	assert.Equal(t, 2, gen.calls)
}

func TestTransportErrorClosesConnection(t *testing.T) {
	gen := &fakeGenerator{err: &llm.TransportError{StatusCode: 502}}
	srv := New(&fakeStore{}, gen, Config{Model: "llama2"}, nil)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]string{"message": "q"}))

	var frame replyFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.NotEmpty(t, frame.Error)

	// The server closes the socket after reporting the error.
	require.NoError(t, conn.WriteJSON(map[string]string{"message": "again"}))
	err := conn.ReadJSON(&frame)
	assert.Error(t, err)
}

func TestBlankMessagesIgnored(t *testing.T) {
	gen := &fakeGenerator{streams: []*scriptStream{{deltas: []llm.Delta{{Text: "answer", Done: true}}}}}
	srv := New(&fakeStore{}, gen, Config{Model: "llama2"}, nil)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]string{"message": "   "}))
	require.NoError(t, conn.WriteJSON(map[string]string{"message": "real question"}))

	var frame replyFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "answer", frame.Delta)
	assert.Equal(t, 1, gen.calls, "blank message must not trigger a turn")
}
