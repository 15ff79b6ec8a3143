package anthropic

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/recall-go/llm"
)

// sseEvent formats one server-sent event.
func sseEvent(name, data string) string {
	return "event: " + name + "\ndata: " + data + "\n\n"
}

// sseStream wraps scripted SSE events in a messageStream, the same way
// Generate wraps the live Messages response.
func sseStream(events ...string) *messageStream {
	res := &http.Response{
		Header: http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:   io.NopCloser(strings.NewReader(strings.Join(events, ""))),
	}
	inner := ssestream.NewStream[anthropic.MessageStreamEventUnion](ssestream.NewDecoder(res), nil)
	return &messageStream{inner: inner}
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

func TestMessageStreamYieldsTextDeltas(t *testing.T) {
	stream := sseStream(
		sseEvent("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-20250514","usage":{"input_tokens":1,"output_tokens":1}}}`),
		sseEvent("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		sseEvent("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`),
		sseEvent("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":", world"}}`),
		sseEvent("content_block_stop", `{"type":"content_block_stop","index":0}`),
		sseEvent("message_stop", `{"type":"message_stop"}`),
	)

	deltas := drain(t, stream)
	require.NoError(t, stream.Err())
	require.Len(t, deltas, 3)

	var full strings.Builder
	for _, d := range deltas {
		full.WriteString(d.Text)
	}
	assert.Equal(t, "Hello, world", full.String())
	assert.True(t, deltas[2].Done)
	assert.False(t, deltas[0].Done)

	// Exhausted streams stay exhausted.
	assert.False(t, stream.Next())
}

func TestMessageStreamEndsCleanlyWithoutStopEvent(t *testing.T) {
	stream := sseStream(
		sseEvent("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"partial"}}`),
	)

	deltas := drain(t, stream)
	require.NoError(t, stream.Err())
	require.Len(t, deltas, 1)
	assert.Equal(t, "partial", deltas[0].Text)
}

func TestMessageStreamSurfacesErrorEvents(t *testing.T) {
	stream := sseStream(
		sseEvent("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"a"}}`),
		sseEvent("error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`),
	)

	deltas := drain(t, stream)
	require.Len(t, deltas, 1)

	var terr *llm.TransportError
	require.ErrorAs(t, stream.Err(), &terr)
}

func TestGenerateValidatesRequest(t *testing.T) {
	gen := New("test-key")

	_, err := gen.Generate(context.Background(), llm.Request{Model: "", Prompt: "hi"})
	assert.Error(t, err)

	_, err = gen.Generate(context.Background(), llm.Request{Model: "claude-sonnet-4-20250514", Prompt: ""})
	assert.Error(t, err)
}
