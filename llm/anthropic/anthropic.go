// Package anthropic adapts the Anthropic Messages API to the llm.Generator
// contract, for running recall against a hosted model instead of a local
// Ollama server. Text deltas from the streaming Messages API map one-to-one
// onto llm.Delta values.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/becomeliminal/recall-go/llm"
)

// DefaultMaxTokens bounds a single response when the caller does not say.
const DefaultMaxTokens = 4096

// Generator is the Anthropic-backed llm.Generator.
type Generator struct {
	client    *anthropic.Client
	maxTokens int64
}

// Option configures the generator.
type Option func(*Generator)

// WithMaxTokens overrides the per-response token limit.
func WithMaxTokens(n int64) Option {
	return func(g *Generator) {
		g.maxTokens = n
	}
}

// New creates a generator authenticated with the given API key.
func New(apiKey string, opts ...Option) *Generator {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	g := &Generator{
		client:    &client,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate opens a streaming Messages exchange. The prompt travels as a
// single user message; context assembly happens upstream in the session.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (llm.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inner := g.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})

	return &messageStream{inner: inner}, nil
}

// messageStream narrows the Messages event stream to text deltas.
type messageStream struct {
	inner   *ssestream.Stream[anthropic.MessageStreamEventUnion]
	current llm.Delta
	err     error
	done    bool
}

func (s *messageStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	for s.inner.Next() {
		event := s.inner.Current()

		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				s.current = llm.Delta{Text: delta.Text}
				return true
			}
		case anthropic.MessageStopEvent:
			s.done = true
			s.current = llm.Delta{Done: true}
			s.inner.Close()
			return true
		}
	}

	if err := s.inner.Err(); err != nil {
		s.err = &llm.TransportError{Err: err}
	}
	s.done = true
	s.inner.Close()
	return false
}

func (s *messageStream) Current() llm.Delta {
	return s.current
}

func (s *messageStream) Err() error {
	return s.err
}

func (s *messageStream) Close() error {
	return s.inner.Close()
}
