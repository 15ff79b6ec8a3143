// Package llm defines the model-client contract shared by all generation
// backends.
//
// A backend turns one Request into a Stream: a lazy, finite, non-restartable
// sequence of text deltas. Consumers iterate with the Next/Current/Err shape
// and must Close the stream on every exit path so the underlying connection
// is released. Stopping consumption early is the only cancellation mechanism.
//
// Implementations:
//   - ollama.Client: local Ollama server over NDJSON (primary)
//   - anthropic.Generator: Anthropic Messages API (hosted alternative)
package llm

import (
	"context"
	"fmt"
)

// Request is a single generation request. Immutable once constructed.
// Backends always request streaming delivery.
type Request struct {
	// Model is the backend model identifier (e.g., "llama2"). Required.
	Model string

	// Prompt is the fully assembled prompt text. Required.
	Prompt string
}

// Validate reports whether the request is usable.
func (r Request) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("request model must not be empty")
	}
	if r.Prompt == "" {
		return fmt.Errorf("request prompt must not be empty")
	}
	return nil
}

// Delta is one incremental unit of generated text. Concatenating Text fields
// in arrival order reconstructs the full response. Done marks the final
// delta of a stream; a Done delta may still carry text.
type Delta struct {
	Text string
	Done bool
}

// Stream is a finite sequence of deltas from one generation exchange.
//
// The sequence ends when the backend signals completion or when the
// transport closes, whichever comes first. A close without an explicit
// completion marker ends the sequence cleanly; callers must not assume a
// terminator is guaranteed.
type Stream interface {
	// Next advances to the next delta. It returns false when the sequence
	// is exhausted or a transport error occurred; check Err afterwards.
	Next() bool

	// Current returns the delta produced by the last successful Next.
	Current() Delta

	// Err returns the first transport error encountered, if any.
	Err() error

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// Generator is implemented by generation backends.
type Generator interface {
	Generate(ctx context.Context, req Request) (Stream, error)
}

// TransportError reports a failed exchange with a generation backend:
// either a non-success HTTP status or a connection-level failure.
// Transport errors are never retried.
type TransportError struct {
	// StatusCode is the HTTP status, or 0 for connection failures.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model server returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("model server unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
