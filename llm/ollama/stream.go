package ollama

import (
	"bufio"
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"github.com/becomeliminal/recall-go/llm"
)

// generateStream decodes the NDJSON body of a streaming generate response
// into llm.Delta values.
//
// Records that fail to parse as JSON are skipped silently: partial or
// interleaved transport artifacts must not kill an otherwise healthy stream.
// A record with done=true ends the sequence after its delta; so does the
// body closing without one.
type generateStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  *zap.Logger

	current llm.Delta
	err     error
	done    bool
	closed  bool
}

func newGenerateStream(body io.ReadCloser, logger *zap.Logger) *generateStream {
	scanner := bufio.NewScanner(body)
	// Individual records stay small, but leave headroom for long deltas.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &generateStream{
		body:    body,
		scanner: scanner,
		logger:  logger,
	}
}

// Next advances to the next delta.
func (s *generateStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record generateRecord
		if err := json.Unmarshal(line, &record); err != nil {
			s.logger.Debug("skipping malformed stream record",
				zap.Error(err),
				zap.Int("bytes", len(line)),
			)
			continue
		}

		if record.Response == "" && !record.Done {
			// Keep-alive or metadata-only record.
			continue
		}

		s.current = llm.Delta{
			Text: record.Response,
			Done: record.Done,
		}
		if record.Done {
			s.done = true
			s.logger.Debug("generate stream complete",
				zap.Int64("total_duration_ns", record.TotalDuration),
				zap.Int("eval_count", record.EvalCount),
			)
			s.Close()
		}
		return true
	}

	// The body closed without a done record. Treat it as a clean end unless
	// the scanner saw a genuine read error.
	if err := s.scanner.Err(); err != nil {
		s.err = &llm.TransportError{Err: err}
	}
	s.done = true
	s.Close()
	return false
}

// Current returns the delta produced by the last successful Next.
func (s *generateStream) Current() llm.Delta {
	return s.current
}

// Err returns the first transport error encountered, if any.
func (s *generateStream) Err() error {
	return s.err
}

// Close releases the underlying connection.
func (s *generateStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
