// Package session runs the interactive retrieval-augmented chat loop.
//
// Each turn reads one line, classifies it into a Command, and dispatches
// through an explicit state machine. Questions are answered by retrieving
// relevant fragments from the memory store, embedding them into a prompt,
// and streaming the model's response to the output as it arrives.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/becomeliminal/recall-go/llm"
	"github.com/becomeliminal/recall-go/memory"
)

// State is the session's position in its lifecycle.
type State int

const (
	// StateAwaitingInput means the session is ready for the next line.
	StateAwaitingInput State = iota

	// StateDispatching means a command is being executed.
	StateDispatching

	// StateTerminated is terminal; the loop has exited or will exit.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateDispatching:
		return "dispatching"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Config holds session parameters.
type Config struct {
	// Model is the generation model identifier. Required.
	Model string

	// SearchTopK is the result count for explicit search commands.
	// Default: 3.
	SearchTopK int

	// AskTopK is the number of fragments retrieved as question context.
	// Default: 2.
	AskTopK int

	// PreviewLength bounds displayed search results. Default: 150.
	PreviewLength int
}

// DefaultConfig returns the standard session parameters.
var DefaultConfig = &Config{
	SearchTopK:    3,
	AskTopK:       2,
	PreviewLength: 150,
}

const promptTemplate = `Context from memory:
%s

User question: %s

Please answer based on the context provided above. If the context doesn't contain relevant information, say so and provide a general response.`

// BuildPrompt assembles the generation prompt from retrieved context and the
// user's question. An empty context is passed through as-is; the template
// tells the model to say so when the context is insufficient.
func BuildPrompt(contextText, question string) string {
	return fmt.Sprintf(promptTemplate, contextText, question)
}

// Session is the interactive loop. One goroutine, one turn at a time: a
// generation call blocks the loop until it completes or fails. There is no
// timeout on generation; a hung endpoint hangs the session.
type Session struct {
	store     memory.Store
	generator llm.Generator
	config    *Config
	logger    *zap.Logger

	in    *bufio.Scanner
	out   io.Writer
	state State
}

// Option configures the session.
type Option func(*Session)

// WithIO overrides input and output. Defaults are stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Session) {
		s.in = bufio.NewScanner(in)
		s.out = out
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New creates a session. A nil config selects DefaultConfig values; a config
// with zero-valued fields gets defaults applied per field.
func New(store memory.Store, generator llm.Generator, config *Config, opts ...Option) *Session {
	if config == nil {
		config = &Config{}
	}
	cfg := *config
	if cfg.SearchTopK == 0 {
		cfg.SearchTopK = DefaultConfig.SearchTopK
	}
	if cfg.AskTopK == 0 {
		cfg.AskTopK = DefaultConfig.AskTopK
	}
	if cfg.PreviewLength == 0 {
		cfg.PreviewLength = DefaultConfig.PreviewLength
	}

	s := &Session{
		store:     store,
		generator: generator,
		config:    &cfg,
		logger:    zap.NewNop(),
		in:        bufio.NewScanner(os.Stdin),
		out:       os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the session's current state.
func (s *Session) State() State {
	return s.state
}

// Run executes the loop until a quit command, input EOF, or a fatal
// transport error. Transport failures mid-stream are reported to the user
// and terminate the session; retrieval failures degrade to an empty context
// and the loop continues.
func (s *Session) Run(ctx context.Context) error {
	s.state = StateAwaitingInput

	for s.state != StateTerminated {
		fmt.Fprint(s.out, "\nYou: ")
		if !s.in.Scan() {
			s.state = StateTerminated
			break
		}

		s.state = StateDispatching
		cmd := ParseCommand(s.in.Text())

		switch cmd.Kind {
		case CommandQuit:
			fmt.Fprintln(s.out, "Goodbye!")
			s.state = StateTerminated

		case CommandNoop:
			s.state = StateAwaitingInput

		case CommandSearch:
			s.handleSearch(ctx, cmd.Text)
			s.state = StateAwaitingInput

		case CommandAsk:
			if err := s.handleAsk(ctx, cmd.Text); err != nil {
				fmt.Fprintf(s.out, "\nConnection error: %v\n", err)
				fmt.Fprintln(s.out, "Make sure the model server is running.")
				s.state = StateTerminated
				break
			}
			s.state = StateAwaitingInput
		}
	}

	if err := s.in.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// handleSearch prints the top fragments for a query. Retrieval failures are
// reported and the turn ends; the session continues.
func (s *Session) handleSearch(ctx context.Context, query string) {
	fmt.Fprintf(s.out, "Searching for: %q\n", query)

	results, err := s.store.Search(ctx, query, s.config.SearchTopK)
	if err != nil {
		s.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		fmt.Fprintf(s.out, "Search failed: %v\n", err)
		return
	}

	for i, frag := range results {
		fmt.Fprintf(s.out, "  %d. %s\n", i+1, Preview(frag.Text, s.config.PreviewLength))
	}
}

// handleAsk runs one retrieval-augmented generation turn. The returned error
// is non-nil only for transport failures, which are fatal to the session.
func (s *Session) handleAsk(ctx context.Context, question string) error {
	fragments, err := s.store.Search(ctx, question, s.config.AskTopK)
	if err != nil {
		// Recoverable: answer without context rather than dying.
		s.logger.Warn("retrieval failed, continuing without context", zap.Error(err))
		fragments = nil
	}

	texts := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		texts = append(texts, frag.Text)
	}
	prompt := BuildPrompt(strings.Join(texts, "\n"), question)

	stream, err := s.generator.Generate(ctx, llm.Request{
		Model:  s.config.Model,
		Prompt: prompt,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Fprint(s.out, "Assistant: ")
	for stream.Next() {
		// Write each delta as it arrives; buffering until completion would
		// defeat the point of streaming.
		fmt.Fprint(s.out, stream.Current().Text)
	}
	fmt.Fprintln(s.out)

	if err := stream.Err(); err != nil {
		return err
	}
	return nil
}

// Preview flattens a fragment to one line and bounds it to maxLen bytes for
// display, truncating on a rune boundary.
func Preview(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
