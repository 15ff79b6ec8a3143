package session

import "strings"

// CommandKind tags the variants of a parsed input line.
type CommandKind int

const (
	// CommandNoop is an empty or whitespace-only line; no side effects.
	CommandNoop CommandKind = iota

	// CommandQuit terminates the session.
	CommandQuit

	// CommandSearch runs a one-shot memory search and prints the results.
	CommandSearch

	// CommandAsk runs a retrieval-augmented generation turn.
	CommandAsk
)

// Command is one classified input line.
type Command struct {
	Kind CommandKind

	// Text is the search query or question; empty for Quit and Noop.
	Text string
}

// ParseCommand classifies a raw input line. Checks run in order: exact
// case-insensitive match on quit words, the "search " prefix, blank line,
// then everything else is a question.
func ParseCommand(line string) Command {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)

	switch lower {
	case "quit", "exit", "q":
		return Command{Kind: CommandQuit}
	}

	if strings.HasPrefix(lower, "search ") {
		return Command{Kind: CommandSearch, Text: strings.TrimSpace(trimmed[len("search "):])}
	}

	if trimmed == "" {
		return Command{Kind: CommandNoop}
	}

	return Command{Kind: CommandAsk, Text: trimmed}
}
