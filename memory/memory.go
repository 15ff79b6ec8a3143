package memory

import (
	"context"
	"fmt"
)

// Fragment is one unit of retrieved text. Fragments come back from a search
// most-relevant-first; Score is the cosine similarity reported by the index.
type Fragment struct {
	ID    string
	Text  string
	Score float32
}

// Chunk is one encoded unit of a memory store. The Encoder produces chunks;
// the Retriever reassembles them from the artifact pair and feeds them to
// the Index.
type Chunk struct {
	ID        string
	Seq       int
	Text      string
	Embedding []float32
}

// Store is the retrieval contract the rest of the system depends on.
// Zero results is a valid, non-error outcome. Any internal failure surfaces
// as *RetrievalError, which callers treat as recoverable.
type Store interface {
	Search(ctx context.Context, query string, topK int) ([]Fragment, error)
}

// Embedder converts text to vector embeddings.
// Implementations: ollama.Embedder (local server), mock.Embedder (testing).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Index is the vector search backend behind a Retriever.
// Implementations: chromem.Index (embedded, in-memory).
type Index interface {
	// Add loads chunks with their embeddings into the index.
	Add(ctx context.Context, chunks []Chunk) error

	// Query returns up to topK fragments by similarity, highest first.
	// An empty index returns zero fragments, not an error.
	Query(ctx context.Context, embedding []float32, topK int) ([]Fragment, error)

	// Close releases resources.
	Close() error
}

// RetrievalError wraps any failure inside the memory system. Sessions log
// it and continue with an empty context instead of crashing.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("memory %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
