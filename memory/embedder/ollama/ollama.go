// Package ollama backs memory.Embedder with an Ollama embedding model.
// Vectors are cached with ristretto so re-encoding the same text (overlap
// regions, repeated queries) does not pay for another round trip.
package ollama

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	ollamaclient "github.com/becomeliminal/recall-go/llm/ollama"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "nomic-embed-text"

// DefaultDimensions matches nomic-embed-text output.
const DefaultDimensions = 768

// Embedder converts text to vectors via the Ollama embeddings endpoint.
type Embedder struct {
	client *ollamaclient.Client
	model  string
	dims   int
	cache  *ristretto.Cache
	logger *zap.Logger
}

// Option configures the embedder.
type Option func(*Embedder)

// WithDimensions declares the vector size the model produces. Defaults to
// DefaultDimensions; mismatches are caught on the first embed.
func WithDimensions(n int) Option {
	return func(e *Embedder) {
		e.dims = n
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Embedder) {
		e.logger = l
	}
}

// New creates an embedder for the given model. An empty model selects
// DefaultModel.
func New(client *ollamaclient.Client, model string, opts ...Option) (*Embedder, error) {
	if model == "" {
		model = DefaultModel
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     32 << 20, // 32 MiB of vectors
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	e := &Embedder{
		client: client,
		model:  model,
		dims:   DefaultDimensions,
		cache:  cache,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Embed converts a single text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached.([]float32), nil
	}

	vec, err := e.client.Embeddings(ctx, e.model, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != e.dims {
		return nil, fmt.Errorf("model %s produced a %d-dimensional vector, expected %d", e.model, len(vec), e.dims)
	}

	e.cache.Set(text, vec, int64(len(vec)*4))
	e.logger.Debug("embedded text", zap.Int("chars", len(text)))

	return vec, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Close releases the cache.
func (e *Embedder) Close() {
	e.cache.Close()
}
