package memory

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Retriever serves relevance-ranked searches over one memory store.
// It implements Store.
type Retriever struct {
	index    Index
	embedder Embedder
	logger   *zap.Logger
	count    int
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithRetrieverLogger sets the logger. Defaults to a no-op logger.
func WithRetrieverLogger(l *zap.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = l
	}
}

// Open loads the artifact pair, verifies the archive against the index, and
// populates the vector index. The two files must come from the same Build:
// chunk counts, lengths, and checksums all have to line up.
func Open(ctx context.Context, archivePath, indexPath string, embedder Embedder, index Index, opts ...RetrieverOption) (*Retriever, error) {
	r := &Retriever{
		index:    index,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	idx, err := readIndex(indexPath)
	if err != nil {
		return nil, err
	}

	payloads, err := readArchive(archivePath)
	if err != nil {
		return nil, err
	}

	if len(payloads) != len(idx.Chunks) {
		return nil, fmt.Errorf("artifact mismatch: archive has %d chunks, index has %d", len(payloads), len(idx.Chunks))
	}
	if idx.Dimensions != embedder.Dimensions() {
		return nil, fmt.Errorf("store was built with %d-dimensional embeddings, embedder produces %d", idx.Dimensions, embedder.Dimensions())
	}

	chunks := make([]Chunk, 0, len(payloads))
	for i, entry := range idx.Chunks {
		text := payloads[i]
		if len(text) != entry.Length || checksum(text) != entry.SHA256 {
			return nil, fmt.Errorf("artifact mismatch: chunk %d failed verification", i)
		}
		chunks = append(chunks, Chunk{
			ID:        entry.ID,
			Seq:       entry.Seq,
			Text:      text,
			Embedding: entry.Embedding,
		})
	}

	if err := index.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("populate index: %w", err)
	}
	r.count = len(chunks)

	r.logger.Info("memory store opened",
		zap.String("archive", archivePath),
		zap.Int("chunks", r.count),
		zap.String("embed_model", idx.EmbedModel),
	)

	return r, nil
}

// Search returns up to topK fragments relevant to query, most relevant
// first. Failures surface as *RetrievalError so callers can degrade to an
// empty context.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Fragment, error) {
	if query == "" {
		return nil, &RetrievalError{Op: "search", Err: fmt.Errorf("query must not be empty")}
	}
	if topK < 1 {
		return nil, &RetrievalError{Op: "search", Err: fmt.Errorf("topK must be at least 1, got %d", topK)}
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &RetrievalError{Op: "embed query", Err: err}
	}

	fragments, err := r.index.Query(ctx, embedding, topK)
	if err != nil {
		return nil, &RetrievalError{Op: "query index", Err: err}
	}

	r.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("top_k", topK),
		zap.Int("results", len(fragments)),
	)

	return fragments, nil
}

// Len reports the number of chunks loaded from the store.
func (r *Retriever) Len() int {
	return r.count
}

// Close releases the underlying index.
func (r *Retriever) Close() error {
	return r.index.Close()
}
