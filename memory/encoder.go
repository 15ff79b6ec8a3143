package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EncoderConfig holds chunking parameters.
type EncoderConfig struct {
	// ChunkSize is the target chunk length in characters.
	// Default: 200.
	ChunkSize int

	// Overlap is the number of characters carried between neighbouring
	// chunks. Default: 30.
	Overlap int

	// EmbedModel is recorded in the index artifact so a retriever can warn
	// when it is opened with a different embedder.
	EmbedModel string
}

// DefaultEncoderConfig returns the standard chunking parameters.
var DefaultEncoderConfig = &EncoderConfig{
	ChunkSize: 200,
	Overlap:   30,
}

// Encoder builds a memory store from raw text. Text is added in any number
// of calls, then Build embeds every chunk and writes the artifact pair.
type Encoder struct {
	embedder Embedder
	config   *EncoderConfig
	logger   *zap.Logger
	chunks   []string
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithEncoderLogger sets the logger. Defaults to a no-op logger.
func WithEncoderLogger(l *zap.Logger) EncoderOption {
	return func(e *Encoder) {
		e.logger = l
	}
}

// NewEncoder creates an Encoder. A nil config selects DefaultEncoderConfig.
func NewEncoder(embedder Embedder, config *EncoderConfig, opts ...EncoderOption) *Encoder {
	if config == nil {
		config = DefaultEncoderConfig
	}
	e := &Encoder{
		embedder: embedder,
		config:   config,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddText chunks text and queues the chunks for the next Build.
func (e *Encoder) AddText(text string) {
	chunks := chunkText(text, e.config.ChunkSize, e.config.Overlap)
	e.chunks = append(e.chunks, chunks...)
	e.logger.Debug("queued text",
		zap.Int("chunks", len(chunks)),
		zap.Int("total", len(e.chunks)),
	)
}

// ChunkCount reports how many chunks are queued.
func (e *Encoder) ChunkCount() int {
	return len(e.chunks)
}

// Build embeds every queued chunk and writes the archive and index
// artifacts. The encoder can be reused afterwards; queued chunks remain.
func (e *Encoder) Build(ctx context.Context, archivePath, indexPath string) error {
	if len(e.chunks) == 0 {
		return fmt.Errorf("no text added: nothing to build")
	}

	e.logger.Info("building memory store",
		zap.Int("chunks", len(e.chunks)),
		zap.String("archive", archivePath),
		zap.String("index", indexPath),
	)

	records := make([]Chunk, 0, len(e.chunks))
	entries := make([]indexEntry, 0, len(e.chunks))
	dims := 0

	for seq, text := range e.chunks {
		embedding, err := e.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", seq, err)
		}
		if dims == 0 {
			dims = len(embedding)
		} else if len(embedding) != dims {
			return fmt.Errorf("chunk %d: embedding size %d, want %d", seq, len(embedding), dims)
		}

		chunk := Chunk{
			ID:        uuid.New().String(),
			Seq:       seq,
			Text:      text,
			Embedding: embedding,
		}
		records = append(records, chunk)
		entries = append(entries, indexEntry{
			ID:        chunk.ID,
			Seq:       seq,
			Length:    len(text),
			SHA256:    checksum(text),
			Embedding: embedding,
		})
	}

	if err := writeArchive(archivePath, records); err != nil {
		return err
	}
	if err := writeIndex(indexPath, &indexFile{
		Version:    indexVersion,
		EmbedModel: e.config.EmbedModel,
		Dimensions: dims,
		CreatedAt:  time.Now().UTC(),
		Chunks:     entries,
	}); err != nil {
		return err
	}

	e.logger.Info("memory store built", zap.Int("chunks", len(records)), zap.Int("dimensions", dims))
	return nil
}
