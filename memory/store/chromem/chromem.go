// Package chromem backs memory.Index with chromem-go, a pure Go embedded
// vector database.
package chromem

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/becomeliminal/recall-go/memory"
)

// Index is the chromem-backed memory.Index. Contents live in memory for the
// lifetime of the process; persistence belongs to the artifact pair, not the
// index.
type Index struct {
	db  *chromem.DB
	col *chromem.Collection
}

// New creates an empty index.
func New() (*Index, error) {
	db := chromem.NewDB()

	// Embeddings are always supplied by the caller, so no embedding func and
	// the default cosine distance.
	col, err := db.CreateCollection("chunks", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Index{db: db, col: col}, nil
}

// Add loads chunks with their embeddings into the index.
func (i *Index) Add(ctx context.Context, chunks []memory.Chunk) error {
	for _, chunk := range chunks {
		doc := chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Text,
			Embedding: chunk.Embedding,
			Metadata:  map[string]string{"seq": strconv.Itoa(chunk.Seq)},
		}
		if err := i.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("add chunk %d: %w", chunk.Seq, err)
		}
	}
	return nil
}

// Query returns up to topK fragments by similarity, highest first.
//
// chromem rejects nResults larger than the collection, so the limit shrinks
// until the query fits; an empty collection yields zero fragments.
func (i *Index) Query(ctx context.Context, embedding []float32, topK int) ([]memory.Fragment, error) {
	var results []chromem.Result
	for limit := topK; limit >= 1; limit-- {
		var err error
		results, err = i.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	fragments := make([]memory.Fragment, 0, len(results))
	for _, result := range results {
		fragments = append(fragments, memory.Fragment{
			ID:    result.ID,
			Text:  result.Content,
			Score: result.Similarity,
		})
	}
	return fragments, nil
}

// Close releases resources. chromem keeps everything in memory, so there is
// nothing to release.
func (i *Index) Close() error {
	return nil
}

// isInsufficientDocsError reports whether err is chromem complaining that
// nResults exceeds the collection size.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
