// Package memory provides text ingestion and relevance-ranked retrieval
// over a pair of persisted artifacts.
//
// A memory store is two files: an opaque binary archive holding the chunked
// text, and a JSON index holding chunk metadata plus embeddings. The Encoder
// writes the pair; the Retriever opens it, verifies the artifacts against
// each other, and serves relevance-ranked searches.
//
// Architecture:
//   - Index: vector search backend (chromem-go for the local build)
//   - Embedder: text-to-vector conversion (Ollama embeddings, mock for tests)
//   - Encoder/Retriever: artifact lifecycle and the Store search contract
//
// Retrieval failures are recoverable by design: callers degrade to an empty
// context rather than aborting the session.
package memory
