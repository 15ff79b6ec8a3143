package memory

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// The archive artifact is a magic header followed by a gzip stream of
// length-prefixed chunk payloads, in index order. The index artifact is JSON
// carrying per-chunk metadata and embeddings. Callers treat both paths as
// opaque; only this file knows the layout.

var archiveMagic = [4]byte{'R', 'C', 'A', 'R'}

const (
	archiveVersion = 1
	indexVersion   = 1
)

// maxChunkBytes rejects corrupt length prefixes before allocation.
const maxChunkBytes = 1 << 20

type indexFile struct {
	Version    int          `json:"version"`
	EmbedModel string       `json:"embed_model"`
	Dimensions int          `json:"dimensions"`
	CreatedAt  time.Time    `json:"created_at"`
	Chunks     []indexEntry `json:"chunks"`
}

type indexEntry struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Length    int       `json:"length"`
	SHA256    string    `json:"sha256"`
	Embedding []float32 `json:"embedding"`
}

// writeArchive writes the chunk payloads to path.
func writeArchive(path string, chunks []Chunk) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
	}()

	header := append(archiveMagic[:], archiveVersion)
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("write archive header: %w", err)
	}

	zw := gzip.NewWriter(f)
	for _, chunk := range chunks {
		payload := []byte(chunk.Text)
		var prefix [4]byte
		binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
		if _, err := zw.Write(prefix[:]); err != nil {
			return fmt.Errorf("write chunk prefix: %w", err)
		}
		if _, err := zw.Write(payload); err != nil {
			return fmt.Errorf("write chunk payload: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}

	return nil
}

// readArchive returns the chunk payloads stored at path, in order.
func readArchive(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var header [5]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, fmt.Errorf("read archive header: %w", err)
	}
	if [4]byte(header[:4]) != archiveMagic {
		return nil, fmt.Errorf("not a recall archive: %s", path)
	}
	if header[4] != archiveVersion {
		return nil, fmt.Errorf("unsupported archive version %d", header[4])
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open archive stream: %w", err)
	}
	defer zr.Close()

	var payloads []string
	for {
		var prefix [4]byte
		if _, err := io.ReadFull(zr, prefix[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read chunk prefix: %w", err)
		}

		length := binary.BigEndian.Uint32(prefix[:])
		if length > maxChunkBytes {
			return nil, fmt.Errorf("chunk length %d exceeds limit", length)
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(zr, payload); err != nil {
			return nil, fmt.Errorf("read chunk payload: %w", err)
		}
		payloads = append(payloads, string(payload))
	}

	return payloads, nil
}

// writeIndex writes the index artifact to path.
func writeIndex(path string, idx *indexFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	return nil
}

// readIndex loads the index artifact from path.
func readIndex(path string) (*indexFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	if idx.Version != indexVersion {
		return nil, fmt.Errorf("unsupported index version %d", idx.Version)
	}

	return &idx, nil
}

// checksum returns the hex SHA-256 of a chunk payload.
func checksum(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
