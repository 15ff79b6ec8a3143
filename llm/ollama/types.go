package ollama

// generateRequest is the wire body for POST /api/generate.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateRecord is one NDJSON record of a streaming generate response.
// Only the fields the stream consumer needs are decoded; the final record
// additionally carries timing metrics which we expose for debug logging.
type generateRecord struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`

	// Metrics, present on the final record only.
	TotalDuration int64 `json:"total_duration,omitempty"`
	EvalCount     int   `json:"eval_count,omitempty"`
}

// embeddingsRequest is the wire body for POST /api/embeddings.
type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embeddingsResponse is the body of a successful embeddings call.
type embeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Model describes one installed model as reported by GET /api/tags.
type Model struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// tagsResponse is the body of GET /api/tags.
type tagsResponse struct {
	Models []Model `json:"models"`
}
