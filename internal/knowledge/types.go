package knowledge

import "time"

// VectorDimension is the embedding dimensionality of the documents table.
// Must match the vector(...) column in db/migrations.
const VectorDimension int32 = 768

// Chunk is one stored document fragment.
type Chunk struct {
	ID         string            // sha256 of source and index
	Source     string            // originating file, relative to the data dir
	ChunkIndex int               // position within the source file
	Content    string            // chunk text
	Metadata   map[string]string // provenance extras (file extension, size)
	CreatedAt  time.Time
}

// Result is a single search hit with its cosine similarity score.
type Result struct {
	Chunk      Chunk
	Similarity float64 // 1 = identical direction, 0 = orthogonal
}

// SourceCount is the number of stored chunks for one source file.
type SourceCount struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// SearchOption configures Search via functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK   int
	source string
}

// WithTopK sets the maximum number of results. Default 3, clamped to
// [1, MaxTopK].
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithSource restricts results to chunks from one source file.
func WithSource(source string) SearchOption {
	return func(c *searchConfig) {
		c.source = source
	}
}

// MaxTopK bounds how many chunks a single search may return.
const MaxTopK = 20

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: 3}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.topK < 1 {
		cfg.topK = 3
	}
	if cfg.topK > MaxTopK {
		cfg.topK = MaxTopK
	}
	return cfg
}
