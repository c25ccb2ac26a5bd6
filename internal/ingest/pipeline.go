package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/docchat/docchat/internal/knowledge"
)

// lockFileName sits inside the data directory so concurrent pipeline runs
// against the same corpus exclude each other. Hidden, so the loader skips it.
const lockFileName = ".ingest.lock"

// storeBatchSize is how many chunks go to the store per AddBatch call. It
// matches the embedding API batch limit, so each store batch is one
// embedding request.
const storeBatchSize = 100

// Store is the subset of the knowledge store the pipeline needs.
type Store interface {
	AddBatch(ctx context.Context, chunks []knowledge.Chunk) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Result summarizes one pipeline run.
type Result struct {
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Duration  time.Duration `json:"duration"`
}

// Pipeline performs a full reload of the knowledge store from a directory of
// text documents: load, chunk, clear, embed and store, verify.
type Pipeline struct {
	store   Store
	chunker *Chunker
	dataDir string
	logger  *slog.Logger
}

// New creates a Pipeline reading from dataDir.
func New(store Store, chunker *Chunker, dataDir string, logger *slog.Logger) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("ingest: store is required")
	}
	if chunker == nil {
		chunker = NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	}
	if dataDir == "" {
		return nil, fmt.Errorf("ingest: data directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: store, chunker: chunker, dataDir: dataDir, logger: logger}, nil
}

// Run executes one full ingestion. The store is cleared before loading, so a
// run replaces the whole knowledge base. Only one run may touch a data
// directory at a time; a second concurrent run fails fast.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()

	fileLock := flock.New(filepath.Join(p.dataDir, lockFileName))
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("ingest: acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("ingest: another ingestion is already running for %s", p.dataDir)
	}
	defer func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			p.logger.Warn("failed to release ingest lock", "error", unlockErr)
		}
	}()

	docs, err := Load(p.dataDir)
	if err != nil {
		return nil, err
	}
	p.logger.Info("loaded documents", "count", len(docs), "data_dir", p.dataDir)

	chunks := p.chunkDocuments(docs)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("ingest: documents in %s produced no chunks", p.dataDir)
	}
	p.logger.Info("chunked documents", "documents", len(docs), "chunks", len(chunks))

	if err := p.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("ingest: clearing store: %w", err)
	}

	for start := 0; start < len(chunks); start += storeBatchSize {
		end := min(start+storeBatchSize, len(chunks))
		if err := p.store.AddBatch(ctx, chunks[start:end]); err != nil {
			return nil, fmt.Errorf("ingest: storing chunks %d-%d: %w", start, end-1, err)
		}
		p.logger.Debug("stored chunk batch", "from", start, "to", end-1)
	}

	stored, err := p.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: verifying stored count: %w", err)
	}
	if stored != len(chunks) {
		return nil, fmt.Errorf("ingest: stored %d chunks, expected %d", stored, len(chunks))
	}

	result := &Result{
		Documents: len(docs),
		Chunks:    len(chunks),
		Duration:  time.Since(started),
	}
	p.logger.Info("ingestion complete",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"duration", result.Duration)
	return result, nil
}

// chunkDocuments splits every document and assigns stable chunk identities.
func (p *Pipeline) chunkDocuments(docs []Document) []knowledge.Chunk {
	var chunks []knowledge.Chunk
	for _, doc := range docs {
		parts := p.chunker.Split(doc.Content)
		if len(parts) == 0 {
			p.logger.Warn("document produced no chunks", "source", doc.Source)
			continue
		}
		for i, part := range parts {
			chunks = append(chunks, knowledge.Chunk{
				ID:         chunkID(doc.Source, i),
				Source:     doc.Source,
				ChunkIndex: i,
				Content:    part,
				Metadata: map[string]string{
					"ext":   filepath.Ext(doc.Source),
					"bytes": strconv.FormatInt(doc.Size, 10),
				},
			})
		}
	}
	return chunks
}

// chunkID derives a stable identifier from the source path and chunk index,
// so re-ingesting the same file upserts instead of duplicating.
func chunkID(source string, index int) string {
	sum := sha256.Sum256([]byte(source + "#" + strconv.Itoa(index)))
	return hex.EncodeToString(sum[:])
}
