// Package knowledge manages the vector store of document chunks.
//
// Chunks live in PostgreSQL with a pgvector embedding column; retrieval is
// a top-k cosine search ordered by the <=> operator. The Store owns the SQL
// and embedding calls so callers deal only in Chunk and Result values.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Embedder turns text into vectors. Implemented by gemini.Client.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// chunkCols is the standard SELECT column list for scanChunks.
const chunkCols = `id, source, chunk_index, content, metadata, created_at`

// upsertChunkSQL handles both fresh inserts and re-ingestion of a chunk id.
const upsertChunkSQL = `INSERT INTO documents (id, source, chunk_index, content, embedding, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, now())
	ON CONFLICT (id) DO UPDATE
	SET source = EXCLUDED.source, chunk_index = EXCLUDED.chunk_index,
	    content = EXCLUDED.content, embedding = EXCLUDED.embedding,
	    metadata = EXCLUDED.metadata, created_at = now()`

// searchTimeout bounds a single vector search, embedding included.
const searchTimeout = 10 * time.Second

// Store manages document chunks with vector search.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger
}

// New creates a Store.
func New(pool *pgxpool.Pool, embedder Embedder, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}, nil
}

// Pool exposes the underlying connection pool for health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Add embeds and upserts a single chunk.
func (s *Store) Add(ctx context.Context, chunk Chunk) error {
	return s.AddBatch(ctx, []Chunk{chunk})
}

// AddBatch embeds and upserts a batch of chunks in one transaction, so a
// failed batch leaves no partial rows behind.
func (s *Store) AddBatch(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		if err := validateChunk(chunk); err != nil {
			return err
		}
		texts[i] = chunk.Content
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(chunks))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	for i, chunk := range chunks {
		metadataJSON, marshalErr := json.Marshal(chunk.Metadata)
		if marshalErr != nil {
			return fmt.Errorf("marshaling metadata for %q: %w", chunk.ID, marshalErr)
		}
		if _, execErr := tx.Exec(ctx, upsertChunkSQL,
			chunk.ID, chunk.Source, chunk.ChunkIndex, chunk.Content,
			pgvector.NewVector(vectors[i]), metadataJSON,
		); execErr != nil {
			return fmt.Errorf("upserting chunk %q: %w", chunk.ID, execErr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunk batch: %w", err)
	}

	s.logger.Debug("stored chunk batch", "count", len(chunks))
	return nil
}

// validateChunk checks required fields before hitting the embedder.
func validateChunk(chunk Chunk) error {
	if chunk.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if chunk.Source == "" {
		return fmt.Errorf("chunk %q: source is required", chunk.ID)
	}
	if chunk.ChunkIndex < 0 {
		return fmt.Errorf("chunk %q: negative chunk index %d", chunk.ID, chunk.ChunkIndex)
	}
	if strings.TrimSpace(chunk.Content) == "" {
		return fmt.Errorf("chunk %q: content is empty", chunk.ID)
	}
	return nil
}

// Search finds the chunks most similar to the query.
// Returns up to topK results ordered by cosine similarity descending.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}
	cfg := buildSearchConfig(opts)

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	queryVec, err := s.embedder.EmbedQuery(searchCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	vec := pgvector.NewVector(queryVec)

	var rows pgx.Rows
	if cfg.source != "" {
		rows, err = s.pool.Query(searchCtx,
			`SELECT `+chunkCols+`, 1 - (embedding <=> $1) AS similarity
			 FROM documents
			 WHERE source = $2
			 ORDER BY embedding <=> $1
			 LIMIT $3`,
			vec, cfg.source, cfg.topK,
		)
	} else {
		rows, err = s.pool.Query(searchCtx,
			`SELECT `+chunkCols+`, 1 - (embedding <=> $1) AS similarity
			 FROM documents
			 ORDER BY embedding <=> $1
			 LIMIT $2`,
			vec, cfg.topK,
		)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	return s.scanResults(rows)
}

// scanResults reads search rows, similarity column last.
func (s *Store) scanResults(rows pgx.Rows) ([]Result, error) {
	results := make([]Result, 0)
	for rows.Next() {
		var (
			chunk        Chunk
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.ChunkIndex, &chunk.Content,
			&metadataJSON, &chunk.CreatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		chunk.Metadata = parseMetadata(s.logger, chunk.ID, metadataJSON)
		results = append(results, Result{Chunk: chunk, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return results, nil
}

// parseMetadata decodes the JSONB column, degrading to empty on bad data.
func parseMetadata(logger *slog.Logger, chunkID string, data []byte) map[string]string {
	metadata := make(map[string]string)
	if len(data) == 0 {
		return metadata
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		logger.Warn("failed to parse chunk metadata", "chunk_id", chunkID, "error", err)
		return map[string]string{}
	}
	return metadata
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// CountBySource returns per-source chunk counts ordered by source name.
func (s *Store) CountBySource(ctx context.Context) ([]SourceCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, COUNT(*) FROM documents GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("counting chunks by source: %w", err)
	}
	defer rows.Close()

	counts := make([]SourceCount, 0)
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Chunks); err != nil {
			return nil, fmt.Errorf("scanning source count: %w", err)
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading source counts: %w", err)
	}
	return counts, nil
}

// DeleteSource removes all chunks belonging to one source file.
// Returns the number of deleted chunks.
func (s *Store) DeleteSource(ctx context.Context, source string) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("source is required")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("deleting source %q: %w", source, err)
	}
	s.logger.Debug("deleted source", "source", source, "chunks", tag.RowsAffected())
	return int(tag.RowsAffected()), nil
}

// Clear removes every stored chunk. Used by the ingestion pipeline before a
// full reload and by the reset command.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	s.logger.Debug("cleared documents table")
	return nil
}
