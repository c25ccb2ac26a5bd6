// Package rag implements retrieval-augmented question answering.
//
// A question is embedded, the most similar stored chunks are retrieved, and
// the model answers from those chunks only. When retrieval comes back empty
// the service answers with a fixed fallback instead of calling the model, so
// an empty knowledge base can never produce a hallucinated answer.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/docchat/docchat/internal/knowledge"
)

// FallbackAnswer is returned when no relevant chunks exist for a question.
const FallbackAnswer = "I don't have enough information in my knowledge base to answer that question."

// promptTemplate grounds the model in the retrieved context. The wording
// instructs the model to refuse rather than invent when the context does not
// cover the question.
const promptTemplate = `You are a helpful AI assistant answering questions from a knowledge base.

Use the following pieces of context to answer the question at the end.
If you don't know the answer based on the context provided, just say "%s"
Do NOT make up an answer or use information outside of the provided context.

Context:
%s

Question: %s

Helpful Answer:`

// MaxQuestionLen bounds accepted question length in runes.
const MaxQuestionLen = 2000

// Retriever finds stored chunks similar to a query.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
	Count(ctx context.Context) (int, error)
	CountBySource(ctx context.Context) ([]knowledge.SourceCount, error)
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Source describes one retrieved chunk behind an answer.
type Source struct {
	File       string  `json:"file"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// Answer is the result of one question.
type Answer struct {
	// Text is the model's answer, or FallbackAnswer when nothing relevant
	// was retrieved.
	Text string `json:"answer"`

	// Sources lists the retrieved chunks backing the answer, best match
	// first. Empty for fallback answers.
	Sources []Source `json:"sources"`

	// Duration covers retrieval plus generation.
	Duration time.Duration `json:"duration"`
}

// Files returns the distinct source files behind the answer, in retrieval
// order.
func (a *Answer) Files() []string {
	files := make([]string, 0, len(a.Sources))
	for _, src := range a.Sources {
		if !slices.Contains(files, src.File) {
			files = append(files, src.File)
		}
	}
	return files
}

// Stats describes the current knowledge base contents.
type Stats struct {
	Chunks  int                     `json:"chunks"`
	Sources []knowledge.SourceCount `json:"sources"`
}

// Service answers questions against the knowledge store.
type Service struct {
	retriever Retriever
	generator Generator
	topK      int
	logger    *slog.Logger
}

// New creates a Service retrieving topK chunks per question.
func New(retriever Retriever, generator Generator, topK int, logger *slog.Logger) (*Service, error) {
	if retriever == nil {
		return nil, fmt.Errorf("rag: retriever is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("rag: generator is required")
	}
	if topK < 1 || topK > knowledge.MaxTopK {
		return nil, fmt.Errorf("rag: top_k must be in [1, %d], got %d", knowledge.MaxTopK, topK)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{retriever: retriever, generator: generator, topK: topK, logger: logger}, nil
}

// Ask answers one question from the knowledge base.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	started := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("rag: question is empty")
	}
	if len([]rune(question)) > MaxQuestionLen {
		return nil, fmt.Errorf("rag: question exceeds %d characters", MaxQuestionLen)
	}

	results, err := s.retriever.Search(ctx, question, knowledge.WithTopK(s.topK))
	if err != nil {
		return nil, fmt.Errorf("rag: retrieving context: %w", err)
	}

	if len(results) == 0 {
		s.logger.Info("no context retrieved, returning fallback", "question_len", len(question))
		return &Answer{
			Text:     FallbackAnswer,
			Sources:  []Source{},
			Duration: time.Since(started),
		}, nil
	}

	prompt := buildPrompt(question, results)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("rag: generating answer: %w", err)
	}

	answer := &Answer{
		Text:     strings.TrimSpace(text),
		Sources:  sourceList(results),
		Duration: time.Since(started),
	}
	s.logger.Info("answered question",
		"retrieved", len(answer.Sources),
		"files", len(answer.Files()),
		"duration", answer.Duration)
	return answer, nil
}

// Stats reports the size and composition of the knowledge base.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	chunks, err := s.retriever.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: counting chunks: %w", err)
	}
	sources, err := s.retriever.CountBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: counting sources: %w", err)
	}
	return &Stats{Chunks: chunks, Sources: sources}, nil
}

// buildPrompt stuffs all retrieved chunks into the grounded template.
func buildPrompt(question string, results []knowledge.Result) string {
	var ctx strings.Builder
	for i, r := range results {
		if i > 0 {
			ctx.WriteString("\n\n")
		}
		fmt.Fprintf(&ctx, "[%s]\n%s", r.Chunk.Source, r.Chunk.Content)
	}
	return fmt.Sprintf(promptTemplate, FallbackAnswer, ctx.String(), question)
}

// sourceList maps retrieval results to answer sources, best match first.
func sourceList(results []knowledge.Result) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			File:       r.Chunk.Source,
			Similarity: r.Similarity,
			Content:    r.Chunk.Content,
		}
	}
	return sources
}
