package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/knowledge"
	"github.com/docchat/docchat/internal/log"
)

// fakeRetriever returns canned search results.
type fakeRetriever struct {
	results   []knowledge.Result
	searchErr error
	count     int
	bySource  []knowledge.SourceCount
	lastQuery string
}

func (f *fakeRetriever) Search(_ context.Context, query string, _ ...knowledge.SearchOption) ([]knowledge.Result, error) {
	f.lastQuery = query
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeRetriever) Count(context.Context) (int, error) {
	return f.count, nil
}

func (f *fakeRetriever) CountBySource(context.Context) ([]knowledge.SourceCount, error) {
	return f.bySource, nil
}

// fakeGenerator echoes a canned answer and records the prompt.
type fakeGenerator struct {
	answer     string
	err        error
	lastPrompt string
	calls      int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func results(chunks ...knowledge.Chunk) []knowledge.Result {
	out := make([]knowledge.Result, len(chunks))
	for i, c := range chunks {
		out[i] = knowledge.Result{Chunk: c, Similarity: 0.9 - float64(i)*0.1}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{}
	generator := &fakeGenerator{}
	logger := log.NewNop()

	_, err := New(nil, generator, 3, logger)
	require.Error(t, err)

	_, err = New(retriever, nil, 3, logger)
	require.Error(t, err)

	_, err = New(retriever, generator, 0, logger)
	require.Error(t, err)

	_, err = New(retriever, generator, knowledge.MaxTopK+1, logger)
	require.Error(t, err)

	svc, err := New(retriever, generator, 3, logger)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestAsk(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{
		results: results(
			knowledge.Chunk{ID: "a-0", Source: "a.txt", Content: "Alpha context."},
			knowledge.Chunk{ID: "b-0", Source: "b.txt", Content: "Beta context."},
			knowledge.Chunk{ID: "a-1", Source: "a.txt", Content: "More alpha."},
		),
	}
	generator := &fakeGenerator{answer: "  The answer is alpha.  "}

	svc, err := New(retriever, generator, 3, log.NewNop())
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), "what is alpha?")
	require.NoError(t, err)

	assert.Equal(t, "The answer is alpha.", answer.Text)
	require.Len(t, answer.Sources, 3)
	assert.Equal(t, "a.txt", answer.Sources[0].File)
	assert.Equal(t, "Alpha context.", answer.Sources[0].Content)
	assert.InDelta(t, 0.9, answer.Sources[0].Similarity, 0.001)
	assert.Equal(t, []string{"a.txt", "b.txt"}, answer.Files(), "files deduplicated in retrieval order")
	assert.Equal(t, "what is alpha?", retriever.lastQuery)

	// The prompt must carry all retrieved chunks and the question.
	assert.Contains(t, generator.lastPrompt, "Alpha context.")
	assert.Contains(t, generator.lastPrompt, "Beta context.")
	assert.Contains(t, generator.lastPrompt, "More alpha.")
	assert.Contains(t, generator.lastPrompt, "what is alpha?")
	assert.Contains(t, generator.lastPrompt, FallbackAnswer)
}

func TestAsk_NoContextReturnsFallback(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{} // empty results
	generator := &fakeGenerator{answer: "should never be used"}

	svc, err := New(retriever, generator, 3, log.NewNop())
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), "anything?")
	require.NoError(t, err)

	assert.Equal(t, FallbackAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, generator.calls, "model must not be called without context")
}

func TestAsk_InvalidQuestion(t *testing.T) {
	t.Parallel()

	svc, err := New(&fakeRetriever{}, &fakeGenerator{}, 3, log.NewNop())
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.Ask(ctx, "")
	require.Error(t, err)

	_, err = svc.Ask(ctx, "   \n ")
	require.Error(t, err)

	_, err = svc.Ask(ctx, strings.Repeat("q", MaxQuestionLen+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestAsk_ErrorsPropagate(t *testing.T) {
	t.Parallel()

	t.Run("search failure", func(t *testing.T) {
		t.Parallel()
		svc, err := New(&fakeRetriever{searchErr: assert.AnError}, &fakeGenerator{}, 3, log.NewNop())
		require.NoError(t, err)

		_, err = svc.Ask(context.Background(), "q?")
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("generation failure", func(t *testing.T) {
		t.Parallel()
		retriever := &fakeRetriever{
			results: results(knowledge.Chunk{ID: "a-0", Source: "a.txt", Content: "ctx"}),
		}
		svc, err := New(retriever, &fakeGenerator{err: assert.AnError}, 3, log.NewNop())
		require.NoError(t, err)

		_, err = svc.Ask(context.Background(), "q?")
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestStats(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{
		count: 5,
		bySource: []knowledge.SourceCount{
			{Source: "a.txt", Chunks: 3},
			{Source: "b.txt", Chunks: 2},
		},
	}
	svc, err := New(retriever, &fakeGenerator{}, 3, log.NewNop())
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Chunks)
	require.Len(t, stats.Sources, 2)
	assert.Equal(t, "a.txt", stats.Sources[0].Source)
}
