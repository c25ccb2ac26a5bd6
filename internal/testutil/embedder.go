package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
)

// FakeEmbedder is a deterministic in-process embedder for tests.
//
// Each text maps to a fixed vector derived from its hash, so equal texts
// always embed identically and different texts rarely collide. The vectors
// are unit length, which keeps cosine similarity scores in a sane range.
type FakeEmbedder struct {
	Dimension int

	// Err, when set, is returned from every call.
	Err error

	mu    sync.Mutex
	calls int
}

// NewFakeEmbedder returns a FakeEmbedder producing vectors of dim components.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dimension: dim}
}

// EmbedDocuments embeds a batch of texts.
func (f *FakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.record()
	if f.Err != nil {
		return nil, f.Err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = f.vector(text)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text.
func (f *FakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.record()
	if f.Err != nil {
		return nil, f.Err
	}
	if text == "" {
		return nil, fmt.Errorf("empty query text")
	}
	return f.vector(text), nil
}

// Calls reports how many embed calls were made.
func (f *FakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeEmbedder) record() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

// vector derives a unit-length pseudo-random vector from the text hash.
func (f *FakeEmbedder) vector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, f.Dimension)
	var norm float64
	for i := range vec {
		// xorshift64 keeps the sequence deterministic per seed.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed)) / float64(math.MaxInt64)
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
