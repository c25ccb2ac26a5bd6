package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSearchConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       []SearchOption
		wantTopK   int
		wantSource string
	}{
		{
			name:     "defaults",
			wantTopK: 3,
		},
		{
			name:     "explicit top k",
			opts:     []SearchOption{WithTopK(5)},
			wantTopK: 5,
		},
		{
			name:     "zero falls back to default",
			opts:     []SearchOption{WithTopK(0)},
			wantTopK: 3,
		},
		{
			name:     "negative falls back to default",
			opts:     []SearchOption{WithTopK(-2)},
			wantTopK: 3,
		},
		{
			name:     "clamped to MaxTopK",
			opts:     []SearchOption{WithTopK(1000)},
			wantTopK: MaxTopK,
		},
		{
			name:       "source filter",
			opts:       []SearchOption{WithSource("faq.md")},
			wantTopK:   3,
			wantSource: "faq.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := buildSearchConfig(tt.opts)
			assert.Equal(t, tt.wantTopK, cfg.topK)
			assert.Equal(t, tt.wantSource, cfg.source)
		})
	}
}
