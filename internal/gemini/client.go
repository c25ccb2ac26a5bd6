// Package gemini wraps the Google Gemini API for embedding and generation.
//
// The managed API is rate limited, so all calls go through a client-side
// token-bucket limiter; callers see ordinary blocking methods.
package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Embedding task types understood by the Gemini embedding models.
// Documents and queries are embedded asymmetrically.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// maxEmbedBatch is the maximum number of inputs per EmbedContent call.
const maxEmbedBatch = 100

// Options configures the Gemini client.
type Options struct {
	// Model is the generation model (e.g. "gemini-2.5-flash").
	Model string

	// EmbedderModel is the embedding model (e.g. "gemini-embedding-001").
	EmbedderModel string

	// Temperature for generation. 0 is deterministic.
	Temperature float32

	// MaxTokens caps the generated answer length.
	MaxTokens int32

	// Dimension pins the embedding output dimensionality. Must match the
	// vector column in the documents table.
	Dimension int32

	// RequestsPerSecond paces API calls. <= 0 disables pacing.
	RequestsPerSecond float64
}

// Client is a thin wrapper over the genai SDK.
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	genai   *genai.Client
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Gemini client authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts Options, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if opts.Model == "" || opts.EmbedderModel == "" {
		return nil, fmt.Errorf("gemini: model and embedder model are required")
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("gemini: embedding dimension must be positive, got %d", opts.Dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		genai:   gc,
		opts:    opts,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// wait blocks until the limiter allows the next API call.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("gemini: rate limiter: %w", err)
	}
	return nil
}

// EmbedDocuments embeds a batch of document chunks. The result has one
// vector per input, in input order.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		batch, err := c.embed(ctx, texts[start:end], taskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("gemini: empty query text")
	}

	vectors, err := c.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embed performs one EmbedContent call for up to maxEmbedBatch inputs.
func (c *Client) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := c.opts.Dimension
	resp, err := c.genai.Models.EmbedContent(ctx, c.opts.EmbedderModel, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: embedding %d inputs: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini: empty embedding at index %d", i)
		}
		vectors[i] = emb.Values
	}

	c.logger.Debug("embedded texts", "count", len(texts), "task", taskType)
	return vectors, nil
}

// Generate produces a completion for the given prompt using the configured
// generation model, temperature and token cap.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("gemini: empty prompt")
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	temp := c.opts.Temperature
	resp, err := c.genai.Models.GenerateContent(ctx, c.opts.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generating content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: model returned no text")
	}

	c.logger.Debug("generated answer", "prompt_len", len(prompt), "answer_len", len(text))
	return text, nil
}
