package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/tome/internal/models"
	"golang.org/x/time/rate"
)

// EmbedderConfig represents the configuration for the embedding
// client.
type EmbedderConfig struct {
	Model     string
	BaseURL   string  // Ollama server URL
	VectorDim int     // expected embedding dimension; 0 disables the check
	BatchSize int     // texts per upstream call
	RateLimit float64 // upstream calls per second
}

// Embedder turns text into fixed-dimension vectors via an external
// embedding model. Calls are batched and rate limited; the model is
// expected to be deterministic for identical input.
type Embedder struct {
	config  EmbedderConfig
	llm     *ollama.LLM
	limiter *rate.Limiter
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 16
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 4.0
	}

	emb, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return &Embedder{
		config:  config,
		llm:     emb,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// EmbedTexts embeds texts in configured batch sizes, preserving input
// order. Any upstream failure surfaces as EmbeddingError; nothing is
// retried here.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, &models.EmbeddingError{Err: err}
		}

		batch, err := e.llm.CreateEmbedding(ctx, texts[start:end])
		if err != nil {
			return nil, &models.EmbeddingError{Err: err}
		}
		if len(batch) != end-start {
			return nil, &models.EmbeddingError{
				Err: fmt.Errorf("expected %d embeddings, got %d", end-start, len(batch)),
			}
		}

		for _, vec := range batch {
			if e.config.VectorDim > 0 && len(vec) != e.config.VectorDim {
				return nil, &models.EmbeddingError{
					Err: fmt.Errorf("embedding dimension %d does not match configured %d",
						len(vec), e.config.VectorDim),
				}
			}
			vectors = append(vectors, vec)
		}
	}

	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
