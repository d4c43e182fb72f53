package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/tome/pkg/llm"
)

func TestNewEmbedderWithConfig_Defaults(t *testing.T) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{})
	require.NoError(t, err)
	assert.NotNil(t, embedder)
}

func TestNewEmbedderWithConfig_CustomServer(t *testing.T) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:     "nomic-embed-text:latest",
		BaseURL:   "http://localhost:1234",
		VectorDim: 768,
		BatchSize: 8,
		RateLimit: 2.0,
	})
	require.NoError(t, err)
	assert.NotNil(t, embedder)
}

func TestEmbedTexts_NoInputNoUpstreamCall(t *testing.T) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		// Unroutable server: any upstream call would fail loudly
		BaseURL: "http://localhost:1",
	})
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}
