package types

import (
	"context"
	"iter"

	"github.com/xhad/tome/internal/models"
)

// Extractor converts an uploaded binary into plain text, in page
// order. A well-formed file with no text layer yields "".
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// Chunker splits extracted text into overlapping windows. The
// returned sequence is finite, lazy, and restartable; empty input
// yields an empty sequence.
type Chunker interface {
	Split(text string) iter.Seq[string]
}

// Embedder is the external embedding capability. All vectors it
// returns have the same dimension.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator is the external text-generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorStore persists chunks scoped to tenants and serves
// nearest-neighbor search. WriteDocument is atomic: either the
// document row and every chunk land, or nothing does.
type VectorStore interface {
	CreateTenant(ctx context.Context, name string) (models.Tenant, error)
	DeleteTenant(ctx context.Context, tenantID string) (bool, error)
	ListTenants(ctx context.Context) ([]models.Tenant, error)

	WriteDocument(ctx context.Context, tenantID, filename string, chunks []models.Chunk) (string, error)
	ListDocuments(ctx context.Context, tenantID string) ([]models.DocumentInfo, error)
	DeleteDocument(ctx context.Context, tenantID, documentID string) (bool, error)

	Search(ctx context.Context, tenantID string, embedding []float32, k int) ([]models.SearchResult, error)
}
