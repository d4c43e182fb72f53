package rag

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/xhad/tome/internal/models"
	"github.com/xhad/tome/internal/types"
)

// NoRelevantInformation is the fixed answer returned when a query
// retrieves no context. The generator is never called in that case;
// prompting it with empty context invites hallucinated answers.
const NoRelevantInformation = "No relevant information found in the knowledge base."

// ErrInvalidTenantName reports a tenant name that is empty after
// normalization.
var ErrInvalidTenantName = errors.New("tenant name contains no usable characters")

type PipelineConfig struct {
	SearchLimit int // default k for AnswerQuery
}

// Pipeline is the orchestrator behind the API surface. It composes
// the extractor, chunker, embedder, store, and generator, and is the
// single place where internal errors become caller-facing results.
type Pipeline struct {
	config    PipelineConfig
	extractor types.Extractor
	chunker   types.Chunker
	embedder  types.Embedder
	generator types.Generator
	store     types.VectorStore
	retriever *Retriever
}

func NewPipeline(config PipelineConfig, extractor types.Extractor, chunker types.Chunker,
	embedder types.Embedder, generator types.Generator, store types.VectorStore) *Pipeline {
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}

	return &Pipeline{
		config:    config,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		generator: generator,
		store:     store,
		retriever: NewRetriever(embedder, store),
	}
}

// CreateTenant normalizes name and creates the tenant. A name that
// normalizes to nothing fails with ErrInvalidTenantName.
func (p *Pipeline) CreateTenant(ctx context.Context, name string) (models.Tenant, error) {
	normalized := NormalizeTenantName(name)
	if normalized == "" {
		return models.Tenant{}, fmt.Errorf("%w: %q", ErrInvalidTenantName, name)
	}

	return p.store.CreateTenant(ctx, normalized)
}

// DeleteTenant removes the tenant and everything it owns. A tenant
// that does not exist fails with NotFoundError.
func (p *Pipeline) DeleteTenant(ctx context.Context, tenantID string) error {
	existed, err := p.store.DeleteTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if !existed {
		return &models.NotFoundError{Resource: "tenant", ID: tenantID}
	}
	return nil
}

func (p *Pipeline) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	return p.store.ListTenants(ctx)
}

func (p *Pipeline) ListDocuments(ctx context.Context, tenantID string) ([]models.DocumentInfo, error) {
	return p.store.ListDocuments(ctx, tenantID)
}

// DeleteDocument removes a document and its chunks. Ownership is
// checked: a document id belonging to another tenant is reported as
// not found, never deleted.
func (p *Pipeline) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	existed, err := p.store.DeleteDocument(ctx, tenantID, documentID)
	if err != nil {
		return err
	}
	if !existed {
		return &models.NotFoundError{Resource: "document", ID: documentID}
	}
	return nil
}

// Ingest runs extraction, chunking, and embedding for one uploaded
// file and writes the result atomically. Embedding happens before
// anything touches the store, so a failed embed leaves no partial
// document behind. An upload with no extractable text produces no
// document row and a zero chunk count.
func (p *Pipeline) Ingest(ctx context.Context, tenantID, filename string, content []byte) (models.IngestResult, error) {
	text, err := p.extractor.Extract(ctx, filename, content)
	if err != nil {
		return models.IngestResult{}, err
	}

	chunks := slices.Collect(p.chunker.Split(strings.TrimSpace(text)))
	if len(chunks) == 0 {
		return models.IngestResult{Filename: filename, ChunkCount: 0}, nil
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return models.IngestResult{}, err
	}

	stored := make([]models.Chunk, len(chunks))
	for i, chunk := range chunks {
		stored[i] = models.Chunk{
			Content:   chunk,
			Embedding: embeddings[i],
		}
	}

	documentID, err := p.store.WriteDocument(ctx, tenantID, filename, stored)
	if err != nil {
		return models.IngestResult{}, err
	}

	return models.IngestResult{
		DocumentID: documentID,
		Filename:   filename,
		ChunkCount: len(stored),
	}, nil
}

// AnswerQuery retrieves the k most relevant chunks for the question
// and asks the generator for an answer grounded in them. k <= 0 uses
// the configured default. Retrieval or generation failures surface as
// QueryError; a query that finds no context returns the fixed
// no-information answer without calling the generator.
func (p *Pipeline) AnswerQuery(ctx context.Context, tenantID, question string, k int) (models.QueryResult, error) {
	prompt, sources, err := p.PreparePrompt(ctx, tenantID, question, k)
	if err != nil {
		return models.QueryResult{}, err
	}
	if prompt == "" {
		return models.QueryResult{Answer: NoRelevantInformation}, nil
	}

	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return models.QueryResult{}, &models.QueryError{Err: err}
	}

	return models.QueryResult{
		Answer:  answer,
		Sources: sources,
	}, nil
}

// PreparePrompt retrieves context for the question and assembles the
// generation prompt plus the deduplicated source filenames in rank
// order. An empty prompt means no context was found.
func (p *Pipeline) PreparePrompt(ctx context.Context, tenantID, question string, k int) (string, []string, error) {
	if k <= 0 {
		k = p.config.SearchLimit
	}

	results, err := p.retriever.Retrieve(ctx, tenantID, question, k)
	if err != nil {
		return "", nil, &models.QueryError{Err: err}
	}
	if len(results) == 0 {
		return "", nil, nil
	}

	return buildPrompt(question, results), collectSources(results), nil
}

// buildPrompt produces the deterministic prompt sent to the
// generator: retrieved chunks with their provenance, then the
// question.
func buildPrompt(question string, results []models.SearchResult) string {
	var b strings.Builder

	b.WriteString("Answer the question using only the context below.\n\nContext:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "Source: %s\n%s\n\n", r.Filename, r.Content)
	}
	fmt.Fprintf(&b, "Question: %s", question)

	return b.String()
}

func collectSources(results []models.SearchResult) []string {
	var sources []string
	seen := make(map[string]bool)

	for _, r := range results {
		if !seen[r.Filename] {
			sources = append(sources, r.Filename)
			seen[r.Filename] = true
		}
	}

	return sources
}
