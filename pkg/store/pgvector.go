package store

import (
	"context"
	"errors"
	"fmt"

	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/tome/internal/models"
)

type VectorStoreConfig struct {
	ConnString    string
	VectorDim     int
	SearchLimit   int
	MinSimilarity float32 // 0 disables the similarity floor
}

// VectorStore persists tenants, documents, and chunk embeddings in
// Postgres with pgvector. Every read and write path is scoped by
// tenant id; chunks can never be reached across tenants.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, &models.StorageError{Op: "connect", Err: err}
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS tenants (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			filename TEXT NOT NULL
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id BIGSERIAL PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, vs.config.VectorDim),

		`CREATE INDEX IF NOT EXISTS documents_tenant_id_idx
			ON documents (tenant_id)`,

		`CREATE INDEX IF NOT EXISTS chunks_document_id_idx
			ON chunks (document_id)`,

		`CREATE INDEX IF NOT EXISTS chunks_embedding_idx
			ON chunks
			USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = 100)`,
	}

	for _, stmt := range statements {
		if _, err := vs.pool.Exec(ctx, stmt); err != nil {
			return &models.StorageError{Op: "initialize", Err: err}
		}
	}

	return nil
}

// CreateTenant inserts a tenant under the given (already normalized)
// name. Duplicate names fail with StorageError.
func (vs *VectorStore) CreateTenant(ctx context.Context, name string) (models.Tenant, error) {
	tenant := models.Tenant{
		ID:   uuid.NewString(),
		Name: name,
	}

	_, err := vs.pool.Exec(ctx,
		`INSERT INTO tenants (id, name) VALUES ($1, $2)`,
		tenant.ID, tenant.Name)
	if err != nil {
		return models.Tenant{}, &models.StorageError{Op: "create tenant", Err: err}
	}

	return tenant, nil
}

// DeleteTenant removes the tenant and, via cascading foreign keys,
// all of its documents and chunks in a single statement. Returns
// whether the tenant existed.
func (vs *VectorStore) DeleteTenant(ctx context.Context, tenantID string) (bool, error) {
	tag, err := vs.pool.Exec(ctx,
		`DELETE FROM tenants WHERE id = $1`, tenantID)
	if err != nil {
		return false, &models.StorageError{Op: "delete tenant", Err: err}
	}

	return tag.RowsAffected() > 0, nil
}

func (vs *VectorStore) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	rows, err := vs.pool.Query(ctx,
		`SELECT id, name FROM tenants ORDER BY name`)
	if err != nil {
		return nil, &models.StorageError{Op: "list tenants", Err: err}
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, &models.StorageError{Op: "list tenants", Err: err}
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageError{Op: "list tenants", Err: err}
	}

	return tenants, nil
}

// WriteDocument persists a document row and all of its chunks in one
// transaction. On any failure the transaction is rolled back and no
// trace of the document remains.
func (vs *VectorStore) WriteDocument(ctx context.Context, tenantID, filename string, chunks []models.Chunk) (string, error) {
	for i, chunk := range chunks {
		if len(chunk.Embedding) != vs.config.VectorDim {
			return "", &models.StorageError{
				Op: "write document",
				Err: fmt.Errorf("chunk %d embedding dimension %d does not match store dimension %d",
					i, len(chunk.Embedding), vs.config.VectorDim),
			}
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return "", &models.StorageError{Op: "write document", Err: err}
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, tenantID).Scan(&exists)
	if err != nil {
		return "", &models.StorageError{Op: "write document", Err: err}
	}
	if !exists {
		return "", &models.NotFoundError{Resource: "tenant", ID: tenantID}
	}

	documentID := uuid.NewString()
	_, err = tx.Exec(ctx,
		`INSERT INTO documents (id, tenant_id, filename) VALUES ($1, $2, $3)`,
		documentID, tenantID, sanitizeUTF8(filename))
	if err != nil {
		return "", &models.StorageError{Op: "write document", Err: err}
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(
			`INSERT INTO chunks (document_id, content, embedding) VALUES ($1, $2, $3)`,
			documentID, sanitizeUTF8(chunk.Content), pgvector.NewVector(chunk.Embedding))
	}

	results := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return "", &models.StorageError{Op: "write document", Err: err}
		}
	}
	if err := results.Close(); err != nil {
		return "", &models.StorageError{Op: "write document", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", &models.StorageError{Op: "write document", Err: err}
	}

	return documentID, nil
}

// ListDocuments returns the documents belonging to the tenant.
// A tenant that does not exist fails with NotFoundError.
func (vs *VectorStore) ListDocuments(ctx context.Context, tenantID string) ([]models.DocumentInfo, error) {
	var exists bool
	err := vs.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, tenantID).Scan(&exists)
	if err != nil {
		return nil, &models.StorageError{Op: "list documents", Err: err}
	}
	if !exists {
		return nil, &models.NotFoundError{Resource: "tenant", ID: tenantID}
	}

	rows, err := vs.pool.Query(ctx,
		`SELECT id, tenant_id, filename FROM documents WHERE tenant_id = $1 ORDER BY filename`,
		tenantID)
	if err != nil {
		return nil, &models.StorageError{Op: "list documents", Err: err}
	}
	defer rows.Close()

	var docs []models.DocumentInfo
	for rows.Next() {
		var d models.DocumentInfo
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Filename); err != nil {
			return nil, &models.StorageError{Op: "list documents", Err: err}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageError{Op: "list documents", Err: err}
	}

	return docs, nil
}

// DeleteDocument removes the document and its chunks. The tenant id
// is part of the WHERE clause, so a document belonging to another
// tenant is reported as not existing rather than deleted.
func (vs *VectorStore) DeleteDocument(ctx context.Context, tenantID, documentID string) (bool, error) {
	tag, err := vs.pool.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND tenant_id = $2`,
		documentID, tenantID)
	if err != nil {
		return false, &models.StorageError{Op: "delete document", Err: err}
	}

	return tag.RowsAffected() > 0, nil
}

// Search returns up to k chunks belonging to the tenant's documents,
// ordered by ascending cosine distance to the query embedding, with
// insertion order breaking ties. Fewer than k available chunks is not
// an error.
func (vs *VectorStore) Search(ctx context.Context, tenantID string, embedding []float32, k int) ([]models.SearchResult, error) {
	if k < 1 {
		return nil, &models.StorageError{Op: "search", Err: errors.New("k must be at least 1")}
	}
	if len(embedding) != vs.config.VectorDim {
		return nil, &models.StorageError{
			Op: "search",
			Err: fmt.Errorf("query embedding dimension %d does not match store dimension %d",
				len(embedding), vs.config.VectorDim),
		}
	}

	query := `
		SELECT c.content, d.filename, 1 - (c.embedding <=> $1) AS similarity
		FROM chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.tenant_id = $2`
	args := []any{pgvector.NewVector(embedding), tenantID}

	if vs.config.MinSimilarity > 0 {
		query += ` AND 1 - (c.embedding <=> $1) >= $4`
	}
	query += `
		ORDER BY c.embedding <=> $1, c.id
		LIMIT $3`
	args = append(args, k)
	if vs.config.MinSimilarity > 0 {
		args = append(args, vs.config.MinSimilarity)
	}

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &models.StorageError{Op: "search", Err: err}
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		var similarity float64
		if err := rows.Scan(&r.Content, &r.Filename, &similarity); err != nil {
			return nil, &models.StorageError{Op: "search", Err: err}
		}
		r.Similarity = float32(similarity)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageError{Op: "search", Err: err}
	}

	return results, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// Postgres rejects text containing invalid UTF-8 sequences.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
