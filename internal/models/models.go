package models

// Tenant is an isolated document collection. Name is stored in
// normalized form (lowercase, [a-z0-9_] only).
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DocumentInfo identifies one uploaded file within a tenant.
type DocumentInfo struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Filename string `json:"filename"`
}

// Chunk is a bounded window of a document's extracted text together
// with its embedding. Chunks are immutable once written.
type Chunk struct {
	Content   string
	Embedding []float32
}

// SearchResult is one chunk returned by a similarity search, with its
// provenance and cosine similarity (1 - cosine distance) to the query.
type SearchResult struct {
	Content    string  `json:"content"`
	Filename   string  `json:"filename"`
	Similarity float32 `json:"similarity"`
}

// IngestResult reports a completed ingest. DocumentID is empty when
// the upload produced no extractable text and no row was created.
type IngestResult struct {
	DocumentID string `json:"document_id,omitempty"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// QueryResult carries the generated answer and the filenames of the
// documents whose chunks were used as context, in rank order.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}
