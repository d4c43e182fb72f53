package rag

import (
	"context"

	"github.com/xhad/tome/internal/models"
	"github.com/xhad/tome/internal/types"
)

// Retriever embeds a query and fetches the most similar chunks for a
// tenant from the vector store.
type Retriever struct {
	embedder types.Embedder
	store    types.VectorStore
}

func NewRetriever(embedder types.Embedder, store types.VectorStore) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
	}
}

// Retrieve returns the k chunks closest to queryText within the
// tenant, best first. An empty result is not an error; a failed
// embedding call or unreachable store fails with RetrievalError
// wrapping the cause. No similarity floor is applied here: the
// closest k are always returned, however poor their scores.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, queryText string, k int) ([]models.SearchResult, error) {
	embedding, err := r.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, &models.RetrievalError{Query: queryText, Err: err}
	}

	results, err := r.store.Search(ctx, tenantID, embedding, k)
	if err != nil {
		return nil, &models.RetrievalError{Query: queryText, Err: err}
	}

	return results, nil
}
