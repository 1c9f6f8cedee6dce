package memory

import (
	"context"
	"time"
)

// KindRecall tags persisted long-term memories, distinguishing them from
// any future vector kind sharing the namespace.
const KindRecall = "recall"

// Memory is the contract for records held in the vector store.
// RecallMemory is the only implementation today; the interface keeps the
// stores open to future kinds without schema changes.
type Memory interface {
	ID() string
	OwnerID() string
	Kind() string

	// Payload is the human-readable text, already timestamp-prefixed.
	Payload() string

	CreatedAt() time.Time

	Embedding() []float32
	SetEmbedding([]float32)
}

// Filter is the metadata conjunction applied to every query.
// Both fields are required: a query that omits either could leak another
// owner's records or conflate future kinds.
type Filter struct {
	OwnerID string
	Kind    string
}

// Store is the vector storage backend.
// Implementations: pgvector (production), chromem (in-process fallback).
type Store interface {
	// Upsert saves a memory with its embedding. Idempotent by id on
	// backends that support it; the fallback store appends.
	Upsert(ctx context.Context, mem Memory) error

	// Query returns up to limit records matching filter, nearest first
	// by cosine similarity. An empty store yields an empty slice, not
	// an error.
	Query(ctx context.Context, filter Filter, embedding []float32, limit int) ([]Memory, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: the OpenAI embedder (production), MockEmbedder (testing).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
