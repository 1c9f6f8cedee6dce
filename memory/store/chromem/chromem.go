package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/rafalkola/language-ai-bot/memory"
)

// Store is the in-process fallback vector store, backed by chromem-go
// (a pure Go, embedded vector database). It is swapped in when the
// Postgres backend is unreachable at startup.
//
// Known limitation: chromem-go has no delete or overwrite by id, so
// Upsert appends unconditionally. Acceptable for the fallback role;
// the pgvector backend is the idempotent one.
type Store struct {
	db          *chromem.DB
	namespace   string
	collections map[string]*chromem.Collection // per-owner collections
	mu          sync.RWMutex
}

// New creates an empty in-process store partitioned under namespace.
func New(namespace string) (*Store, error) {
	if namespace == "" {
		namespace = "default"
	}
	return &Store{
		db:          chromem.NewDB(),
		namespace:   namespace,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// getOrCreateCollection returns the collection for an owner. Each owner
// gets its own collection on top of the metadata filter, so cross-owner
// leakage would need two independent failures.
func (s *Store) getOrCreateCollection(ownerID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[ownerID]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[ownerID]; exists {
		return col, nil
	}

	name := fmt.Sprintf("%s_user_%s", s.namespace, ownerID)
	col, err := s.db.CreateCollection(
		name,
		nil, // no custom embedding func (we provide embeddings)
		nil, // no custom distance func (use default cosine)
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[ownerID] = col
	return col, nil
}

// Upsert stores a memory with its embedding. Appends; see type doc.
func (s *Store) Upsert(ctx context.Context, mem memory.Memory) error {
	col, err := s.getOrCreateCollection(mem.OwnerID())
	if err != nil {
		return err
	}

	log.Printf("[CHROMEM] Storing memory: id=%s, owner=%s, kind=%s",
		mem.ID(), mem.OwnerID(), mem.Kind())

	doc := chromem.Document{
		ID:        mem.ID(),
		Content:   mem.Payload(),
		Embedding: mem.Embedding(),
		Metadata: map[string]string{
			"owner_id":   mem.OwnerID(),
			"kind":       mem.Kind(),
			"created_at": mem.CreatedAt().Format(time.RFC3339),
		},
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query retrieves memories by vector similarity, filtered by the owner and
// kind conjunction.
func (s *Store) Query(ctx context.Context, filter memory.Filter, embedding []float32, limit int) ([]memory.Memory, error) {
	col, err := s.getOrCreateCollection(filter.OwnerID)
	if err != nil {
		return nil, err
	}

	where := map[string]string{
		"owner_id": filter.OwnerID,
		"kind":     filter.Kind,
	}

	// chromem-go requires nResults <= collection size; retry with smaller
	// limits until the query fits or the collection is empty.
	var results []chromem.Result
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		results, err = col.QueryEmbedding(ctx, embedding, currentLimit, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	memories := make([]memory.Memory, 0, len(results))
	for i, result := range results {
		createdAt, err := time.Parse(time.RFC3339, result.Metadata["created_at"])
		if err != nil {
			log.Printf("[CHROMEM] Skipping result #%d: bad created_at: %v", i+1, err)
			continue
		}
		memories = append(memories, memory.NewRecallMemoryFromStorage(
			result.ID,
			result.Metadata["owner_id"],
			result.Content,
			createdAt,
			result.Embedding,
		))
	}

	return memories, nil
}

// Close releases resources. chromem-go keeps everything in memory,
// nothing to close.
func (s *Store) Close() error {
	return nil
}

// isInsufficientDocsError checks if the error is chromem complaining that
// nResults exceeds the number of stored documents.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
