// Package pgvector implements the memory store on PostgreSQL with the
// pgvector extension. This is the production backend; upserts are
// idempotent by id and queries use cosine distance.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/rafalkola/language-ai-bot/memory"
)

// Store persists recall memories in a recall_memory table, one row per
// record, partitioned by namespace and filtered by owner and kind.
type Store struct {
	db        *sql.DB
	namespace string
}

// Config holds connection settings for the Postgres backend.
type Config struct {
	// DSN is the lib/pq connection string.
	DSN string

	// Namespace partitions this application's rows. Default "default".
	Namespace string

	// Dimensions is the embedding vector size. Default 1536.
	Dimensions int
}

const schemaTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS recall_memory (
	id TEXT PRIMARY KEY,
	namespace TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	embedding vector(%d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recall_memory_owner
	ON recall_memory (namespace, owner_id, kind);
`

// New connects to Postgres, verifies reachability and ensures the schema.
// Callers treat any error as "backend unreachable" and fall back to the
// in-process store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(schemaTemplate, cfg.Dimensions)); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.Printf("[PGVECTOR] Connected, namespace=%s", cfg.Namespace)
	return &Store{db: db, namespace: cfg.Namespace}, nil
}

// Upsert inserts a memory row, overwriting any existing row with the same
// id. Re-upserting an id never duplicates.
func (s *Store) Upsert(ctx context.Context, mem memory.Memory) error {
	stmt := `
		INSERT INTO recall_memory (id, namespace, owner_id, kind, payload, path, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			payload = EXCLUDED.payload,
			embedding = EXCLUDED.embedding,
			created_at = EXCLUDED.created_at
	`

	path := ""
	if recall, ok := mem.(*memory.RecallMemory); ok {
		path = recall.Path()
	}

	_, err := s.db.ExecContext(ctx, stmt,
		mem.ID(),
		s.namespace,
		mem.OwnerID(),
		mem.Kind(),
		mem.Payload(),
		path,
		pgvector.NewVector(mem.Embedding()),
		mem.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("upsert recall memory: %w", err)
	}
	return nil
}

// Query returns up to limit rows matching the owner and kind conjunction,
// ordered by cosine distance to embedding.
func (s *Store) Query(ctx context.Context, filter memory.Filter, embedding []float32, limit int) ([]memory.Memory, error) {
	query := `
		SELECT id, owner_id, payload, embedding, created_at
		FROM recall_memory
		WHERE namespace = $1 AND owner_id = $2 AND kind = $3
		ORDER BY embedding <=> $4
		LIMIT $5
	`

	rows, err := s.db.QueryContext(ctx, query,
		s.namespace, filter.OwnerID, filter.Kind, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query recall memories: %w", err)
	}
	defer rows.Close()

	var memories []memory.Memory
	for rows.Next() {
		var (
			id        string
			ownerID   string
			payload   string
			vector    pgvector.Vector
			createdAt time.Time
		)
		if err := rows.Scan(&id, &ownerID, &payload, &vector, &createdAt); err != nil {
			return nil, fmt.Errorf("scan recall memory: %w", err)
		}
		memories = append(memories, memory.NewRecallMemoryFromStorage(
			id, ownerID, payload, createdAt, vector.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return memories, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
