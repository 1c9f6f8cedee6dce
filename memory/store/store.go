// Package store wires a vector store backend at startup: the Postgres
// pgvector backend when reachable, the in-process chromem store otherwise.
// The chosen store is an explicit value passed to every component that
// needs it; there is no process-wide singleton.
package store

import (
	"context"
	"log"

	"github.com/rafalkola/language-ai-bot/memory"
	"github.com/rafalkola/language-ai-bot/memory/store/chromem"
	"github.com/rafalkola/language-ai-bot/memory/store/pgvector"
)

// Config selects and configures the backend.
type Config struct {
	// PostgresDSN enables the pgvector backend when non-empty.
	PostgresDSN string

	// Namespace partitions all of this application's records.
	Namespace string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// Open returns a ready vector store. Connection failures are logged, never
// returned: the caller always gets a working store, possibly the in-process
// fallback. The remote backend is wrapped in a circuit breaker so later
// outages degrade fast too.
func Open(ctx context.Context, cfg Config) memory.Store {
	if cfg.PostgresDSN != "" {
		pg, err := pgvector.New(ctx, pgvector.Config{
			DSN:        cfg.PostgresDSN,
			Namespace:  cfg.Namespace,
			Dimensions: cfg.Dimensions,
		})
		if err == nil {
			return memory.NewBreakerStore(pg, memory.BreakerConfig{})
		}
		log.Printf("[STORE] Error connecting to Postgres: %v", err)
	}

	fallback, err := chromem.New(cfg.Namespace)
	if err != nil {
		// chromem.New cannot fail today; keep the guard for the contract.
		log.Printf("[STORE] Error creating fallback store: %v", err)
	}
	log.Printf("[STORE] Using in-process vector store as fallback")
	return fallback
}
