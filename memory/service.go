package memory

import (
	"context"
	"fmt"
	"log"

	"github.com/dgraph-io/ristretto"
)

// RecentProbe replaces an empty retrieval query so that retrieval still
// returns the owner's most central memories instead of failing.
const RecentProbe = "recent memories"

// StatusSaved is the status string returned by a successful Save.
// It doubles as the tool result the agent reports back to the model.
const StatusSaved = "Memory saved successfully"

// Service saves and retrieves recall memories for a user.
//
// Every operation degrades instead of blocking the conversation: embedding
// failures fall back to a zero vector, store failures surface as an explicit
// error plus an error-status string, and callers log and continue.
type Service struct {
	store    Store
	embedder Embedder
	config   *Config

	// probeCache holds embeddings for retrieval probes. The composer
	// re-embeds the same fixed probe every turn; caching it saves one
	// provider round trip per turn.
	probeCache *ristretto.Cache
}

// Config holds Service configuration.
type Config struct {
	// TopK is the number of neighbors requested per retrieval.
	// Default: 10.
	TopK int

	// ProbeCacheEntries bounds the probe-embedding cache.
	// Default: 1024. Zero disables the cache.
	ProbeCacheEntries int64
}

// DefaultConfig returns the defaults used by NewService when config is nil.
var DefaultConfig = &Config{
	TopK:              10,
	ProbeCacheEntries: 1024,
}

// NewService creates a memory service over the given store and embedder.
func NewService(store Store, embedder Embedder, config *Config) *Service {
	if config == nil {
		config = DefaultConfig
	}
	if config.TopK <= 0 {
		config.TopK = DefaultConfig.TopK
	}

	s := &Service{
		store:    store,
		embedder: embedder,
		config:   config,
	}

	if config.ProbeCacheEntries > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: config.ProbeCacheEntries * 10,
			MaxCost:     config.ProbeCacheEntries,
			BufferItems: 64,
		})
		if err != nil {
			log.Printf("[MEMORY] Probe cache disabled: %v", err)
		} else {
			s.probeCache = cache
		}
	}

	return s
}

// Save captures text as a recall memory for owner.
//
// It returns a status string in both outcomes: StatusSaved on success, or an
// error-status string paired with a non-nil error. The caller decides to
// log-and-continue; Save itself never aborts the conversation path.
func (s *Service) Save(ctx context.Context, text string, owner string) (string, error) {
	mem := NewRecallMemory(owner, text)

	log.Printf("[MEMORY] Saving memory for user %s: %s", owner, truncateLog(text, 50))

	mem.SetEmbedding(s.embed(ctx, mem.Payload()))

	if err := s.store.Upsert(ctx, mem); err != nil {
		log.Printf("[MEMORY] Error saving memory: %v", err)
		return fmt.Sprintf("Error saving memory: %v", err), fmt.Errorf("save memory: %w", err)
	}

	return StatusSaved, nil
}

// Retrieve returns the payloads of the owner's memories most relevant to
// query, nearest first. An empty query is replaced by RecentProbe. On total
// failure it returns an empty slice and the error; no error text is ever
// injected into the result list.
func (s *Service) Retrieve(ctx context.Context, query string, owner string) ([]string, error) {
	probe := query
	if probe == "" {
		probe = RecentProbe
	}

	log.Printf("[MEMORY] Loading memories for user %s with probe: %s", owner, truncateLog(probe, 50))

	embedding := s.embedProbe(ctx, probe)

	filter := Filter{OwnerID: owner, Kind: KindRecall}
	matches, err := s.store.Query(ctx, filter, embedding, s.config.TopK)
	if err != nil {
		log.Printf("[MEMORY] Error loading memories: %v", err)
		return nil, fmt.Errorf("retrieve memories: %w", err)
	}

	payloads := make([]string, 0, len(matches))
	for _, m := range matches {
		payloads = append(payloads, m.Payload())
	}

	log.Printf("[MEMORY] Found %d matching memories", len(payloads))
	return payloads, nil
}

// Close releases the service's cache resources. The store is owned by the
// caller and closed separately.
func (s *Service) Close() {
	if s.probeCache != nil {
		s.probeCache.Close()
	}
}

// embed converts text to a vector, degrading to a zero vector of the
// provider's dimensionality when the provider is unreachable. Trades
// retrieval quality for availability.
func (s *Service) embed(ctx context.Context, text string) []float32 {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("[MEMORY] Error generating embedding, using zero vector: %v", err)
		return make([]float32, s.embedder.Dimensions())
	}
	return vector
}

// embedProbe is embed with a cache in front, keyed by probe text.
// Zero vectors from degraded calls are not cached so a recovered provider
// is used on the next turn.
func (s *Service) embedProbe(ctx context.Context, probe string) []float32 {
	if s.probeCache != nil {
		if cached, ok := s.probeCache.Get(probe); ok {
			if vector, ok := cached.([]float32); ok {
				return vector
			}
		}
	}

	vector, err := s.embedder.Embed(ctx, probe)
	if err != nil {
		log.Printf("[MEMORY] Error generating probe embedding, using zero vector: %v", err)
		return make([]float32, s.embedder.Dimensions())
	}

	if s.probeCache != nil {
		s.probeCache.Set(probe, vector, 1)
	}
	return vector
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
