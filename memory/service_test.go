package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rafalkola/language-ai-bot/memory"
	"github.com/rafalkola/language-ai-bot/memory/embedder/mock"
	"github.com/rafalkola/language-ai-bot/memory/store/chromem"
)

// recordingStore captures upserted memories without a real backend.
type recordingStore struct {
	upserted []memory.Memory
}

func (r *recordingStore) Upsert(ctx context.Context, mem memory.Memory) error {
	r.upserted = append(r.upserted, mem)
	return nil
}

func (r *recordingStore) Query(ctx context.Context, filter memory.Filter, embedding []float32, limit int) ([]memory.Memory, error) {
	return nil, nil
}

func (r *recordingStore) Close() error { return nil }

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Upsert(ctx context.Context, mem memory.Memory) error {
	return errors.New("backend down")
}

func (failingStore) Query(ctx context.Context, filter memory.Filter, embedding []float32, limit int) ([]memory.Memory, error) {
	return nil, errors.New("backend down")
}

func (failingStore) Close() error { return nil }

// failingEmbedder fails every embedding request.
type failingEmbedder struct {
	dims int
}

func (f failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("provider unreachable")
}

func (f failingEmbedder) Dimensions() int { return f.dims }

func newTestService(t *testing.T) *memory.Service {
	t.Helper()
	store, err := chromem.New("test")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return memory.NewService(store, mock.New(64), nil)
}

func TestService_SaveAndRetrieve(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	defer svc.Close()

	status, err := svc.Save(ctx, "User likes discussing soccer", "alice")
	if err != nil {
		t.Fatalf("Failed to save memory: %v", err)
	}
	if status != memory.StatusSaved {
		t.Errorf("Expected status %q, got %q", memory.StatusSaved, status)
	}
	if _, err := svc.Save(ctx, "User struggles with the subjunctive", "alice"); err != nil {
		t.Fatalf("Failed to save second memory: %v", err)
	}

	payloads, err := svc.Retrieve(ctx, "what does the user enjoy", "alice")
	if err != nil {
		t.Fatalf("Failed to retrieve memories: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("Expected 2 memories, got %d", len(payloads))
	}
	joined := strings.Join(payloads, "\n")
	if !strings.Contains(joined, "User likes discussing soccer") {
		t.Errorf("Expected saved text in payloads, got %q", joined)
	}
	// Payloads carry the capture timestamp prefix.
	for _, p := range payloads {
		if !strings.HasPrefix(p, "[") || !strings.Contains(p, " UTC] ") {
			t.Errorf("Expected timestamp prefix on payload, got %q", p)
		}
	}
}

func TestService_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	defer svc.Close()

	if _, err := svc.Save(ctx, "Alice memory", "alice"); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if _, err := svc.Save(ctx, "Bob memory", "bob"); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	payloads, err := svc.Retrieve(ctx, "memory", "alice")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	for _, p := range payloads {
		if strings.Contains(p, "Bob memory") {
			t.Errorf("Retrieved another owner's memory: %q", p)
		}
	}
	if len(payloads) != 1 {
		t.Errorf("Expected 1 memory for alice, got %d", len(payloads))
	}
}

func TestService_RetrieveFromEmptyStore(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	defer svc.Close()

	// Twice: the second call must not be affected by the first.
	for i := 0; i < 2; i++ {
		payloads, err := svc.Retrieve(ctx, "anything", "nobody")
		if err != nil {
			t.Fatalf("Retrieve #%d failed on empty store: %v", i+1, err)
		}
		if len(payloads) != 0 {
			t.Errorf("Retrieve #%d: expected no memories, got %d", i+1, len(payloads))
		}
	}
}

func TestService_EmptyQueryUsesRecentProbe(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	defer svc.Close()

	if _, err := svc.Save(ctx, "Something recent", "alice"); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	payloads, err := svc.Retrieve(ctx, "", "alice")
	if err != nil {
		t.Fatalf("Retrieve with empty query failed: %v", err)
	}
	if len(payloads) != 1 {
		t.Errorf("Expected empty query to still retrieve, got %d memories", len(payloads))
	}
}

func TestService_SaveStoreFailure(t *testing.T) {
	ctx := context.Background()
	svc := memory.NewService(failingStore{}, mock.New(64), nil)
	defer svc.Close()

	status, err := svc.Save(ctx, "doomed", "alice")
	if err == nil {
		t.Fatal("Expected error from failing store")
	}
	if !strings.HasPrefix(status, "Error saving memory") {
		t.Errorf("Expected error status string, got %q", status)
	}
}

func TestService_RetrieveStoreFailure(t *testing.T) {
	ctx := context.Background()
	svc := memory.NewService(failingStore{}, mock.New(64), nil)
	defer svc.Close()

	payloads, err := svc.Retrieve(ctx, "anything", "alice")
	if err == nil {
		t.Fatal("Expected error from failing store")
	}
	// Errors never leak into the result list as pseudo-memories.
	if len(payloads) != 0 {
		t.Errorf("Expected no payloads on failure, got %v", payloads)
	}
}

func TestService_EmbedderDegradesToZeroVector(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	svc := memory.NewService(store, failingEmbedder{dims: 8}, nil)
	defer svc.Close()

	status, err := svc.Save(ctx, "still saved", "alice")
	if err != nil {
		t.Fatalf("Save should degrade, not fail: %v", err)
	}
	if status != memory.StatusSaved {
		t.Errorf("Expected status %q, got %q", memory.StatusSaved, status)
	}

	if len(store.upserted) != 1 {
		t.Fatalf("Expected 1 upsert, got %d", len(store.upserted))
	}
	embedding := store.upserted[0].Embedding()
	if len(embedding) != 8 {
		t.Fatalf("Expected 8-dim zero vector, got %d dims", len(embedding))
	}
	for i, v := range embedding {
		if v != 0 {
			t.Errorf("Expected zero vector, got %f at index %d", v, i)
		}
	}
}

func TestService_TwoSavesAreDistinct(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	svc := memory.NewService(store, mock.New(8), nil)
	defer svc.Close()

	if _, err := svc.Save(ctx, "same text", "alice"); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if _, err := svc.Save(ctx, "same text", "alice"); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if len(store.upserted) != 2 {
		t.Fatalf("Expected 2 upserts, got %d", len(store.upserted))
	}
	if store.upserted[0].ID() == store.upserted[1].ID() {
		t.Error("Expected distinct ids for repeated saves of the same text")
	}
}
