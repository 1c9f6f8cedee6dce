package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timestampLayout is the prefix format embedded in every payload,
// e.g. "[2025-03-14 09:26:53 UTC] User said: ...".
const timestampLayout = "2006-01-02 15:04:05 UTC"

// RecallMemory is a timestamped, owner-tagged text fact.
// Immutable once written: no update or eviction path exists.
type RecallMemory struct {
	id        string
	ownerID   string
	payload   string
	createdAt time.Time
	embedding []float32
}

// NewRecallMemory captures text as a recall memory for owner, prefixing
// the payload with the current UTC timestamp.
func NewRecallMemory(ownerID string, text string) *RecallMemory {
	now := time.Now().UTC()
	return &RecallMemory{
		id:        uuid.New().String(),
		ownerID:   ownerID,
		payload:   fmt.Sprintf("[%s] %s", now.Format(timestampLayout), text),
		createdAt: now,
	}
}

// NewRecallMemoryFromStorage rebuilds a RecallMemory from stored fields.
// Used by Store implementations when deserializing query results.
func NewRecallMemoryFromStorage(id, ownerID, payload string, createdAt time.Time, embedding []float32) *RecallMemory {
	return &RecallMemory{
		id:        id,
		ownerID:   ownerID,
		payload:   payload,
		createdAt: createdAt,
		embedding: embedding,
	}
}

func (r *RecallMemory) ID() string      { return r.id }
func (r *RecallMemory) OwnerID() string { return r.ownerID }
func (r *RecallMemory) Kind() string    { return KindRecall }
func (r *RecallMemory) Payload() string { return r.payload }

func (r *RecallMemory) CreatedAt() time.Time { return r.createdAt }

func (r *RecallMemory) Embedding() []float32     { return r.embedding }
func (r *RecallMemory) SetEmbedding(e []float32) { r.embedding = e }

// Path returns the hierarchical key stored alongside the vector,
// "user/{owner}/recall/{id}".
func (r *RecallMemory) Path() string {
	return fmt.Sprintf("user/%s/%s/%s", r.ownerID, KindRecall, r.id)
}
