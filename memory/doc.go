// Package memory persists and retrieves per-user conversation memories.
//
// A memory is a timestamped free-text fact about the user ("User said: ..."),
// embedded into a vector and stored under the owner's id with kind "recall".
// Later turns query the store semantically and splice the payloads back into
// the system prompt.
//
// Architecture:
//   - Store: vector storage backend (pgvector for production, chromem-go
//     as the in-process fallback when Postgres is unreachable)
//   - Embedder: text-to-vector conversion (OpenAI ada-002, 1536 dims)
//   - Service: orchestrates save and retrieve, degrades on provider failure
//
// Memory persistence is a best-effort side channel: every failure on this
// path is returned as an explicit error for the caller to log, and the
// conversation continues without it.
package memory
