package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/askemail/pkg/domain/types"
)

// EmbeddingDimension is the fixed dimension of memory embeddings.
const EmbeddingDimension = 768

// MemoryID is a UUID-based identifier for Memory
type MemoryID string

// NewMemoryID generates a new UUID v4 MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

// Memory is one remembered fact for a sender: the request that produced it,
// the content the agent chose to keep, and the embedding used as the
// similarity-search key. Records are append-only; they are never updated or
// deleted by the service.
type Memory struct {
	ID        MemoryID
	Email     types.EmailAddress
	Request   string
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// MemoryMatch is a similarity-search hit: the hydrated record plus its
// cosine similarity score against the query embedding.
type MemoryMatch struct {
	Memory *Memory
	Score  float64
}
