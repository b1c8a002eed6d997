package interfaces

import (
	"context"

	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/types"
)

// MemoryRepository defines the interface for Memory data persistence.
// All operations are scoped to the sender address, which acts as an
// isolation namespace: one sender can never see another's records.
type MemoryRepository interface {
	// Create persists a new memory record (without embedding) and assigns
	// its ID. The embedding is attached separately via SetEmbedding, so a
	// failed embedding leaves the record persisted but unindexed.
	Create(ctx context.Context, email types.EmailAddress, memory *model.Memory) (*model.Memory, error)

	// SetEmbedding upserts the similarity-search key for an existing
	// record. The operation is idempotent and may be retried.
	SetEmbedding(ctx context.Context, email types.EmailAddress, id model.MemoryID, embedding []float32) error

	// GetByIDs hydrates records by ID, preserving the order of the given
	// IDs. Missing IDs are skipped, not errors.
	GetByIDs(ctx context.Context, email types.EmailAddress, ids []model.MemoryID) ([]*model.Memory, error)

	// FindByEmbedding performs vector similarity search over the sender's
	// namespace using cosine similarity. Results are ordered by descending
	// score; no re-ranking is applied.
	FindByEmbedding(ctx context.Context, email types.EmailAddress, embedding []float32, limit int) ([]*model.MemoryMatch, error)
}
