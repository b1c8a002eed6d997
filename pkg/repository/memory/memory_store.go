package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/types"
)

type memoryRepository struct {
	mu      sync.RWMutex
	entries map[types.EmailAddress]map[model.MemoryID]*model.Memory
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		entries: make(map[types.EmailAddress]map[model.MemoryID]*model.Memory),
	}
}

func copyMemory(m *model.Memory) *model.Memory {
	copied := &model.Memory{
		ID:        m.ID,
		Email:     m.Email,
		Request:   m.Request,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.Embedding != nil {
		copied.Embedding = make([]float32, len(m.Embedding))
		copy(copied.Embedding, m.Embedding)
	}
	return copied
}

func (r *memoryRepository) Create(ctx context.Context, email types.EmailAddress, mem *model.Memory) (*model.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[email]; !exists {
		r.entries[email] = make(map[model.MemoryID]*model.Memory)
	}

	created := copyMemory(mem)
	if created.ID == "" {
		created.ID = model.NewMemoryID()
	}
	created.Email = email
	created.CreatedAt = time.Now().UTC()

	r.entries[email][created.ID] = created
	return copyMemory(created), nil
}

func (r *memoryRepository) SetEmbedding(ctx context.Context, email types.EmailAddress, id model.MemoryID, embedding []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, exists := r.entries[email]
	if !exists {
		return goerr.Wrap(ErrNotFound, "memory not found", goerr.V("memoryID", id))
	}

	mem, exists := bucket[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "memory not found", goerr.V("memoryID", id))
	}

	mem.Embedding = make([]float32, len(embedding))
	copy(mem.Embedding, embedding)
	return nil
}

func (r *memoryRepository) GetByIDs(ctx context.Context, email types.EmailAddress, ids []model.MemoryID) ([]*model.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, exists := r.entries[email]
	if !exists {
		return []*model.Memory{}, nil
	}

	result := make([]*model.Memory, 0, len(ids))
	for _, id := range ids {
		if mem, exists := bucket[id]; exists {
			result = append(result, copyMemory(mem))
		}
	}

	return result, nil
}

func (r *memoryRepository) FindByEmbedding(ctx context.Context, email types.EmailAddress, embedding []float32, limit int) ([]*model.MemoryMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, exists := r.entries[email]
	if !exists {
		return []*model.MemoryMatch{}, nil
	}

	var candidates []*model.MemoryMatch
	for _, m := range bucket {
		if len(m.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, &model.MemoryMatch{
			Memory: copyMemory(m),
			Score:  cosineSimilarity(embedding, m.Embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}

	return candidates[:limit], nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
