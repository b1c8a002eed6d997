package memory

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/askemail/pkg/domain/types"
)

type usageRepository struct {
	mu      sync.RWMutex
	replies map[types.EmailAddress][]time.Time
}

func newUsageRepository() *usageRepository {
	return &usageRepository{
		replies: make(map[types.EmailAddress][]time.Time),
	}
}

func (r *usageRepository) CountSince(ctx context.Context, email types.EmailAddress, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, ts := range r.replies[email] {
		if !ts.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *usageRepository) RecordReply(ctx context.Context, email types.EmailAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.replies[email] = append(r.replies[email], time.Now().UTC())
	return nil
}
