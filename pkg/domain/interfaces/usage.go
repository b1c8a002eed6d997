package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/askemail/pkg/domain/types"
)

// UsageRepository defines the interface for the append-only reply log used
// by the rate limiter. Counting is always scoped to a window, so no expiry
// of old entries is needed.
type UsageRepository interface {
	// CountSince returns the number of replies recorded for the sender at
	// or after the given instant.
	CountSince(ctx context.Context, email types.EmailAddress, since time.Time) (int64, error)

	// RecordReply appends one reply record for the sender, stamped with the
	// current time.
	RecordReply(ctx context.Context, email types.EmailAddress) error
}
