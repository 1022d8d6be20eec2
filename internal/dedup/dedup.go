package dedup

import (
	"context"
	"time"
)

// Cache is a time-windowed idempotency store. TryClaim is atomic: among
// concurrent callers racing on the same unexpired key, exactly one sees
// true; everyone else must treat false as "already sent, skip".
type Cache interface {
	TryClaim(ctx context.Context, key string, window time.Duration) (bool, error)
}
