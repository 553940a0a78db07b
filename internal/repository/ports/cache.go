package ports

import (
	"context"
	"time"
)

// Cache is a key/value store with per-entry expiry. Get reports found=false for
// missing and expired keys.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
