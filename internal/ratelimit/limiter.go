// Package ratelimit throttles deal submissions per identity+origin pair.
// The limiter is an abuse deterrent, not a security boundary; the in-memory
// backend is intentionally process-local.
package ratelimit

import "context"

// Limiter admits or rejects one attempt for a key. Allow both checks and
// records the attempt in a single call so two concurrent requests cannot
// both pass on the last remaining slot.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
