// Package dedup persists idempotency keys with a TTL window.
package dedup

import (
	"context"
	"fmt"
	"time"
)

// store is the consumer interface for dedup keys (ISP).
type store interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (created bool, err error)
}

// Repo implements usecase/counter.KeyStore on an atomic set-if-absent store.
type Repo struct {
	store  store
	prefix string
}

// New creates a dedup-key repository. prefix namespaces all keys.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Acquire creates the idempotency marker for (counterKind, entityID, viewerID)
// if it does not exist yet. Returns true when the marker was newly created,
// false when a live marker suppresses the increment. The marker expires on its
// own after window; it is never deleted explicitly.
func (r *Repo) Acquire(ctx context.Context, counterKind, entityID, viewerID string, window time.Duration) (bool, error) {
	key := r.key(counterKind, entityID, viewerID)
	created, err := r.store.SetNX(ctx, key, []byte("1"), window)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return created, nil
}

func (r *Repo) key(counterKind, entityID, viewerID string) string {
	return fmt.Sprintf("%sdedup:%s:%s:%s", r.prefix, counterKind, entityID, viewerID)
}
