package counter

import (
	"context"
	"time"
)

// Deduper is the viewer-window admission gate backing the counters.
type Deduper interface {
	Acquire(ctx context.Context, counterKind, entityID, viewerID string, window time.Duration) (bool, error)
}
