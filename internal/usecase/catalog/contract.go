package catalog

import (
	"context"

	"github.com/kailas-cloud/datahub/internal/domain/catalog"
	"github.com/kailas-cloud/datahub/internal/domain/projection"
	"github.com/kailas-cloud/datahub/internal/usecase/counter"
)

// Repository is the primary-store surface the facade mutates.
type Repository interface {
	Put(ctx context.Context, e *catalog.Entity) error
	Get(ctx context.Context, id string) (catalog.Entity, error)
	SetDeleted(ctx context.Context, id string, deleted bool) error
	SetFile(ctx context.Context, id, fileURL, originalFilename string) error
	IncrDownload(ctx context.Context, id string) (int64, error)
	IncrView(ctx context.Context, id string) (int64, error)
}

// Counter is the dedup-windowed admission gate for download/view events.
type Counter interface {
	TryIncrement(ctx context.Context, kind, entityID, viewerID string) (counter.Outcome, error)
}

// TaskQueue is a durable task destination with dead-letter inspection.
type TaskQueue interface {
	Enqueue(ctx context.Context, t projection.Task) error
	DeadLetters(ctx context.Context) ([]projection.Task, error)
}
