package projection

import (
	"context"

	"github.com/kailas-cloud/datahub/internal/domain/catalog"
	"github.com/kailas-cloud/datahub/internal/domain/projection"
	"github.com/kailas-cloud/datahub/internal/domain/search"
)

// Queue is the durable task source the worker drains.
type Queue interface {
	DequeueBatch(ctx context.Context, max int) ([]projection.Task, error)
	Ack(ctx context.Context, t projection.Task) error
	Nack(ctx context.Context, t projection.Task, cause error) (bool, error)
	RecoverStale(ctx context.Context) (int, error)
	Depth(ctx context.Context) (int64, error)
	DeadLetterCount(ctx context.Context) (int64, error)
}

// Index is the worker's write surface on the search index.
type Index interface {
	Upsert(ctx context.Context, doc *search.Document) error
	SetDeleted(ctx context.Context, entityID string, deleted bool) (bool, error)
	ApplyDelta(ctx context.Context, taskID, entityID, field string, delta int64) error
	Remove(ctx context.Context, entityID string) error
	DropOverlay(ctx context.Context, entityID string) error
}

// PrimaryReader resolves an entity from the primary store. The primary is the
// source of truth when a task targets a document the index does not hold.
type PrimaryReader interface {
	Get(ctx context.Context, id string) (catalog.Entity, error)
}

// DocumentBuilder assembles the full search document for an entity.
type DocumentBuilder interface {
	Build(ctx context.Context, e catalog.Entity) (*search.Document, error)
}
