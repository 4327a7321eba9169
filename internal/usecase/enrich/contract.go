package enrich

import (
	"context"

	"github.com/kailas-cloud/datahub/internal/domain/catalog"
	"github.com/kailas-cloud/datahub/internal/domain/metadata"
	"github.com/kailas-cloud/datahub/internal/domain/projection"
	"github.com/kailas-cloud/datahub/internal/domain/search"
)

// BlobFetcher downloads the uploaded file from object storage.
type BlobFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MetadataStore persists the parsed structural summary.
type MetadataStore interface {
	Put(ctx context.Context, p *metadata.Parsed) error
	Get(ctx context.Context, entityID string) (metadata.Parsed, error)
}

// PrimaryReader resolves the entity being enriched.
type PrimaryReader interface {
	Get(ctx context.Context, id string) (catalog.Entity, error)
}

// LabelResolver maps reference-taxonomy ids to display labels.
type LabelResolver interface {
	Resolve(ctx context.Context, ids []string) (map[string]string, error)
}

// Index is the enrichment pipeline's write surface on the search index.
type Index interface {
	Upsert(ctx context.Context, doc *search.Document) error
}

// Embedder produces a semantic vector for the entity description.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Queue is the durable upload-completed signal source.
type Queue interface {
	DequeueBatch(ctx context.Context, max int) ([]projection.Task, error)
	Ack(ctx context.Context, t projection.Task) error
	Nack(ctx context.Context, t projection.Task, cause error) (bool, error)
	RecoverStale(ctx context.Context) (int, error)
	Depth(ctx context.Context) (int64, error)
	DeadLetterCount(ctx context.Context) (int64, error)
}
