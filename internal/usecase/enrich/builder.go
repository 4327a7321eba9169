package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/datahub/internal/domain"
	"github.com/kailas-cloud/datahub/internal/domain/catalog"
	"github.com/kailas-cloud/datahub/internal/domain/search"
	"github.com/kailas-cloud/datahub/internal/logger"
)

// Builder assembles the full search document for an entity: core fields,
// parsed metadata when present, and resolved labels. It backs both the
// enrichment pipeline and full reindex.
type Builder struct {
	meta     MetadataStore
	labels   LabelResolver
	embedder Embedder
}

// NewBuilder creates a document builder. The embedder may be nil; documents
// are then indexed without a semantic vector.
func NewBuilder(meta MetadataStore, labels LabelResolver, embedder Embedder) *Builder {
	return &Builder{meta: meta, labels: labels, embedder: embedder}
}

// Build assembles the document. Missing metadata is normal (the entity may
// never have had a file, or enrichment has not run yet); a label-service
// failure is transient and propagates so the task retries.
func (b *Builder) Build(ctx context.Context, e catalog.Entity) (*search.Document, error) {
	doc := &search.Document{
		EntityID:       e.ID,
		Kind:           string(e.Kind),
		Title:          e.Title,
		Description:    e.Description,
		DownloadCount:  e.DownloadCount,
		ViewCount:      e.ViewCount,
		CommentCount:   e.CommentCount,
		ConnectedCount: e.ConnectedCount,
		Deleted:        e.Deleted,
		IndexedAt:      time.Now().UTC(),
	}

	if m, err := b.meta.Get(ctx, e.ID); err == nil {
		doc.RowCount = m.RowCount
		doc.ColumnCount = m.ColumnCount
		doc.PreviewJSON = m.PreviewJSON
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	labels, err := b.labels.Resolve(ctx, e.LabelIDs())
	if err != nil {
		return nil, fmt.Errorf("resolve labels: %w", err)
	}
	doc.TopicLabel = labels[e.TopicID]
	doc.SourceLabel = labels[e.SourceID]
	doc.TypeLabel = labels[e.TypeID]
	doc.OwnerLabel = labels[e.OwnerID]

	// The embedding is an extra search signal, never a blocker: an embedder
	// outage degrades to a document without a vector.
	if b.embedder != nil && e.Description != "" {
		vec, err := b.embedder.Embed(ctx, e.Description)
		if err != nil {
			logger.FromContext(ctx).Warn("embedding skipped",
				zap.String("entity_id", e.ID), zap.Error(err))
		} else {
			doc.Embedding = vec
		}
	}
	return doc, nil
}
