// Package searchindex is the projection subsystem's client for the search
// index: document upserts, partial field updates, and relative aggregate
// increments. Mutations targeting a document that has not been indexed yet
// land in a pending overlay and are folded in on the first upsert.
package searchindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/datahub/internal/db"
	"github.com/kailas-cloud/datahub/internal/domain/search"
)

// appliedTokenTTL bounds how long a delta task id is remembered. Redelivery
// of an acked delta only happens within the queue's retry horizon, so a short
// window is enough.
const appliedTokenTTL = time.Hour

// store is the consumer interface for the search index backend (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo implements the index contract used by the projection worker and the
// enrichment pipeline.
type Repo struct {
	store     store
	prefix    string
	indexName string
	vectorDim int
}

// New creates a search index repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix, indexName: prefix + "idx:catalog"}
}

// WithVectorDim enables the embedding vector field in the FT schema.
func (r *Repo) WithVectorDim(dim int) *Repo {
	if dim > 0 {
		r.vectorDim = dim
	}
	return r
}

// EnsureIndex creates the FT index over document hashes if it does not exist.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	fields := []db.IndexField{
		{Name: search.FieldTitle, Type: db.FieldText},
		{Name: search.FieldDescription, Type: db.FieldText},
		{Name: search.FieldKind, Type: db.FieldTag},
		{Name: search.FieldTopicLabel, Type: db.FieldTag},
		{Name: search.FieldSourceLabel, Type: db.FieldTag},
		{Name: search.FieldTypeLabel, Type: db.FieldTag},
		{Name: search.FieldOwnerLabel, Type: db.FieldTag},
		{Name: search.FieldDeleted, Type: db.FieldTag},
		{Name: search.FieldRowCount, Type: db.FieldNumeric},
		{Name: search.FieldDownloadCount, Type: db.FieldNumeric},
		{Name: search.FieldViewCount, Type: db.FieldNumeric},
	}
	if r.vectorDim > 0 {
		fields = append(fields, db.IndexField{
			Name: search.FieldEmbedding, Type: db.FieldVector, VectorDim: r.vectorDim,
		})
	}

	err := r.store.CreateIndex(ctx, &db.IndexDefinition{
		Name:   r.indexName,
		Prefix: r.docPrefix(),
		Fields: fields,
	})
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return nil
}

// Upsert fully replaces the document, folding in any pending overlay
// (deleted flag set or deltas accumulated before the first index).
func (r *Repo) Upsert(ctx context.Context, doc *search.Document) error {
	key := r.docKey(doc.EntityID)
	// Full replace: drop stale fields from a prior document shape.
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del document %s: %w", doc.EntityID, err)
	}
	if err := r.store.HSet(ctx, key, doc.Fields()); err != nil {
		return fmt.Errorf("hset document %s: %w", doc.EntityID, err)
	}

	// The overlay is read only after the document hash is written: from that
	// point concurrent flag and delta writers see the document and target it
	// directly, so the overlay holds the complete backlog and clearing it
	// cannot discard a write that raced the replace.
	overlay, err := r.store.HGetAll(ctx, r.overlayKey(doc.EntityID))
	if err != nil {
		return fmt.Errorf("read overlay %s: %w", doc.EntityID, err)
	}
	if flag, ok := overlay[search.FieldDeleted]; ok {
		if err := r.store.HSet(ctx, key, map[string]string{search.FieldDeleted: flag}); err != nil {
			return fmt.Errorf("fold overlay flag %s: %w", doc.EntityID, err)
		}
	}
	if d := overlayDelta(overlay, search.FieldDownloadCount); d != 0 {
		if _, err := r.store.HIncrBy(ctx, key, search.FieldDownloadCount, d); err != nil {
			return fmt.Errorf("fold overlay delta %s: %w", doc.EntityID, err)
		}
	}
	if d := overlayDelta(overlay, search.FieldViewCount); d != 0 {
		if _, err := r.store.HIncrBy(ctx, key, search.FieldViewCount, d); err != nil {
			return fmt.Errorf("fold overlay delta %s: %w", doc.EntityID, err)
		}
	}
	if err := r.store.Del(ctx, r.overlayKey(doc.EntityID)); err != nil {
		return fmt.Errorf("clear overlay %s: %w", doc.EntityID, err)
	}
	return nil
}

// SetDeleted partial-updates the deleted flag. When the document has not been
// indexed yet the flag is recorded as a pending overlay instead; the returned
// bool reports whether the document existed.
func (r *Repo) SetDeleted(ctx context.Context, entityID string, deleted bool) (bool, error) {
	flag := "0"
	if deleted {
		flag = "1"
	}

	exists, err := r.store.Exists(ctx, r.docKey(entityID))
	if err != nil {
		return false, fmt.Errorf("exists document %s: %w", entityID, err)
	}

	key := r.docKey(entityID)
	if !exists {
		key = r.overlayKey(entityID)
	}
	if err := r.store.HSet(ctx, key, map[string]string{search.FieldDeleted: flag}); err != nil {
		return exists, fmt.Errorf("hset deleted flag %s: %w", entityID, err)
	}
	return exists, nil
}

// ApplyDelta applies a relative increment to an aggregate field. The task id
// is an idempotency token: a redelivered delta whose ack was lost is skipped.
// Deltas for a not-yet-indexed document accumulate in the overlay.
func (r *Repo) ApplyDelta(ctx context.Context, taskID, entityID, field string, delta int64) error {
	applied, err := r.store.Exists(ctx, r.appliedKey(taskID))
	if err != nil {
		return fmt.Errorf("check delta %s applied: %w", taskID, err)
	}
	if applied {
		return nil
	}

	exists, err := r.store.Exists(ctx, r.docKey(entityID))
	if err != nil {
		return fmt.Errorf("exists document %s: %w", entityID, err)
	}
	key := r.docKey(entityID)
	if !exists {
		key = r.overlayKey(entityID)
	}
	if _, err := r.store.HIncrBy(ctx, key, field, delta); err != nil {
		return fmt.Errorf("hincrby %s %s: %w", entityID, field, err)
	}
	// The token is set only after the increment landed. A failed attempt
	// leaves no token, so the nacked task re-applies on redelivery.
	if _, err := r.store.SetNX(ctx, r.appliedKey(taskID), []byte("1"), appliedTokenTTL); err != nil {
		return fmt.Errorf("mark delta %s applied: %w", taskID, err)
	}
	return nil
}

// Get reads the document back.
func (r *Repo) Get(ctx context.Context, entityID string) (search.Document, error) {
	fields, err := r.store.HGetAll(ctx, r.docKey(entityID))
	if err != nil {
		return search.Document{}, fmt.Errorf("hgetall document %s: %w", entityID, err)
	}
	if len(fields) == 0 {
		return search.Document{}, fmt.Errorf("document %s not indexed", entityID)
	}
	return search.FromFields(fields)
}

// Exists reports whether the document is indexed.
func (r *Repo) Exists(ctx context.Context, entityID string) (bool, error) {
	return r.store.Exists(ctx, r.docKey(entityID))
}

// Remove deletes the document and any pending overlay. Used when a full
// reindex finds the entity hard-absent from the primary store.
func (r *Repo) Remove(ctx context.Context, entityID string) error {
	if err := r.store.Del(ctx, r.docKey(entityID)); err != nil {
		return fmt.Errorf("del document %s: %w", entityID, err)
	}
	if err := r.store.Del(ctx, r.overlayKey(entityID)); err != nil {
		return fmt.Errorf("del overlay %s: %w", entityID, err)
	}
	return nil
}

// DropOverlay discards pending mutations for an entity that no longer exists.
func (r *Repo) DropOverlay(ctx context.Context, entityID string) error {
	if err := r.store.Del(ctx, r.overlayKey(entityID)); err != nil {
		return fmt.Errorf("del overlay %s: %w", entityID, err)
	}
	return nil
}

func overlayDelta(overlay map[string]string, field string) int64 {
	raw, ok := overlay[field]
	if !ok || raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (r *Repo) docPrefix() string               { return r.prefix + "doc:" }
func (r *Repo) docKey(entityID string) string   { return r.docPrefix() + entityID }
func (r *Repo) overlayKey(id string) string     { return r.prefix + "overlay:" + id }
func (r *Repo) appliedKey(taskID string) string { return r.prefix + "applied:" + taskID }
