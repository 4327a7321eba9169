// Package catalog is the primary transactional store for catalog entities.
// Counter mutations go through atomic store increments; soft delete and
// restore flip a flag without touching the row's other fields.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/datahub/internal/domain"
	domcat "github.com/kailas-cloud/datahub/internal/domain/catalog"
)

// store is the consumer interface for the primary store (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
}

// Repo implements the primary-store contract of the consistency facade.
type Repo struct {
	store  store
	prefix string
}

// New creates a primary-store repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Put creates or fully replaces an entity.
func (r *Repo) Put(ctx context.Context, e *domcat.Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := r.store.HSet(ctx, r.key(e.ID), entityFields(e)); err != nil {
		return fmt.Errorf("hset entity %s: %w", e.ID, err)
	}
	return nil
}

// Get returns an entity by id, including soft-deleted ones.
func (r *Repo) Get(ctx context.Context, id string) (domcat.Entity, error) {
	fields, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		return domcat.Entity{}, fmt.Errorf("hgetall entity %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domcat.Entity{}, domain.ErrNotFound
	}
	return entityFromFields(fields)
}

// SetDeleted flips the soft-delete flag. Missing entities are an error: the
// facade's primary mutation must fail before anything is enqueued.
func (r *Repo) SetDeleted(ctx context.Context, id string, deleted bool) error {
	exists, err := r.store.Exists(ctx, r.key(id))
	if err != nil {
		return fmt.Errorf("exists entity %s: %w", id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	flag := "0"
	if deleted {
		flag = "1"
	}
	fields := map[string]string{
		fieldDeleted:   flag,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, r.key(id), fields); err != nil {
		return fmt.Errorf("hset deleted flag %s: %w", id, err)
	}
	return nil
}

// SetFile updates the file reference after an upload.
func (r *Repo) SetFile(ctx context.Context, id, fileURL, originalFilename string) error {
	exists, err := r.store.Exists(ctx, r.key(id))
	if err != nil {
		return fmt.Errorf("exists entity %s: %w", id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	fields := map[string]string{
		fieldFileURL:   fileURL,
		fieldFilename:  originalFilename,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, r.key(id), fields); err != nil {
		return fmt.Errorf("hset file ref %s: %w", id, err)
	}
	return nil
}

// IncrDownload atomically increments the persisted download counter.
func (r *Repo) IncrDownload(ctx context.Context, id string) (int64, error) {
	return r.incr(ctx, id, fieldDownloads)
}

// IncrView atomically increments the persisted view counter.
func (r *Repo) IncrView(ctx context.Context, id string) (int64, error) {
	return r.incr(ctx, id, fieldViews)
}

func (r *Repo) incr(ctx context.Context, id, field string) (int64, error) {
	exists, err := r.store.Exists(ctx, r.key(id))
	if err != nil {
		return 0, fmt.Errorf("exists entity %s: %w", id, err)
	}
	if !exists {
		return 0, domain.ErrNotFound
	}
	n, err := r.store.HIncrBy(ctx, r.key(id), field, 1)
	if err != nil {
		return 0, fmt.Errorf("hincrby %s %s: %w", id, field, err)
	}
	return n, nil
}

// Delete removes an entity permanently. Admin/test path; soft delete is the
// user-facing operation.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return fmt.Errorf("del entity %s: %w", id, err)
	}
	return nil
}

func (r *Repo) key(id string) string {
	return r.prefix + "entity:" + id
}
