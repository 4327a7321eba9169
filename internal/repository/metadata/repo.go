// Package metadata persists parsed file metadata, one record per entity.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/datahub/internal/db"
	"github.com/kailas-cloud/datahub/internal/domain"
	dommeta "github.com/kailas-cloud/datahub/internal/domain/metadata"
)

// store is the consumer interface for metadata records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Repo stores ParsedMetadata as JSON blobs. Put overwrites: re-running
// enrichment for the same entity replaces, never duplicates.
type Repo struct {
	store  store
	prefix string
}

// New creates a metadata repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Put writes the metadata record, replacing any prior record for the entity.
func (r *Repo) Put(ctx context.Context, m *dommeta.Parsed) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metadata %s: %w", m.EntityID, err)
	}
	if err := r.store.Set(ctx, r.key(m.EntityID), data); err != nil {
		return fmt.Errorf("set metadata %s: %w", m.EntityID, err)
	}
	return nil
}

// Get returns the metadata record for an entity. Absence is legal (enrichment
// may never have completed) and maps to domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, entityID string) (dommeta.Parsed, error) {
	data, err := r.store.Get(ctx, r.key(entityID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dommeta.Parsed{}, domain.ErrNotFound
		}
		return dommeta.Parsed{}, fmt.Errorf("get metadata %s: %w", entityID, err)
	}
	var m dommeta.Parsed
	if err := json.Unmarshal(data, &m); err != nil {
		return dommeta.Parsed{}, fmt.Errorf("unmarshal metadata %s: %w", entityID, err)
	}
	return m, nil
}

// Delete removes the metadata record.
func (r *Repo) Delete(ctx context.Context, entityID string) error {
	if err := r.store.Del(ctx, r.key(entityID)); err != nil {
		return fmt.Errorf("del metadata %s: %w", entityID, err)
	}
	return nil
}

func (r *Repo) key(entityID string) string {
	return r.prefix + "meta:" + entityID
}
