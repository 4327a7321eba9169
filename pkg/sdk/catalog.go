package datahub

import (
	"context"
	"fmt"
	"time"

	cataloguc "github.com/kailas-cloud/datahub/internal/usecase/catalog"
)

// CatalogService manages catalog entities and their engagement counters.
type CatalogService struct {
	svc *cataloguc.Service
	obs *observer
}

// Create stores a new entity and schedules its first index build.
// A zero ID is assigned; Kind and Title are required.
func (s *CatalogService) Create(ctx context.Context, e Entity) (_ Entity, err error) {
	start := time.Now()
	defer func() { s.obs.observe("catalog.create", start, err) }()

	de, err := toDomainEntity(e)
	if err != nil {
		return Entity{}, fmt.Errorf("catalog create: %w", err)
	}
	if err = s.svc.Create(ctx, &de); err != nil {
		return Entity{}, fmt.Errorf("catalog create: %w", err)
	}
	return fromDomainEntity(de), nil
}

// Get returns an entity by id.
func (s *CatalogService) Get(ctx context.Context, id string) (_ Entity, err error) {
	start := time.Now()
	defer func() { s.obs.observe("catalog.get", start, err) }()

	de, err := s.svc.Get(ctx, id)
	if err != nil {
		return Entity{}, fmt.Errorf("catalog get: %w", err)
	}
	return fromDomainEntity(de), nil
}

// Delete soft-deletes an entity. The search document catches up asynchronously.
func (s *CatalogService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("catalog.delete", start, err) }()

	if err = s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("catalog delete: %w", err)
	}
	return nil
}

// Restore clears the soft-delete flag.
func (s *CatalogService) Restore(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("catalog.restore", start, err) }()

	if err = s.svc.Restore(ctx, id); err != nil {
		return fmt.Errorf("catalog restore: %w", err)
	}
	return nil
}

// Download records a download by viewerID. Repeats within the dedup window
// are silently dropped.
func (s *CatalogService) Download(ctx context.Context, id, viewerID string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("catalog.download", start, err) }()

	if err = s.svc.Download(ctx, id, viewerID); err != nil {
		return fmt.Errorf("catalog download: %w", err)
	}
	return nil
}

// View records a view by viewerID. Repeats within the dedup window are
// silently dropped.
func (s *CatalogService) View(ctx context.Context, id, viewerID string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("catalog.view", start, err) }()

	if err = s.svc.View(ctx, id, viewerID); err != nil {
		return fmt.Errorf("catalog view: %w", err)
	}
	return nil
}

// Reindex schedules a full rebuild of the entity's search document.
func (s *CatalogService) Reindex(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("catalog.reindex", start, err) }()

	if err = s.svc.Reindex(ctx, id); err != nil {
		return fmt.Errorf("catalog reindex: %w", err)
	}
	return nil
}

// UploadCompleted records a finished file upload and schedules metadata
// enrichment for it.
func (s *CatalogService) UploadCompleted(ctx context.Context, id, fileURL, originalFilename string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("catalog.upload_completed", start, err) }()

	if err = s.svc.UploadCompleted(ctx, id, fileURL, originalFilename); err != nil {
		return fmt.Errorf("catalog upload completed: %w", err)
	}
	return nil
}
