// Package catalog is the write facade over the primary store and the
// projection queue. Every mutation lands in the primary store first; the
// matching index task is enqueued after the commit and applied by the
// background worker. Callers never wait for the index.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domcat "github.com/kailas-cloud/datahub/internal/domain/catalog"
	"github.com/kailas-cloud/datahub/internal/domain/projection"
	"github.com/kailas-cloud/datahub/internal/usecase/counter"
)

// Service coordinates primary mutations with projection signals.
type Service struct {
	repo     Repository
	counters Counter
	tasks    TaskQueue // projection queue
	uploads  TaskQueue // upload-completed signals
}

// New creates the catalog facade.
func New(repo Repository, counters Counter, tasks, uploads TaskQueue) *Service {
	return &Service{repo: repo, counters: counters, tasks: tasks, uploads: uploads}
}

// Create stores a new entity and schedules its first indexing.
func (s *Service) Create(ctx context.Context, e *domcat.Entity) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.repo.Put(ctx, e); err != nil {
		return fmt.Errorf("store entity: %w", err)
	}
	if err := s.tasks.Enqueue(ctx, projection.NewFullReindex(e.ID)); err != nil {
		return fmt.Errorf("schedule indexing: %w", err)
	}
	return nil
}

// Get reads an entity from the primary store.
func (s *Service) Get(ctx context.Context, id string) (domcat.Entity, error) {
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes the entity and schedules the index tombstone. The
// primary flag is authoritative the moment this returns; the search document
// catches up asynchronously.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.setDeleted(ctx, id, true)
}

// Restore clears the deleted flag and schedules the index update.
func (s *Service) Restore(ctx context.Context, id string) error {
	return s.setDeleted(ctx, id, false)
}

func (s *Service) setDeleted(ctx context.Context, id string, deleted bool) error {
	if err := s.repo.SetDeleted(ctx, id, deleted); err != nil {
		return fmt.Errorf("set deleted flag: %w", err)
	}
	if err := s.tasks.Enqueue(ctx, projection.NewSetDeleted(id, deleted)); err != nil {
		return fmt.Errorf("schedule flag projection: %w", err)
	}
	return nil
}

// Download records one download event. A repeat from the same viewer within
// the dedup window succeeds without counting anything.
func (s *Service) Download(ctx context.Context, id, viewerID string) error {
	return s.countEvent(ctx, counter.KindDownload, id, viewerID)
}

// View records one view event under the view dedup window.
func (s *Service) View(ctx context.Context, id, viewerID string) error {
	return s.countEvent(ctx, counter.KindView, id, viewerID)
}

func (s *Service) countEvent(ctx context.Context, kind, id, viewerID string) error {
	outcome, err := s.counters.TryIncrement(ctx, kind, id, viewerID)
	if err != nil {
		return err
	}
	if outcome == counter.Deduped {
		return nil
	}

	var task projection.Task
	switch kind {
	case counter.KindDownload:
		if _, err := s.repo.IncrDownload(ctx, id); err != nil {
			return fmt.Errorf("increment download count: %w", err)
		}
		task = projection.NewDownloadDelta(id, 1)
	case counter.KindView:
		if _, err := s.repo.IncrView(ctx, id); err != nil {
			return fmt.Errorf("increment view count: %w", err)
		}
		task = projection.NewViewDelta(id, 1)
	default:
		return fmt.Errorf("unknown counter kind %q", kind)
	}

	if err := s.tasks.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("schedule %s projection: %w", kind, err)
	}
	return nil
}

// Reindex schedules a full document rebuild for the entity.
func (s *Service) Reindex(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.tasks.Enqueue(ctx, projection.NewFullReindex(id)); err != nil {
		return fmt.Errorf("schedule reindex: %w", err)
	}
	return nil
}

// UploadCompleted records the new file on the entity and signals the
// enrichment pipeline. Enrichment is best effort and runs from its own queue.
func (s *Service) UploadCompleted(ctx context.Context, id, fileURL, originalFilename string) error {
	if err := s.repo.SetFile(ctx, id, fileURL, originalFilename); err != nil {
		return fmt.Errorf("record file: %w", err)
	}
	if err := s.uploads.Enqueue(ctx, projection.NewEnrich(id, fileURL, originalFilename)); err != nil {
		return fmt.Errorf("signal enrichment: %w", err)
	}
	return nil
}

// DeadLetters returns parked tasks from both queues, keyed by queue name.
func (s *Service) DeadLetters(ctx context.Context) (map[string][]projection.Task, error) {
	proj, err := s.tasks.DeadLetters(ctx)
	if err != nil {
		return nil, fmt.Errorf("projection dead letters: %w", err)
	}
	uploads, err := s.uploads.DeadLetters(ctx)
	if err != nil {
		return nil, fmt.Errorf("uploads dead letters: %w", err)
	}
	return map[string][]projection.Task{
		"projection": proj,
		"uploads":    uploads,
	}, nil
}
