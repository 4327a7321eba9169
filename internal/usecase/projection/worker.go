// Package projection drains the durable task queue and applies each mutation
// to the search index. Per-entity ordering comes from the queue; this worker
// only decides what each task kind means for the index.
package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/datahub/internal/domain"
	domproj "github.com/kailas-cloud/datahub/internal/domain/projection"
	"github.com/kailas-cloud/datahub/internal/domain/search"
	"github.com/kailas-cloud/datahub/internal/logger"
	"github.com/kailas-cloud/datahub/internal/metrics"
)

const queueLabel = "projection"

// Worker applies queued projection tasks to the search index.
type Worker struct {
	queue   Queue
	index   Index
	primary PrimaryReader
	builder DocumentBuilder

	batchSize    int
	pollInterval time.Duration
}

// NewWorker creates a projection worker.
func NewWorker(queue Queue, index Index, primary PrimaryReader, builder DocumentBuilder) *Worker {
	return &Worker{
		queue:        queue,
		index:        index,
		primary:      primary,
		builder:      builder,
		batchSize:    10,
		pollInterval: 250 * time.Millisecond,
	}
}

// WithBatchSize configures how many entities one pass claims.
func (w *Worker) WithBatchSize(n int) *Worker {
	if n > 0 {
		w.batchSize = n
	}
	return w
}

// WithPollInterval configures the idle sleep between passes.
func (w *Worker) WithPollInterval(d time.Duration) *Worker {
	if d > 0 {
		w.pollInterval = d
	}
	return w
}

// Run drains the queue until the context is canceled. A failing task never
// stops the loop; it is retried with backoff and eventually dead-lettered.
func (w *Worker) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("projection worker started")

	for {
		processed, err := w.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("projection pass failed", zap.Error(err))
		}

		if processed == 0 {
			select {
			case <-ctx.Done():
				log.Info("projection worker stopped")
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}
		select {
		case <-ctx.Done():
			log.Info("projection worker stopped")
			return
		default:
		}
	}
}

// RunOnce executes a single pass: recover expired claims, claim a batch, and
// process each task. Returns the number of tasks handled.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	if recovered, err := w.queue.RecoverStale(ctx); err != nil {
		log.Warn("recover stale claims", zap.Error(err))
	} else if recovered > 0 {
		log.Info("recovered stale claims", zap.Int("count", recovered))
	}

	tasks, err := w.queue.DequeueBatch(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("dequeue batch: %w", err)
	}

	for _, t := range tasks {
		w.handle(ctx, t)
	}
	w.observeDepth(ctx)
	return len(tasks), nil
}

// handle applies one task and settles it. The task's own failure is isolated:
// it is recorded on the task and the loop moves on.
func (w *Worker) handle(ctx context.Context, t domproj.Task) {
	log := logger.FromContext(ctx).With(
		zap.String("task_id", t.ID),
		zap.String("entity_id", t.EntityID),
		zap.String("kind", string(t.Kind)),
	)

	start := time.Now()
	err := w.apply(ctx, t)
	metrics.ProjectionApplyDuration.WithLabelValues(string(t.Kind)).Observe(time.Since(start).Seconds())

	if err == nil {
		if ackErr := w.queue.Ack(ctx, t); ackErr != nil {
			log.Warn("ack failed, task will be redelivered", zap.Error(ackErr))
			return
		}
		metrics.ProjectionTasksTotal.WithLabelValues(string(t.Kind), "ok").Inc()
		return
	}

	dead, nackErr := w.queue.Nack(ctx, t, err)
	if nackErr != nil {
		log.Error("nack failed", zap.Error(nackErr), zap.NamedError("cause", err))
		return
	}
	if dead {
		metrics.ProjectionTasksTotal.WithLabelValues(string(t.Kind), "dead_letter").Inc()
		log.Error("task dead-lettered", zap.Error(err), zap.Int("attempts", t.Attempts+1))
		return
	}
	metrics.ProjectionTasksTotal.WithLabelValues(string(t.Kind), "retry").Inc()
	log.Warn("task failed, scheduled for retry", zap.Error(err))
}

// apply dispatches on the task kind. A nil return means the index reflects
// the task and it is safe to ack.
func (w *Worker) apply(ctx context.Context, t domproj.Task) error {
	switch t.Kind {
	case domproj.KindSetDeleted:
		return w.applySetDeleted(ctx, t)
	case domproj.KindDownloadDelta:
		return w.index.ApplyDelta(ctx, t.ID, t.EntityID, search.FieldDownloadCount, t.Delta)
	case domproj.KindViewDelta:
		return w.index.ApplyDelta(ctx, t.ID, t.EntityID, search.FieldViewCount, t.Delta)
	case domproj.KindFullReindex:
		return w.applyFullReindex(ctx, t)
	default:
		return fmt.Errorf("kind %q not handled by projection worker: %w", t.Kind, domain.ErrMalformedTask)
	}
}

// applySetDeleted flips the flag on the document, or records it in the pending
// overlay when the document is not indexed yet. When the entity turns out to
// be hard-absent from the primary store the pending flag is discarded: there
// is nothing left to tombstone.
func (w *Worker) applySetDeleted(ctx context.Context, t domproj.Task) error {
	existed, err := w.index.SetDeleted(ctx, t.EntityID, t.Deleted)
	if err != nil {
		return fmt.Errorf("set deleted flag: %w", err)
	}
	if existed {
		return nil
	}

	if _, err := w.primary.Get(ctx, t.EntityID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return w.index.DropOverlay(ctx, t.EntityID)
		}
		return fmt.Errorf("resolve entity: %w", err)
	}
	// Entity exists but is not indexed yet; the overlay is folded in when
	// the first full document lands.
	return nil
}

// applyFullReindex rebuilds the document from primary state. An entity that
// vanished from the primary store is removed from the index instead.
func (w *Worker) applyFullReindex(ctx context.Context, t domproj.Task) error {
	e, err := w.primary.Get(ctx, t.EntityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return w.index.Remove(ctx, t.EntityID)
		}
		return fmt.Errorf("resolve entity: %w", err)
	}

	doc, err := w.builder.Build(ctx, e)
	if err != nil {
		return fmt.Errorf("build document: %w", err)
	}
	if err := w.index.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (w *Worker) observeDepth(ctx context.Context) {
	if depth, err := w.queue.Depth(ctx); err == nil {
		metrics.ProjectionQueueDepth.WithLabelValues(queueLabel).Set(float64(depth))
	}
	if dead, err := w.queue.DeadLetterCount(ctx); err == nil {
		metrics.DeadLetterDepth.WithLabelValues(queueLabel).Set(float64(dead))
	}
}
