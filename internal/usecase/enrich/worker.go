package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/datahub/internal/domain"
	domproj "github.com/kailas-cloud/datahub/internal/domain/projection"
	"github.com/kailas-cloud/datahub/internal/logger"
	"github.com/kailas-cloud/datahub/internal/metrics"
)

const queueLabel = "uploads"

// Worker drains the upload-completed signal queue and runs the enrichment
// pipeline for each signal.
type Worker struct {
	queue   Queue
	service *Service

	batchSize    int
	pollInterval time.Duration
}

// NewWorker creates an enrichment worker.
func NewWorker(queue Queue, service *Service) *Worker {
	return &Worker{
		queue:        queue,
		service:      service,
		batchSize:    4,
		pollInterval: time.Second,
	}
}

// WithBatchSize configures how many signals one pass claims.
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

// Run drains the queue until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("enrichment worker started")

	for {
		processed, err := w.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("enrichment pass failed", zap.Error(err))
		}

		if processed == 0 {
			select {
			case <-ctx.Done():
				log.Info("enrichment worker stopped")
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}
		select {
		case <-ctx.Done():
			log.Info("enrichment worker stopped")
			return
		default:
		}
	}
}

// RunOnce executes a single pass over the uploads queue.
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

func (w *Worker) handle(ctx context.Context, t domproj.Task) {
	log := logger.FromContext(ctx).With(
		zap.String("task_id", t.ID),
		zap.String("entity_id", t.EntityID),
	)

	var err error
	if t.Kind != domproj.KindEnrich {
		err = fmt.Errorf("kind %q not handled by enrichment worker: %w", t.Kind, domain.ErrMalformedTask)
	} else {
		err = w.service.Run(ctx, t)
	}

	if err == nil {
		if ackErr := w.queue.Ack(ctx, t); ackErr != nil {
			log.Warn("ack failed, signal will be redelivered", zap.Error(ackErr))
		}
		return
	}

	dead, nackErr := w.queue.Nack(ctx, t, err)
	if nackErr != nil {
		log.Error("nack failed", zap.Error(nackErr), zap.NamedError("cause", err))
		return
	}
	if dead {
		log.Error("enrichment signal dead-lettered", zap.Error(err), zap.Int("attempts", t.Attempts+1))
		return
	}
	log.Warn("enrichment failed, scheduled for retry", zap.Error(err))
}

func (w *Worker) observeDepth(ctx context.Context) {
	if depth, err := w.queue.Depth(ctx); err == nil {
		metrics.ProjectionQueueDepth.WithLabelValues(queueLabel).Set(float64(depth))
	}
	if dead, err := w.queue.DeadLetterCount(ctx); err == nil {
		metrics.DeadLetterDepth.WithLabelValues(queueLabel).Set(float64(dead))
	}
}
