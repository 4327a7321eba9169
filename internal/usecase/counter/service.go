// Package counter decides whether a download or view event increments its
// aggregate or is suppressed as a repeat within the dedup window.
package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/datahub/internal/domain"
	"github.com/kailas-cloud/datahub/internal/metrics"
)

// Counter kinds. Each kind has its own dedup keyspace and window.
const (
	KindDownload = "download"
	KindView     = "view"
)

// Outcome reports the admission decision for one event.
type Outcome int

const (
	// Admitted means the event is the first from this viewer within the
	// window and must increment the aggregate.
	Admitted Outcome = iota
	// Deduped means a repeat within the window; the caller succeeds without
	// incrementing anything.
	Deduped
)

func (o Outcome) String() string {
	if o == Admitted {
		return "admitted"
	}
	return "deduped"
}

// Service applies the dedup window in front of the counters.
type Service struct {
	deduper        Deduper
	downloadWindow time.Duration
	viewWindow     time.Duration
}

// New creates a counter service with per-kind dedup windows.
func New(deduper Deduper, downloadWindow, viewWindow time.Duration) *Service {
	return &Service{deduper: deduper, downloadWindow: downloadWindow, viewWindow: viewWindow}
}

// TryIncrement runs the admission check for one (kind, entity, viewer) event.
// The dedup store being unreachable fails closed: the event is rejected with
// ErrDedupUnavailable rather than risking unbounded over-count.
func (s *Service) TryIncrement(ctx context.Context, kind, entityID, viewerID string) (Outcome, error) {
	window := s.window(kind)
	if window <= 0 {
		return Deduped, fmt.Errorf("unknown counter kind %q", kind)
	}

	admitted, err := s.deduper.Acquire(ctx, kind, entityID, viewerID, window)
	if err != nil {
		metrics.DedupChecksTotal.WithLabelValues(kind, "error").Inc()
		return Deduped, fmt.Errorf("dedup check %s/%s: %w: %w", kind, entityID, domain.ErrDedupUnavailable, err)
	}
	if !admitted {
		metrics.DedupChecksTotal.WithLabelValues(kind, "deduped").Inc()
		return Deduped, nil
	}
	metrics.DedupChecksTotal.WithLabelValues(kind, "admitted").Inc()
	return Admitted, nil
}

func (s *Service) window(kind string) time.Duration {
	switch kind {
	case KindDownload:
		return s.downloadWindow
	case KindView:
		return s.viewWindow
	default:
		return 0
	}
}
