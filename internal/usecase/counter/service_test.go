package counter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/datahub/internal/domain"
)

// --- Mocks ---

type mockDeduper struct {
	admitted   bool
	err        error
	lastKind   string
	lastWindow time.Duration
}

func (m *mockDeduper) Acquire(_ context.Context, kind, _, _ string, window time.Duration) (bool, error) {
	m.lastKind = kind
	m.lastWindow = window
	return m.admitted, m.err
}

func TestTryIncrement_Admitted(t *testing.T) {
	dedup := &mockDeduper{admitted: true}
	svc := New(dedup, 24*time.Hour, time.Hour)

	out, err := svc.TryIncrement(context.Background(), KindDownload, "ds-1", "viewer-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != Admitted {
		t.Errorf("outcome = %v, want Admitted", out)
	}
	if dedup.lastWindow != 24*time.Hour {
		t.Errorf("window = %v, want download window", dedup.lastWindow)
	}
}

func TestTryIncrement_Deduped(t *testing.T) {
	dedup := &mockDeduper{admitted: false}
	svc := New(dedup, 24*time.Hour, time.Hour)

	out, err := svc.TryIncrement(context.Background(), KindView, "ds-1", "viewer-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != Deduped {
		t.Errorf("outcome = %v, want Deduped", out)
	}
	if dedup.lastWindow != time.Hour {
		t.Errorf("window = %v, want view window", dedup.lastWindow)
	}
}

func TestTryIncrement_StoreFailureFailsClosed(t *testing.T) {
	dedup := &mockDeduper{err: errors.New("connection refused")}
	svc := New(dedup, 24*time.Hour, time.Hour)

	_, err := svc.TryIncrement(context.Background(), KindDownload, "ds-1", "viewer-1")
	if !errors.Is(err, domain.ErrDedupUnavailable) {
		t.Fatalf("expected ErrDedupUnavailable, got %v", err)
	}
}

func TestTryIncrement_UnknownKind(t *testing.T) {
	svc := New(&mockDeduper{admitted: true}, 24*time.Hour, time.Hour)

	if _, err := svc.TryIncrement(context.Background(), "comment", "ds-1", "viewer-1"); err == nil {
		t.Fatal("expected error for unknown counter kind")
	}
}
