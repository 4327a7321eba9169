package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/datahub/internal/db/memory"
)

func TestAcquire_FirstWinsRestDeduped(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	ctx := context.Background()

	created, err := repo.Acquire(ctx, "view", "ds-1", "u-1", 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("first acquire should be admitted")
	}

	created, err = repo.Acquire(ctx, "view", "ds-1", "u-1", 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("repeat acquire inside window should be deduped")
	}
}

func TestAcquire_DistinctTriplesIndependent(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	ctx := context.Background()

	pairs := []struct{ kind, entity, viewer string }{
		{"view", "ds-1", "u-1"},
		{"view", "ds-1", "u-2"},
		{"view", "ds-2", "u-1"},
		{"download", "ds-1", "u-1"},
	}
	for _, p := range pairs {
		created, err := repo.Acquire(ctx, p.kind, p.entity, p.viewer, time.Hour)
		if err != nil {
			t.Fatalf("acquire %+v: %v", p, err)
		}
		if !created {
			t.Errorf("expected %+v to be admitted independently", p)
		}
	}
}

func TestAcquire_ConcurrentSingleAdmission(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	admitted := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := repo.Acquire(ctx, "view", "ds-1", "u-1", time.Hour)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			admitted <- created
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for a := range admitted {
		if a {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 admission among %d concurrent calls, got %d", n, count)
	}
}

type failingStore struct{}

func (failingStore) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestAcquire_StoreErrorPropagates(t *testing.T) {
	repo := New(failingStore{}, "datahub:")
	if _, err := repo.Acquire(context.Background(), "view", "ds-1", "u-1", time.Hour); err == nil {
		t.Error("expected error from failing store")
	}
}
