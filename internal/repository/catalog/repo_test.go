package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/datahub/internal/db/memory"
	"github.com/kailas-cloud/datahub/internal/domain"
	domcat "github.com/kailas-cloud/datahub/internal/domain/catalog"
)

func testEntity(id string) *domcat.Entity {
	return &domcat.Entity{
		ID:          id,
		Kind:        domcat.KindDataset,
		Title:       "Air Quality 2025",
		Description: "hourly sensor readings",
		TopicID:     "topic-env",
		SourceID:    "src-hel",
		TypeID:      "type-ts",
		OwnerID:     "user-7",
		CreatedAt:   time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestPutGetRoundtrip(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	ctx := context.Background()

	if err := repo.Put(ctx, testEntity("ds-1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Get(ctx, "ds-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Air Quality 2025" || got.Kind != domcat.KindDataset {
		t.Errorf("unexpected entity: %+v", got)
	}
	if got.Deleted {
		t.Error("new entity should not be deleted")
	}
}

func TestGet_Missing(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPut_RejectsInvalid(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	e := testEntity("ds-1")
	e.Title = ""
	if err := repo.Put(context.Background(), e); err == nil {
		t.Error("expected validation error")
	}
}

func TestSetDeleted(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	ctx := context.Background()
	if err := repo.Put(ctx, testEntity("ds-1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := repo.SetDeleted(ctx, "ds-1", true); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	got, _ := repo.Get(ctx, "ds-1")
	if !got.Deleted {
		t.Error("expected deleted=true")
	}
	if got.Title != "Air Quality 2025" {
		t.Error("soft delete must not touch other fields")
	}

	if err := repo.SetDeleted(ctx, "ds-1", false); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ = repo.Get(ctx, "ds-1")
	if got.Deleted {
		t.Error("expected deleted=false after restore")
	}
}

func TestSetDeleted_MissingEntity(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	if err := repo.SetDeleted(context.Background(), "nope", true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIncrDownload_AtomicUnderConcurrency(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	ctx := context.Background()
	if err := repo.Put(ctx, testEntity("ds-1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrDownload(ctx, "ds-1"); err != nil {
				t.Errorf("incr: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, "ds-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DownloadCount != 40 {
		t.Errorf("download count = %d, want 40", got.DownloadCount)
	}
}

func TestIncr_MissingEntity(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	if _, err := repo.IncrView(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetFile(t *testing.T) {
	repo := New(memory.NewStore(), "datahub:")
	ctx := context.Background()
	if err := repo.Put(ctx, testEntity("ds-1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := repo.SetFile(ctx, "ds-1", "https://blob/ds-1/v2.csv", "sales_v2.csv"); err != nil {
		t.Fatalf("set file: %v", err)
	}
	got, _ := repo.Get(ctx, "ds-1")
	if got.FileURL != "https://blob/ds-1/v2.csv" || got.OriginalFilename != "sales_v2.csv" {
		t.Errorf("file ref not updated: %+v", got)
	}
}
