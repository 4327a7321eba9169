package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/datahub/internal/domain"
	domcat "github.com/kailas-cloud/datahub/internal/domain/catalog"
	"github.com/kailas-cloud/datahub/internal/domain/projection"
	"github.com/kailas-cloud/datahub/internal/usecase/counter"
)

// --- Mocks ---

type mockRepo struct {
	entities     map[string]domcat.Entity
	setDeleteErr error
	incrErr      error
	downloads    int64
	views        int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{entities: map[string]domcat.Entity{}}
}

func (m *mockRepo) Put(_ context.Context, e *domcat.Entity) error {
	m.entities[e.ID] = *e
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (domcat.Entity, error) {
	e, ok := m.entities[id]
	if !ok {
		return domcat.Entity{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *mockRepo) SetDeleted(_ context.Context, id string, deleted bool) error {
	if m.setDeleteErr != nil {
		return m.setDeleteErr
	}
	e, ok := m.entities[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Deleted = deleted
	m.entities[id] = e
	return nil
}

func (m *mockRepo) SetFile(_ context.Context, id, fileURL, originalFilename string) error {
	e, ok := m.entities[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.FileURL = fileURL
	e.OriginalFilename = originalFilename
	m.entities[id] = e
	return nil
}

func (m *mockRepo) IncrDownload(_ context.Context, id string) (int64, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.downloads++
	return m.downloads, nil
}

func (m *mockRepo) IncrView(_ context.Context, id string) (int64, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.views++
	return m.views, nil
}

type mockCounter struct {
	outcome counter.Outcome
	err     error
}

func (m *mockCounter) TryIncrement(_ context.Context, _, _, _ string) (counter.Outcome, error) {
	return m.outcome, m.err
}

type mockQueue struct {
	enqueued []projection.Task
	dead     []projection.Task
	err      error
}

func (m *mockQueue) Enqueue(_ context.Context, t projection.Task) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, t)
	return nil
}

func (m *mockQueue) DeadLetters(_ context.Context) ([]projection.Task, error) {
	return m.dead, nil
}

type facadeEnv struct {
	svc      *Service
	repo     *mockRepo
	counters *mockCounter
	tasks    *mockQueue
	uploads  *mockQueue
}

func newFacadeEnv(t *testing.T) *facadeEnv {
	t.Helper()
	env := &facadeEnv{
		repo:     newMockRepo(),
		counters: &mockCounter{outcome: counter.Admitted},
		tasks:    &mockQueue{},
		uploads:  &mockQueue{},
	}
	env.svc = New(env.repo, env.counters, env.tasks, env.uploads)
	return env
}

func seed(env *facadeEnv, id string) {
	env.repo.entities[id] = domcat.Entity{ID: id, Kind: domcat.KindDataset, Title: "t"}
}

func TestCreate_StoresAndSchedulesIndexing(t *testing.T) {
	env := newFacadeEnv(t)

	e := domcat.Entity{Kind: domcat.KindDataset, Title: "Air Quality"}
	if err := env.svc.Create(context.Background(), &e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, ok := env.repo.entities[e.ID]; !ok {
		t.Fatal("entity not stored")
	}
	if len(env.tasks.enqueued) != 1 || env.tasks.enqueued[0].Kind != projection.KindFullReindex {
		t.Fatalf("expected full reindex scheduled, got %v", env.tasks.enqueued)
	}
}

func TestDelete_PrimaryFirstThenEnqueue(t *testing.T) {
	env := newFacadeEnv(t)
	seed(env, "ds-1")

	if err := env.svc.Delete(context.Background(), "ds-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !env.repo.entities["ds-1"].Deleted {
		t.Error("primary flag must be set synchronously")
	}
	if len(env.tasks.enqueued) != 1 {
		t.Fatalf("expected one task, got %d", len(env.tasks.enqueued))
	}
	task := env.tasks.enqueued[0]
	if task.Kind != projection.KindSetDeleted || !task.Deleted {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestDelete_NotFound(t *testing.T) {
	env := newFacadeEnv(t)

	err := env.svc.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(env.tasks.enqueued) != 0 {
		t.Error("no task must be enqueued when the primary mutation fails")
	}
}

func TestRestore_EnqueuesClearFlag(t *testing.T) {
	env := newFacadeEnv(t)
	seed(env, "ds-1")
	_ = env.svc.Delete(context.Background(), "ds-1")

	if err := env.svc.Restore(context.Background(), "ds-1"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if env.repo.entities["ds-1"].Deleted {
		t.Error("primary flag must be cleared")
	}
	last := env.tasks.enqueued[len(env.tasks.enqueued)-1]
	if last.Kind != projection.KindSetDeleted || last.Deleted {
		t.Errorf("unexpected task: %+v", last)
	}
}

func TestDownload_AdmittedIncrementsAndEnqueues(t *testing.T) {
	env := newFacadeEnv(t)
	seed(env, "ds-1")

	if err := env.svc.Download(context.Background(), "ds-1", "viewer-1"); err != nil {
		t.Fatalf("download: %v", err)
	}
	if env.repo.downloads != 1 {
		t.Errorf("download count = %d, want 1", env.repo.downloads)
	}
	if len(env.tasks.enqueued) != 1 {
		t.Fatalf("expected one delta task, got %d", len(env.tasks.enqueued))
	}
	task := env.tasks.enqueued[0]
	if task.Kind != projection.KindDownloadDelta || task.Delta != 1 {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestDownload_DedupedIsSilentSuccess(t *testing.T) {
	env := newFacadeEnv(t)
	seed(env, "ds-1")
	env.counters.outcome = counter.Deduped

	if err := env.svc.Download(context.Background(), "ds-1", "viewer-1"); err != nil {
		t.Fatalf("deduped download must succeed: %v", err)
	}
	if env.repo.downloads != 0 {
		t.Error("deduped event must not increment")
	}
	if len(env.tasks.enqueued) != 0 {
		t.Error("deduped event must not enqueue")
	}
}

func TestDownload_DedupOutagePropagates(t *testing.T) {
	env := newFacadeEnv(t)
	seed(env, "ds-1")
	env.counters.err = domain.ErrDedupUnavailable

	err := env.svc.Download(context.Background(), "ds-1", "viewer-1")
	if !errors.Is(err, domain.ErrDedupUnavailable) {
		t.Fatalf("expected ErrDedupUnavailable, got %v", err)
	}
	if env.repo.downloads != 0 || len(env.tasks.enqueued) != 0 {
		t.Error("nothing must be counted when dedup is unavailable")
	}
}

func TestView_EnqueuesViewDelta(t *testing.T) {
	env := newFacadeEnv(t)
	seed(env, "ds-1")

	if err := env.svc.View(context.Background(), "ds-1", "viewer-1"); err != nil {
		t.Fatalf("view: %v", err)
	}
	if env.repo.views != 1 {
		t.Errorf("view count = %d, want 1", env.repo.views)
	}
	if env.tasks.enqueued[0].Kind != projection.KindViewDelta {
		t.Errorf("unexpected task: %+v", env.tasks.enqueued[0])
	}
}

func TestReindex_UnknownEntity(t *testing.T) {
	env := newFacadeEnv(t)

	if err := env.svc.Reindex(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUploadCompleted_RecordsFileAndSignalsUploadsQueue(t *testing.T) {
	env := newFacadeEnv(t)
	seed(env, "ds-1")

	err := env.svc.UploadCompleted(context.Background(), "ds-1", "https://files/air.csv", "air.csv")
	if err != nil {
		t.Fatalf("upload completed: %v", err)
	}
	if env.repo.entities["ds-1"].FileURL != "https://files/air.csv" {
		t.Error("file url must be recorded on the entity")
	}
	if len(env.uploads.enqueued) != 1 || env.uploads.enqueued[0].Kind != projection.KindEnrich {
		t.Fatalf("expected enrich signal on uploads queue, got %v", env.uploads.enqueued)
	}
	if len(env.tasks.enqueued) != 0 {
		t.Error("enrich signal must not land on the projection queue")
	}
}

func TestDeadLetters_MergesBothQueues(t *testing.T) {
	env := newFacadeEnv(t)
	env.tasks.dead = []projection.Task{projection.NewDownloadDelta("ds-1", 1)}
	env.uploads.dead = []projection.Task{projection.NewEnrich("ds-2", "u", "f.csv")}

	got, err := env.svc.DeadLetters(context.Background())
	if err != nil {
		t.Fatalf("dead letters: %v", err)
	}
	if len(got["projection"]) != 1 || len(got["uploads"]) != 1 {
		t.Errorf("unexpected dead letters: %v", got)
	}
}
