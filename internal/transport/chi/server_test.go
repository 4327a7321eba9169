package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/datahub/internal/db/memory"
	catalogrepo "github.com/kailas-cloud/datahub/internal/repository/catalog"
	deduprepo "github.com/kailas-cloud/datahub/internal/repository/dedup"
	queuerepo "github.com/kailas-cloud/datahub/internal/repository/queue"
	cataloguc "github.com/kailas-cloud/datahub/internal/usecase/catalog"
	counteruc "github.com/kailas-cloud/datahub/internal/usecase/counter"
	healthuc "github.com/kailas-cloud/datahub/internal/usecase/health"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	store := memory.NewStore()
	const prefix = "datahub:"

	repo := catalogrepo.New(store, prefix)
	counters := counteruc.New(deduprepo.New(store, prefix), 24*time.Hour, time.Hour)
	projQueue := queuerepo.New(store, prefix, "projection", queuerepo.Config{})
	uploadQueue := queuerepo.New(store, prefix, "uploads", queuerepo.Config{})

	catalogSvc := cataloguc.New(repo, counters, projQueue, uploadQueue)
	healthSvc := healthuc.New(store)

	server := NewServer(catalogSvc, healthSvc, zap.NewNop())
	r := chi.NewRouter()
	server.Register(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createEntity(t *testing.T, h http.Handler) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/v1/catalog",
		`{"kind":"dataset","title":"Air Quality 2025","topic_id":"topic-7"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.ID == "" {
		t.Fatalf("create response missing id: %s", w.Body.String())
	}
	return resp.ID
}

func getEntity(t *testing.T, h http.Handler, id string) map[string]any {
	t.Helper()
	w := doJSON(t, h, http.MethodGet, "/v1/catalog/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", w.Code, w.Body.String())
	}
	var e map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode entity: %v", err)
	}
	return e
}

func TestCreateAndGetEntity(t *testing.T) {
	h := newTestHandler(t)
	id := createEntity(t, h)

	e := getEntity(t, h, id)
	if e["title"] != "Air Quality 2025" || e["kind"] != "dataset" {
		t.Errorf("unexpected entity: %v", e)
	}
}

func TestCreateEntity_Validation(t *testing.T) {
	h := newTestHandler(t)

	w := doJSON(t, h, http.MethodPost, "/v1/catalog", `{"kind":"dataset"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing title", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/v1/catalog", `{"kind":"wiki","title":"t"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown kind", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/v1/catalog", `{not json`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for bad json", w.Code)
	}
}

func TestDeleteAndRestore(t *testing.T) {
	h := newTestHandler(t)
	id := createEntity(t, h)

	if w := doJSON(t, h, http.MethodDelete, "/v1/catalog/"+id, "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if e := getEntity(t, h, id); e["deleted"] != true {
		t.Error("entity must be soft-deleted in the primary store")
	}

	if w := doJSON(t, h, http.MethodPost, "/v1/catalog/"+id+"/restore", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("restore status = %d", w.Code)
	}
	if e := getEntity(t, h, id); e["deleted"] != false {
		t.Error("entity must be restored")
	}
}

func TestDelete_Unknown(t *testing.T) {
	h := newTestHandler(t)

	w := doJSON(t, h, http.MethodDelete, "/v1/catalog/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var resp errorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != codeNotFound {
		t.Errorf("code = %q, want %q", resp.Code, codeNotFound)
	}
}

func TestDownload_DedupedByViewer(t *testing.T) {
	h := newTestHandler(t)
	id := createEntity(t, h)

	viewer := map[string]string{"X-Viewer-ID": "viewer-1"}
	for i := 0; i < 3; i++ {
		if w := doJSON(t, h, http.MethodPost, "/v1/catalog/"+id+"/download", "", viewer); w.Code != http.StatusNoContent {
			t.Fatalf("download %d status = %d", i, w.Code)
		}
	}

	e := getEntity(t, h, id)
	if e["download_count"] != float64(1) {
		t.Errorf("download_count = %v, want 1 (repeats within the window dedupe)", e["download_count"])
	}
}

func TestView_DistinctViewersCount(t *testing.T) {
	h := newTestHandler(t)
	id := createEntity(t, h)

	for _, viewer := range []string{"viewer-1", "viewer-2"} {
		w := doJSON(t, h, http.MethodPost, "/v1/catalog/"+id+"/view", "", map[string]string{"X-Viewer-ID": viewer})
		if w.Code != http.StatusNoContent {
			t.Fatalf("view status = %d", w.Code)
		}
	}

	e := getEntity(t, h, id)
	if e["view_count"] != float64(2) {
		t.Errorf("view_count = %v, want 2", e["view_count"])
	}
}

func TestReindex(t *testing.T) {
	h := newTestHandler(t)
	id := createEntity(t, h)

	if w := doJSON(t, h, http.MethodPost, "/v1/catalog/"+id+"/reindex", "", nil); w.Code != http.StatusAccepted {
		t.Errorf("reindex status = %d, want 202", w.Code)
	}
	if w := doJSON(t, h, http.MethodPost, "/v1/catalog/missing/reindex", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("reindex unknown status = %d, want 404", w.Code)
	}
}

func TestUploadCompleted(t *testing.T) {
	h := newTestHandler(t)
	id := createEntity(t, h)

	body := `{"entity_id":"` + id + `","file_url":"https://files/air.csv","original_filename":"air.csv"}`
	if w := doJSON(t, h, http.MethodPost, "/v1/internal/upload-completed", body, nil); w.Code != http.StatusAccepted {
		t.Fatalf("upload-completed status = %d", w.Code)
	}

	e := getEntity(t, h, id)
	if e["file_url"] != "https://files/air.csv" {
		t.Errorf("file_url = %v, want the uploaded url", e["file_url"])
	}

	if w := doJSON(t, h, http.MethodPost, "/v1/internal/upload-completed", `{"entity_id":""}`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing fields", w.Code)
	}
}

func TestDeadLettersEndpoint(t *testing.T) {
	h := newTestHandler(t)

	w := doJSON(t, h, http.MethodGet, "/v1/admin/dead-letters", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string][]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := resp["projection"]; !ok {
		t.Errorf("expected projection key, got %v", resp)
	}
	if _, ok := resp["uploads"]; !ok {
		t.Errorf("expected uploads key, got %v", resp)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHandler(t)

	w := doJSON(t, h, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}
