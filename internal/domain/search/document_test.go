package search

import (
	"testing"
	"time"
)

func TestFieldsRoundtrip(t *testing.T) {
	doc := Document{
		EntityID:       "ds-1",
		Kind:           "dataset",
		Title:          "Air Quality 2025",
		Description:    "hourly sensor readings",
		TopicLabel:     "Environment",
		SourceLabel:    "City of Helsinki",
		TypeLabel:      "Time series",
		OwnerLabel:     "jkallio",
		RowCount:       8760,
		ColumnCount:    12,
		PreviewJSON:    `[{"pm25":"4.2"}]`,
		DownloadCount:  17,
		ViewCount:      243,
		CommentCount:   3,
		ConnectedCount: 2,
		Deleted:        true,
		Embedding:      []float32{0.25, -1.5, 3},
		IndexedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	got, err := FromFields(doc.Fields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EntityID != doc.EntityID || got.Title != doc.Title {
		t.Errorf("core fields mismatch: %+v", got)
	}
	if got.RowCount != 8760 || got.ColumnCount != 12 {
		t.Errorf("counts mismatch: rows=%d cols=%d", got.RowCount, got.ColumnCount)
	}
	if got.DownloadCount != 17 || got.ViewCount != 243 {
		t.Errorf("aggregates mismatch: %+v", got)
	}
	if !got.Deleted {
		t.Error("expected deleted flag preserved")
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != -1.5 {
		t.Errorf("embedding mismatch: %v", got.Embedding)
	}
	if !got.IndexedAt.Equal(doc.IndexedAt) {
		t.Errorf("indexed_at mismatch: %v", got.IndexedAt)
	}
}

func TestFromFieldsMissingEntityID(t *testing.T) {
	if _, err := FromFields(map[string]string{FieldTitle: "x"}); err == nil {
		t.Error("expected error for missing entity_id")
	}
}

func TestVectorEncodeDecode(t *testing.T) {
	vec := []float32{1, 0.5, -0.25, 1e-7}
	got := DecodeVector(EncodeVector(vec))
	if len(got) != len(vec) {
		t.Fatalf("length mismatch: %d", len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], vec[i])
		}
	}
}
