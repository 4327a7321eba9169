// Package projection defines the durable task model for the eventual-consistency
// pipeline between the primary store and the search index.
package projection

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of mutations a background worker can apply.
type Kind string

const (
	// KindSetDeleted sets or clears the deleted flag on a search document.
	KindSetDeleted Kind = "set_deleted"
	// KindDownloadDelta applies a relative increment to the download aggregate.
	KindDownloadDelta Kind = "download_delta"
	// KindViewDelta applies a relative increment to the view aggregate.
	KindViewDelta Kind = "view_delta"
	// KindFullReindex recomputes the whole search document from primary state.
	KindFullReindex Kind = "full_reindex"
	// KindEnrich is the durable upload-completed signal consumed by the
	// metadata enrichment pipeline. It never reaches the projection worker.
	KindEnrich Kind = "enrich"
)

// ParseKind validates and converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSetDeleted, KindDownloadDelta, KindViewDelta, KindFullReindex, KindEnrich:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown task kind %q", s)
	}
}

// Task is a pending instruction for a background worker. Tasks for the same
// EntityID are delivered in enqueue order; the ID doubles as the idempotency
// token for delta re-application after a lost ack.
type Task struct {
	ID       string `json:"id"`
	EntityID string `json:"entity_id"`
	Kind     Kind   `json:"kind"`

	// Kind-specific payload.
	Deleted          bool   `json:"deleted,omitempty"`           // set_deleted
	Delta            int64  `json:"delta,omitempty"`             // download_delta, view_delta
	FileURL          string `json:"file_url,omitempty"`          // enrich
	OriginalFilename string `json:"original_filename,omitempty"` // enrich

	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
}

// NewSetDeleted creates a task flipping the deleted flag.
func NewSetDeleted(entityID string, deleted bool) Task {
	t := newTask(entityID, KindSetDeleted)
	t.Deleted = deleted
	return t
}

// NewDownloadDelta creates a relative download-count increment task.
func NewDownloadDelta(entityID string, delta int64) Task {
	t := newTask(entityID, KindDownloadDelta)
	t.Delta = delta
	return t
}

// NewViewDelta creates a relative view-count increment task.
func NewViewDelta(entityID string, delta int64) Task {
	t := newTask(entityID, KindViewDelta)
	t.Delta = delta
	return t
}

// NewFullReindex creates a task rebuilding the entity's search document.
func NewFullReindex(entityID string) Task {
	return newTask(entityID, KindFullReindex)
}

// NewEnrich creates an upload-completed signal for the enrichment pipeline.
func NewEnrich(entityID, fileURL, originalFilename string) Task {
	t := newTask(entityID, KindEnrich)
	t.FileURL = fileURL
	t.OriginalFilename = originalFilename
	return t
}

func newTask(entityID string, kind Kind) Task {
	return Task{
		ID:         uuid.NewString(),
		EntityID:   entityID,
		Kind:       kind,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Validate checks that the task is deliverable.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if t.EntityID == "" {
		return fmt.Errorf("task entity id is required")
	}
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return err
	}
	return nil
}

// Marshal serializes the task for queue storage.
func (t *Task) Marshal() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	return string(data), nil
}

// Unmarshal decodes a task from queue storage.
func Unmarshal(data string) (Task, error) {
	var t Task
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return Task{}, fmt.Errorf("unmarshal task: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Backoff returns the redelivery delay after the given number of failed
// attempts: base doubled per attempt, capped at max.
func Backoff(attempts int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
