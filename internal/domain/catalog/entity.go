// Package catalog defines the catalog entity as seen by the primary store.
package catalog

import (
	"fmt"
	"time"
)

// Kind distinguishes catalog item types.
type Kind string

const (
	// KindDataset is an uploaded dataset.
	KindDataset Kind = "dataset"
	// KindProject is a project referencing datasets.
	KindProject Kind = "project"
)

// ParseKind validates and converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDataset, KindProject:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown catalog kind %q", s)
	}
}

// Entity is a catalog item as stored in the primary store.
// Counters are mutated only through atomic store increments, never
// read-modify-write.
type Entity struct {
	ID               string
	Kind             Kind
	Title            string
	Description      string
	TopicID          string
	SourceID         string
	TypeID           string
	OwnerID          string
	FileURL          string
	OriginalFilename string
	Deleted          bool
	DownloadCount    int64
	ViewCount        int64
	CommentCount     int64
	ConnectedCount   int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks the minimal invariants for a new entity.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	if _, err := ParseKind(string(e.Kind)); err != nil {
		return err
	}
	if e.Title == "" {
		return fmt.Errorf("entity title is required")
	}
	return nil
}

// LabelIDs returns the reference-taxonomy ids that need label resolution.
// Empty ids are omitted.
func (e *Entity) LabelIDs() []string {
	ids := make([]string, 0, 4)
	for _, id := range []string{e.TopicID, e.SourceID, e.TypeID, e.OwnerID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
