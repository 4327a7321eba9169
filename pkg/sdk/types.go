package datahub

import (
	"context"
	"time"

	domcat "github.com/kailas-cloud/datahub/internal/domain/catalog"
)

// Entity is a catalog entry: a dataset, API, or other published artifact.
type Entity struct {
	ID               string
	Kind             string
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

// Embedder produces a semantic vector for entity descriptions. Optional;
// without one, documents are indexed without a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LabelResolver maps reference-taxonomy ids (topics, sources, types, owners)
// to display labels. Optional; without one, documents carry raw ids only.
type LabelResolver interface {
	Resolve(ctx context.Context, ids []string) (map[string]string, error)
}

// DeadLetter is a task that exhausted its retries.
type DeadLetter struct {
	TaskID     string
	EntityID   string
	Kind       string
	Attempts   int
	LastError  string
	EnqueuedAt time.Time
}

func toDomainEntity(e Entity) (domcat.Entity, error) {
	kind, err := domcat.ParseKind(e.Kind)
	if err != nil {
		return domcat.Entity{}, err
	}
	now := time.Now().UTC()
	created := e.CreatedAt
	if created.IsZero() {
		created = now
	}
	return domcat.Entity{
		ID:               e.ID,
		Kind:             kind,
		Title:            e.Title,
		Description:      e.Description,
		TopicID:          e.TopicID,
		SourceID:         e.SourceID,
		TypeID:           e.TypeID,
		OwnerID:          e.OwnerID,
		FileURL:          e.FileURL,
		OriginalFilename: e.OriginalFilename,
		CreatedAt:        created,
		UpdatedAt:        now,
	}, nil
}

func fromDomainEntity(e domcat.Entity) Entity {
	return Entity{
		ID:               e.ID,
		Kind:             string(e.Kind),
		Title:            e.Title,
		Description:      e.Description,
		TopicID:          e.TopicID,
		SourceID:         e.SourceID,
		TypeID:           e.TypeID,
		OwnerID:          e.OwnerID,
		FileURL:          e.FileURL,
		OriginalFilename: e.OriginalFilename,
		Deleted:          e.Deleted,
		DownloadCount:    e.DownloadCount,
		ViewCount:        e.ViewCount,
		CommentCount:     e.CommentCount,
		ConnectedCount:   e.ConnectedCount,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
