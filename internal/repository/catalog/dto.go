package catalog

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/datahub/internal/domain/catalog"
)

// Hash field names of a primary-store entity.
const (
	fieldID          = "id"
	fieldKind        = "kind"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldTopicID     = "topic_id"
	fieldSourceID    = "source_id"
	fieldTypeID      = "type_id"
	fieldOwnerID     = "owner_id"
	fieldFileURL     = "file_url"
	fieldFilename    = "original_filename"
	fieldDeleted     = "deleted"
	fieldDownloads   = "download_count"
	fieldViews       = "view_count"
	fieldComments    = "comment_count"
	fieldConnected   = "connected_count"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

func entityFields(e *catalog.Entity) map[string]string {
	deleted := "0"
	if e.Deleted {
		deleted = "1"
	}
	return map[string]string{
		fieldID:          e.ID,
		fieldKind:        string(e.Kind),
		fieldTitle:       e.Title,
		fieldDescription: e.Description,
		fieldTopicID:     e.TopicID,
		fieldSourceID:    e.SourceID,
		fieldTypeID:      e.TypeID,
		fieldOwnerID:     e.OwnerID,
		fieldFileURL:     e.FileURL,
		fieldFilename:    e.OriginalFilename,
		fieldDeleted:     deleted,
		fieldDownloads:   strconv.FormatInt(e.DownloadCount, 10),
		fieldViews:       strconv.FormatInt(e.ViewCount, 10),
		fieldComments:    strconv.FormatInt(e.CommentCount, 10),
		fieldConnected:   strconv.FormatInt(e.ConnectedCount, 10),
		fieldCreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt:   e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func entityFromFields(fields map[string]string) (catalog.Entity, error) {
	e := catalog.Entity{
		ID:               fields[fieldID],
		Kind:             catalog.Kind(fields[fieldKind]),
		Title:            fields[fieldTitle],
		Description:      fields[fieldDescription],
		TopicID:          fields[fieldTopicID],
		SourceID:         fields[fieldSourceID],
		TypeID:           fields[fieldTypeID],
		OwnerID:          fields[fieldOwnerID],
		FileURL:          fields[fieldFileURL],
		OriginalFilename: fields[fieldFilename],
		Deleted:          fields[fieldDeleted] == "1",
	}

	var err error
	if e.DownloadCount, err = parseCount(fields, fieldDownloads); err != nil {
		return catalog.Entity{}, err
	}
	if e.ViewCount, err = parseCount(fields, fieldViews); err != nil {
		return catalog.Entity{}, err
	}
	if e.CommentCount, err = parseCount(fields, fieldComments); err != nil {
		return catalog.Entity{}, err
	}
	if e.ConnectedCount, err = parseCount(fields, fieldConnected); err != nil {
		return catalog.Entity{}, err
	}
	if raw := fields[fieldCreatedAt]; raw != "" {
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return catalog.Entity{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	if raw := fields[fieldUpdatedAt]; raw != "" {
		if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return catalog.Entity{}, fmt.Errorf("parse updated_at: %w", err)
		}
	}
	return e, nil
}

func parseCount(fields map[string]string, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}
