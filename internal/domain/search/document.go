// Package search defines the denormalized document stored in the search index.
// The document shape is owned entirely by the projection subsystem; the
// primary store never sees it.
package search

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Hash field names of an indexed document.
const (
	FieldEntityID       = "entity_id"
	FieldKind           = "kind"
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldTopicLabel     = "topic_label"
	FieldSourceLabel    = "source_label"
	FieldTypeLabel      = "type_label"
	FieldOwnerLabel     = "owner_label"
	FieldRowCount       = "row_count"
	FieldColumnCount    = "column_count"
	FieldPreview        = "preview_json"
	FieldDownloadCount  = "download_count"
	FieldViewCount      = "view_count"
	FieldCommentCount   = "comment_count"
	FieldConnectedCount = "connected_count"
	FieldDeleted        = "deleted"
	FieldEmbedding      = "embedding"
	FieldIndexedAt      = "indexed_at"
)

// Document is the search-index projection of a catalog entity: core fields
// plus resolved labels and aggregates.
type Document struct {
	EntityID    string
	Kind        string
	Title       string
	Description string

	TopicLabel  string
	SourceLabel string
	TypeLabel   string
	OwnerLabel  string

	RowCount    int64
	ColumnCount int
	PreviewJSON string

	DownloadCount  int64
	ViewCount      int64
	CommentCount   int64
	ConnectedCount int64

	Deleted   bool
	Embedding []float32
	IndexedAt time.Time
}

// Fields flattens the document into hash fields for storage.
func (d *Document) Fields() map[string]string {
	deleted := "0"
	if d.Deleted {
		deleted = "1"
	}
	fields := map[string]string{
		FieldEntityID:       d.EntityID,
		FieldKind:           d.Kind,
		FieldTitle:          d.Title,
		FieldDescription:    d.Description,
		FieldTopicLabel:     d.TopicLabel,
		FieldSourceLabel:    d.SourceLabel,
		FieldTypeLabel:      d.TypeLabel,
		FieldOwnerLabel:     d.OwnerLabel,
		FieldRowCount:       strconv.FormatInt(d.RowCount, 10),
		FieldColumnCount:    strconv.Itoa(d.ColumnCount),
		FieldPreview:        d.PreviewJSON,
		FieldDownloadCount:  strconv.FormatInt(d.DownloadCount, 10),
		FieldViewCount:      strconv.FormatInt(d.ViewCount, 10),
		FieldCommentCount:   strconv.FormatInt(d.CommentCount, 10),
		FieldConnectedCount: strconv.FormatInt(d.ConnectedCount, 10),
		FieldDeleted:        deleted,
		FieldIndexedAt:      d.IndexedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(d.Embedding) > 0 {
		fields[FieldEmbedding] = string(EncodeVector(d.Embedding))
	}
	return fields
}

// FromFields reconstructs a document from hash fields.
func FromFields(fields map[string]string) (Document, error) {
	d := Document{
		EntityID:    fields[FieldEntityID],
		Kind:        fields[FieldKind],
		Title:       fields[FieldTitle],
		Description: fields[FieldDescription],
		TopicLabel:  fields[FieldTopicLabel],
		SourceLabel: fields[FieldSourceLabel],
		TypeLabel:   fields[FieldTypeLabel],
		OwnerLabel:  fields[FieldOwnerLabel],
		PreviewJSON: fields[FieldPreview],
		Deleted:     fields[FieldDeleted] == "1",
	}
	if d.EntityID == "" {
		return Document{}, fmt.Errorf("document has no entity_id field")
	}

	var err error
	if d.RowCount, err = parseInt(fields, FieldRowCount); err != nil {
		return Document{}, err
	}
	colCount, err := parseInt(fields, FieldColumnCount)
	if err != nil {
		return Document{}, err
	}
	d.ColumnCount = int(colCount)
	if d.DownloadCount, err = parseInt(fields, FieldDownloadCount); err != nil {
		return Document{}, err
	}
	if d.ViewCount, err = parseInt(fields, FieldViewCount); err != nil {
		return Document{}, err
	}
	if d.CommentCount, err = parseInt(fields, FieldCommentCount); err != nil {
		return Document{}, err
	}
	if d.ConnectedCount, err = parseInt(fields, FieldConnectedCount); err != nil {
		return Document{}, err
	}

	if raw, ok := fields[FieldEmbedding]; ok && raw != "" {
		d.Embedding = DecodeVector([]byte(raw))
	}
	if raw, ok := fields[FieldIndexedAt]; ok && raw != "" {
		if d.IndexedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return Document{}, fmt.Errorf("parse indexed_at: %w", err)
		}
	}
	return d, nil
}

func parseInt(fields map[string]string, name string) (int64, error) {
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

// EncodeVector packs float32s as little-endian bytes for FT vector fields.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector unpacks little-endian float32 bytes.
func DecodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
