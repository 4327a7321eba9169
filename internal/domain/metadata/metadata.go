// Package metadata defines the structural summary extracted from an uploaded file.
package metadata

import (
	"encoding/json"
	"fmt"
	"time"
)

// Format identifies the parsed file format.
type Format string

const (
	// FormatCSV is comma-separated values.
	FormatCSV Format = "csv"
	// FormatTSV is tab-separated values.
	FormatTSV Format = "tsv"
	// FormatParquet is Apache Parquet.
	FormatParquet Format = "parquet"
)

// Parsed is the structural summary of an uploaded dataset file.
// Exactly one Parsed exists per entity once enrichment succeeds; a replacement
// upload overwrites it.
type Parsed struct {
	EntityID    string    `json:"entity_id"`
	Format      Format    `json:"format"`
	RowCount    int64     `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	PreviewJSON string    `json:"preview_json"`
	ParsedAt    time.Time `json:"parsed_at"`
}

// Validate checks the non-negativity invariants.
func (p *Parsed) Validate() error {
	if p.EntityID == "" {
		return fmt.Errorf("metadata entity id is required")
	}
	if p.RowCount < 0 {
		return fmt.Errorf("row count must be non-negative, got %d", p.RowCount)
	}
	if p.ColumnCount < 0 {
		return fmt.Errorf("column count must be non-negative, got %d", p.ColumnCount)
	}
	return nil
}

// BuildPreview serializes up to len(rows) sample rows as a compact JSON array
// of header->value objects, dropping trailing rows until the result fits in
// maxBytes. Returns "[]" when nothing fits.
func BuildPreview(headers []string, rows [][]string, maxBytes int) (string, error) {
	if maxBytes <= 0 {
		maxBytes = 16 * 1024
	}

	for n := len(rows); n >= 0; n-- {
		out := make([]map[string]string, 0, n)
		for _, row := range rows[:n] {
			obj := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(row) {
					obj[h] = row[i]
				} else {
					obj[h] = ""
				}
			}
			out = append(out, obj)
		}

		data, err := json.Marshal(out)
		if err != nil {
			return "", fmt.Errorf("marshal preview: %w", err)
		}
		if len(data) <= maxBytes {
			return string(data), nil
		}
	}
	return "[]", nil
}
